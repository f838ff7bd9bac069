package merge

import "fmt"

// Kind tells what a Modification did to a stream.
type Kind uint8

const (
	KindAppended Kind = iota + 1
	KindInvalidated
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindAppended:
		return "appended"
	case KindInvalidated:
		return "invalidated"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Modification describes a change to a line stream. Sources use it to report
// their own changes and the index uses it to report changes of the merged
// stream, so one index can feed another.
type Modification struct {
	Kind  Kind
	From  int
	Count int
}

// Appended reports count new lines starting at from.
func Appended(from, count int) Modification {
	return Modification{Kind: KindAppended, From: from, Count: count}
}

// Invalidated reports that count lines starting at from are gone. Every line
// after from is gone with them.
func Invalidated(from, count int) Modification {
	return Modification{Kind: KindInvalidated, From: from, Count: count}
}

// Reset reports that the stream starts over from nothing.
func Reset() Modification {
	return Modification{Kind: KindReset}
}

// End returns the position just past the modified range.
func (m Modification) End() int {
	return m.From + m.Count
}

func (m Modification) IsAppended() bool    { return m.Kind == KindAppended }
func (m Modification) IsInvalidated() bool { return m.Kind == KindInvalidated }
func (m Modification) IsReset() bool       { return m.Kind == KindReset }

func (m Modification) String() string {
	if m.Kind == KindReset {
		return "Reset"
	}
	return fmt.Sprintf("%s[%d, %d)", m.Kind, m.From, m.End())
}

func (m Modification) validate() error {
	switch m.Kind {
	case KindReset:
		return nil
	case KindAppended, KindInvalidated:
		if m.From < 0 || m.Count < 0 {
			return fmt.Errorf("%s from %d count %d: %w", m.Kind, m.From, m.Count, ErrInvalidRange)
		}
		return nil
	default:
		return fmt.Errorf("modification kind %d: %w", m.Kind, ErrInvalidRange)
	}
}
