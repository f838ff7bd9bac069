package merge

import "fmt"

// Pending is one notification a source raised, addressed by its handle.
type Pending struct {
	Source       SourceHandle
	Modification Modification
}

// pendingState is what remains of one source's notifications after folding
// them in order.
type pendingState struct {
	reset       bool
	invalidated *Modification
	appends     []Modification
}

func (s *pendingState) apply(m Modification) {
	switch m.Kind {
	case KindReset:
		s.reset = true
		s.invalidated = nil
		s.appends = s.appends[:0]

	case KindInvalidated:
		s.truncateAppends(m.From)
		if s.reset || len(s.appends) > 0 {
			// Everything the index knows about this source lies before
			// the surviving appends, so there is nothing to take back.
			return
		}
		if s.invalidated != nil && s.invalidated.From <= m.From {
			return
		}
		inv := m
		s.invalidated = &inv

	case KindAppended:
		if m.Count == 0 {
			return
		}
		// An append that overlaps a pending one rewrites those lines.
		if n := len(s.appends); n > 0 && m.From < s.appends[n-1].End() {
			s.apply(Invalidated(m.From, s.appends[n-1].End()-m.From))
		}
		if n := len(s.appends); n > 0 && s.appends[n-1].End() == m.From {
			s.appends[n-1].Count += m.Count
			return
		}
		s.appends = append(s.appends, m)
	}
}

// truncateAppends drops pending appends at or after line and shortens the
// one spanning it.
func (s *pendingState) truncateAppends(line int) {
	kept := s.appends[:0]
	for _, a := range s.appends {
		if a.From >= line {
			continue
		}
		if a.End() > line {
			a.Count = line - a.From
		}
		kept = append(kept, a)
	}
	s.appends = kept
}

// Normalize folds a batch of notifications into the smallest equivalent
// batch. Per source the result is an optional Reset, an optional
// invalidation and then appends; sources keep the order in which they first
// appear in batch.
func Normalize(batch []Pending) ([]Pending, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	var order []SourceHandle
	states := make(map[SourceHandle]*pendingState)
	for _, p := range batch {
		if err := p.Modification.validate(); err != nil {
			return nil, fmt.Errorf("source %s: %w", p.Source, err)
		}
		st, ok := states[p.Source]
		if !ok {
			st = &pendingState{}
			states[p.Source] = st
			order = append(order, p.Source)
		}
		st.apply(p.Modification)
	}

	out := make([]Pending, 0, len(batch))
	for _, h := range order {
		st := states[h]
		if st.reset {
			out = append(out, Pending{Source: h, Modification: Reset()})
		}
		if st.invalidated != nil {
			out = append(out, Pending{Source: h, Modification: *st.invalidated})
		}
		for _, a := range st.appends {
			out = append(out, Pending{Source: h, Modification: a})
		}
	}
	return out, nil
}
