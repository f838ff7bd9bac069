package merge

import "time"

// Source is a growing line stream the index can merge. Implementations must
// be comparable (pointer types in practice) because the index keys its
// registry by source value.
type Source interface {
	// Count returns the number of lines the source currently holds.
	Count() int
	// Columns returns the merge-relevant columns of the lines
	// [from, from+count). Lines that no longer exist report index -1.
	Columns(from, count int) Columns
}

// TextSource is a Source that can also produce the text of a line.
type TextSource interface {
	Source
	Text(line int) string
}

// NamedSource is a Source with a display name.
type NamedSource interface {
	Source
	Name() string
}

// Columns holds three parallel columns for a contiguous range of lines.
// A zero Timestamp means the line carries none.
type Columns struct {
	Index     []int
	Entry     []int
	Timestamp []time.Time
}

// Len returns the number of complete rows.
func (c Columns) Len() int {
	return min(len(c.Index), len(c.Entry), len(c.Timestamp))
}

// NewColumns allocates columns for n rows.
func NewColumns(n int) Columns {
	return Columns{
		Index:     make([]int, n),
		Entry:     make([]int, n),
		Timestamp: make([]time.Time, n),
	}
}
