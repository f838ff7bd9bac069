package merge

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// memLine is one line of a memSource. A zero ts means the line has no
// timestamp.
type memLine struct {
	ts    time.Time
	entry int
	text  string
}

// memSource is an in-memory Source whose content the tests edit directly.
type memSource struct {
	name  string
	lines []memLine
}

func newMemSource(name string) *memSource {
	return &memSource{name: name}
}

// add appends lines that each start a new entry and returns the
// modification announcing them.
func (s *memSource) add(stamps ...time.Time) Modification {
	from := len(s.lines)
	for _, ts := range stamps {
		n := len(s.lines)
		s.lines = append(s.lines, memLine{ts: ts, entry: n, text: fmt.Sprintf("%s:%d", s.name, n)})
	}
	return Appended(from, len(stamps))
}

// addContinuation appends a line belonging to the entry of the last line.
func (s *memSource) addContinuation(ts time.Time) Modification {
	from := len(s.lines)
	entry := 0
	if from > 0 {
		entry = s.lines[from-1].entry
	}
	s.lines = append(s.lines, memLine{ts: ts, entry: entry, text: fmt.Sprintf("%s:%d", s.name, from)})
	return Appended(from, 1)
}

// truncate keeps the first n lines and returns the matching invalidation.
func (s *memSource) truncate(n int) Modification {
	removed := len(s.lines) - n
	s.lines = s.lines[:n]
	return Invalidated(n, removed)
}

func (s *memSource) clear() Modification {
	s.lines = nil
	return Reset()
}

func (s *memSource) Count() int { return len(s.lines) }

func (s *memSource) Columns(from, count int) Columns {
	cols := NewColumns(count)
	for i := range count {
		line := from + i
		if line < 0 || line >= len(s.lines) {
			cols.Index[i] = -1
			cols.Entry[i] = -1
			continue
		}
		cols.Index[i] = line
		cols.Entry[i] = s.lines[line].entry
		cols.Timestamp[i] = s.lines[line].ts
	}
	return cols
}

func (s *memSource) Text(line int) string {
	if line < 0 || line >= len(s.lines) {
		return ""
	}
	return s.lines[line].text
}

func (s *memSource) Name() string { return s.name }

// at returns a timestamp on a fixed day.
func at(hour, minute, second int) time.Time {
	return time.Date(2017, time.February, 16, hour, minute, second, 0, time.UTC)
}

func nullLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

// pend builds a batch entry.
func pend(h SourceHandle, m Modification) Pending {
	return Pending{Source: h, Modification: m}
}

func newTestIndex(t *testing.T, sources ...Source) *Index {
	t.Helper()
	ix, err := NewIndex(nullLogger(), sources...)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return ix
}

// recordSources lists the source handle of every merged record.
func recordSources(ix *Index) []SourceHandle {
	records := ix.Get(0, ix.Count())
	out := make([]SourceHandle, len(records))
	for i, r := range records {
		out[i] = r.Source
	}
	return out
}

func mergedEntries(ix *Index) []int {
	records := ix.Get(0, ix.Count())
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.MergedEntry
	}
	return out
}
