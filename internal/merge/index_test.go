package merge

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAppendOneLine(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	changes, err := ix.Process([]Pending{pend(0, src.add(at(19, 16, 0)))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Appended(0, 1)}, changes)
	require.Equal(t, 1, ix.Count())

	r := ix.At(0)
	assert.Equal(t, SourceHandle(0), r.Source)
	assert.Equal(t, 0, r.SourceLine)
	assert.Equal(t, 0, r.OriginalEntry)
	assert.Equal(t, 0, r.MergedEntry)
	assert.Equal(t, at(19, 16, 0), r.Timestamp)
}

func TestProcessTwoSourcesOutOfOrderInOneBatch(t *testing.T) {
	s1, s2 := newMemSource("a"), newMemSource("b")
	ix := newTestIndex(t, s1, s2)

	changes, err := ix.Process([]Pending{
		pend(0, s1.add(at(19, 16, 1))),
		pend(1, s2.add(at(19, 16, 0))),
	})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Appended(0, 2)}, changes)
	assert.Equal(t, []SourceHandle{1, 0}, recordSources(ix))
	assert.Equal(t, []int{0, 1}, mergedEntries(ix))
}

func TestProcessTwoSourcesOutOfOrderAcrossBatches(t *testing.T) {
	s1, s2 := newMemSource("a"), newMemSource("b")
	ix := newTestIndex(t, s1, s2)

	changes, err := ix.Process([]Pending{pend(0, s1.add(at(19, 16, 1)))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Appended(0, 1)}, changes)

	changes, err = ix.Process([]Pending{pend(1, s2.add(at(19, 16, 0)))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Invalidated(0, 1), Appended(0, 2)}, changes)
	assert.Equal(t, []SourceHandle{1, 0}, recordSources(ix))
}

func TestProcessPartialInvalidation(t *testing.T) {
	s1, s2 := newMemSource("a"), newMemSource("b")
	ix := newTestIndex(t, s1, s2)

	changes, err := ix.Process([]Pending{pend(0, s1.add(at(0, 0, 34), at(0, 0, 36)))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Appended(0, 2)}, changes)

	changes, err = ix.Process([]Pending{pend(1, s2.add(at(0, 0, 35), at(0, 0, 37)))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Invalidated(1, 1), Appended(1, 3)}, changes)
	assert.Equal(t, []SourceHandle{0, 1, 0, 1}, recordSources(ix))
	assert.Equal(t, []int{0, 1, 2, 3}, mergedEntries(ix))
}

func TestProcessIdenticalTimestampsKeepArrivalOrder(t *testing.T) {
	s1, s2 := newMemSource("a"), newMemSource("b")
	ix := newTestIndex(t, s1, s2)
	ts := at(10, 0, 0)

	_, err := ix.Process([]Pending{pend(0, s1.add(ts))})
	require.NoError(t, err)
	changes, err := ix.Process([]Pending{pend(1, s2.add(ts))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Appended(1, 1)}, changes)

	changes, err = ix.Process([]Pending{pend(0, s1.add(ts)), pend(1, s2.add(ts))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Appended(2, 2)}, changes)
	assert.Equal(t, []SourceHandle{0, 1, 0, 1}, recordSources(ix))
}

func TestProcessEqualTimestampGoesAfterExisting(t *testing.T) {
	s1, s2 := newMemSource("a"), newMemSource("b")
	ix := newTestIndex(t, s1, s2)

	_, err := ix.Process([]Pending{pend(0, s1.add(at(10, 0, 0), at(10, 0, 1), at(10, 0, 2)))})
	require.NoError(t, err)

	changes, err := ix.Process([]Pending{pend(1, s2.add(at(10, 0, 1)))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Invalidated(2, 1), Appended(2, 2)}, changes)

	records := ix.Get(0, ix.Count())
	require.Len(t, records, 4)
	assert.Equal(t, SourceHandle(0), records[1].Source)
	assert.Equal(t, SourceHandle(1), records[2].Source)
}

func TestProcessManyLinesSharingTimestamps(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	base := time.Date(2017, time.March, 24, 11, 45, 19, 0, time.UTC)
	stamps := []time.Time{
		base.Add(160 * time.Millisecond),
		base.Add(160 * time.Millisecond),
		base.Add(167 * time.Millisecond),
		base.Add(167 * time.Millisecond),
		base.Add(167 * time.Millisecond),
		base.Add(168 * time.Millisecond),
		base.Add(168 * time.Millisecond),
		base.Add(169 * time.Millisecond),
	}
	changes, err := ix.Process([]Pending{pend(0, src.add(stamps...))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Appended(0, 8)}, changes)

	for i, r := range ix.Get(0, 8) {
		assert.Equal(t, i, r.SourceLine)
		assert.Equal(t, i, r.MergedEntry)
	}
}

func TestProcessInterlockedSources(t *testing.T) {
	s1, s2 := newMemSource("a"), newMemSource("b")
	ix := newTestIndex(t, s1, s2)

	_, err := ix.Process([]Pending{pend(0, s1.add(at(1, 0, 0), at(3, 0, 0), at(5, 0, 0)))})
	require.NoError(t, err)

	changes, err := ix.Process([]Pending{pend(1, s2.add(at(2, 0, 0), at(4, 0, 0), at(6, 0, 0)))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Invalidated(1, 2), Appended(1, 5)}, changes)
	assert.Equal(t, []SourceHandle{0, 1, 0, 1, 0, 1}, recordSources(ix))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, mergedEntries(ix))

	lines := make([]int, 0, 6)
	for _, r := range ix.Get(0, 6) {
		lines = append(lines, r.SourceLine)
	}
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2}, lines)
}

func TestProcessResetEmptySource(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	changes, err := ix.Process([]Pending{pend(0, Reset())})
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, 0, ix.Count())
}

func TestProcessAppendThenReset(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, src.add(at(9, 0, 0)))})
	require.NoError(t, err)

	changes, err := ix.Process([]Pending{pend(0, src.clear())})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Reset()}, changes)
	assert.Equal(t, 0, ix.Count())
	assert.Equal(t, []LineRecord{InvalidRecord}, ix.Get(0, 1))
}

func TestProcessAppendResetAppendInOneBatch(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	first := src.add(at(9, 0, 0), at(9, 0, 1))
	reset := src.clear()
	second := src.add(at(9, 1, 0))

	changes, err := ix.Process([]Pending{pend(0, first), pend(0, reset), pend(0, second)})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Appended(0, 1)}, changes)
	require.Equal(t, 1, ix.Count())
	assert.Equal(t, at(9, 1, 0), ix.At(0).Timestamp)
}

func TestProcessResetAndRefillNonEmptyIndex(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, src.add(at(9, 0, 0), at(9, 0, 1)))})
	require.NoError(t, err)

	reset := src.clear()
	refill := src.add(at(8, 0, 0))
	changes, err := ix.Process([]Pending{pend(0, reset), pend(0, refill)})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Reset(), Appended(0, 1)}, changes)
	assert.Equal(t, 1, ix.Count())
}

func TestProcessResetOneOfTwoSources(t *testing.T) {
	s1, s2 := newMemSource("a"), newMemSource("b")
	ix := newTestIndex(t, s1, s2)

	_, err := ix.Process([]Pending{
		pend(1, s2.add(at(22, 15, 0))),
		pend(0, s1.add(at(22, 16, 0))),
	})
	require.NoError(t, err)
	_, err = ix.Process([]Pending{pend(1, s2.add(at(22, 17, 0)))})
	require.NoError(t, err)
	require.Equal(t, []SourceHandle{1, 0, 1}, recordSources(ix))

	changes, err := ix.Process([]Pending{pend(0, s1.clear())})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Invalidated(1, 2), Appended(1, 1)}, changes)
	assert.Equal(t, 2, ix.Count())
	assert.Equal(t, []SourceHandle{1, 1}, recordSources(ix))
	assert.Equal(t, []int{0, 1}, mergedEntries(ix))
}

func TestProcessInvalidateOneOfTwoSources(t *testing.T) {
	s1, s2 := newMemSource("a"), newMemSource("b")
	ix := newTestIndex(t, s1, s2)

	_, err := ix.Process([]Pending{
		pend(1, s2.add(at(23, 0, 0), at(23, 1, 0))),
		pend(0, s1.add(at(23, 2, 0))),
		pend(1, s2.add(at(23, 3, 0))),
	})
	require.NoError(t, err)
	require.Equal(t, []SourceHandle{1, 1, 0, 1}, recordSources(ix))

	changes, err := ix.Process([]Pending{pend(1, s2.truncate(1))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Invalidated(1, 3), Appended(1, 1)}, changes)
	assert.Equal(t, []SourceHandle{1, 0}, recordSources(ix))
	assert.Equal(t, []int{0, 1}, mergedEntries(ix))
}

func TestProcessInvalidateEverything(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, src.add(at(1, 0, 0), at(2, 0, 0)))})
	require.NoError(t, err)

	changes, err := ix.Process([]Pending{pend(0, src.truncate(0))})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Reset()}, changes)
	assert.Equal(t, 0, ix.Count())
}

func TestProcessInvalidatePastEndIsIgnored(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	src := newMemSource("a")
	ix, err := NewIndex(logger, src)
	require.NoError(t, err)

	_, err = ix.Process([]Pending{pend(0, src.add(at(1, 0, 0), at(2, 0, 0)))})
	require.NoError(t, err)

	changes, err := ix.Process([]Pending{pend(0, Invalidated(5, 3))})
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, 2, ix.Count())

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "no merged lines to invalidate" {
			found = true
			assert.Equal(t, logrus.DebugLevel, e.Level)
		}
	}
	assert.True(t, found, "expected a debug entry for the ignored invalidation")
}

func TestProcessSkipsLinesWithoutTimestamp(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	mod := src.add(at(10, 0, 0), time.Time{}, at(10, 0, 1))
	changes, err := ix.Process([]Pending{pend(0, mod)})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Appended(0, 2)}, changes)
	require.Equal(t, 2, ix.Count())

	r := ix.At(1)
	assert.Equal(t, 2, r.SourceLine)
	assert.Equal(t, 2, r.OriginalEntry)
	assert.Equal(t, 1, r.MergedEntry)
}

func TestProcessGroupsMultiLineEntries(t *testing.T) {
	s1, s2 := newMemSource("a"), newMemSource("b")
	ix := newTestIndex(t, s1, s2)

	_, err := ix.Process([]Pending{
		pend(0, s1.add(at(10, 0, 0))),
		pend(0, s1.addContinuation(at(10, 0, 0))),
		pend(1, s2.add(at(10, 0, 1))),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1}, mergedEntries(ix))

	// A line of another source between two lines of one entry splits it.
	_, err = ix.Process([]Pending{pend(0, s1.add(at(10, 0, 2)))})
	require.NoError(t, err)
	s3 := newMemSource("c")
	h, err := ix.Register(s3)
	require.NoError(t, err)
	_, err = ix.Process([]Pending{
		pend(0, s1.addContinuation(at(10, 0, 3))),
		pend(h, s3.add(at(10, 0, 2))),
	})
	require.NoError(t, err)
	assert.Equal(t, []SourceHandle{0, 0, 1, 0, 2, 0}, recordSources(ix))
	assert.Equal(t, []int{0, 0, 1, 2, 3, 4}, mergedEntries(ix))
}

func TestProcessRejectsInconsistentAppend(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, src.add(at(1, 0, 0), at(2, 0, 0)))})
	require.NoError(t, err)

	changes, err := ix.Process([]Pending{pend(0, Appended(1, 1))})
	require.Error(t, err)
	assert.Nil(t, changes)
	assert.ErrorIs(t, err, ErrInconsistentAppend)

	var inconsistent *InconsistentAppendError
	require.True(t, errors.As(err, &inconsistent))
	assert.Equal(t, SourceHandle(0), inconsistent.Source)
	assert.Equal(t, 1, inconsistent.From)
	assert.Equal(t, 2, inconsistent.Expected)
	assert.Equal(t, 2, ix.Count())
}

func TestProcessAcceptsAppendAfterInvalidation(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, src.add(at(1, 0, 0), at(2, 0, 0)))})
	require.NoError(t, err)

	inv := src.truncate(1)
	app := src.add(at(3, 0, 0))
	changes, err := ix.Process([]Pending{pend(0, inv), pend(0, app)})
	require.NoError(t, err)
	assert.Equal(t, []Modification{Invalidated(1, 1), Appended(1, 1)}, changes)
	assert.Equal(t, at(3, 0, 0), ix.At(1).Timestamp)
}

func TestProcessRejectsUnknownSource(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, src.add(at(1, 0, 0))), pend(7, Appended(0, 1))})
	assert.ErrorIs(t, err, ErrUnknownSource)
	assert.Equal(t, 0, ix.Count())
}

func TestProcessRejectsNegativeRange(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, Appended(-1, 2))})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestProcessEmptyBatch(t *testing.T) {
	ix := newTestIndex(t)
	changes, err := ix.Process(nil)
	require.NoError(t, err)
	assert.Nil(t, changes)
}

func TestClear(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, src.add(at(1, 0, 0)))})
	require.NoError(t, err)

	ix.Clear()
	assert.Equal(t, 0, ix.Count())
	assert.Empty(t, ix.Sources())
	_, ok := ix.Handle(src)
	assert.False(t, ok)

	h, err := ix.Register(src)
	require.NoError(t, err)
	assert.Equal(t, SourceHandle(0), h)
}

func TestGetPartiallyOutOfRange(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, src.add(at(1, 0, 0), at(2, 0, 0)))})
	require.NoError(t, err)

	records := ix.Get(1, 3)
	require.Len(t, records, 3)
	assert.Equal(t, 1, records[0].SourceLine)
	assert.Equal(t, InvalidRecord, records[1])
	assert.Equal(t, InvalidRecord, records[2])

	assert.Nil(t, ix.Get(0, 0))
	assert.Equal(t, InvalidRecord, ix.At(-1))
	assert.Equal(t, InvalidRecord, ix.At(2))
}

func TestCopyTo(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	_, err := ix.Process([]Pending{pend(0, src.add(at(1, 0, 0), at(2, 0, 0), at(3, 0, 0)))})
	require.NoError(t, err)

	dst := make([]LineRecord, 4)
	n := ix.CopyTo(dst, -1)
	assert.Equal(t, 3, n)
	assert.Equal(t, InvalidRecord, dst[0])
	assert.Equal(t, 0, dst[1].SourceLine)
	assert.Equal(t, 2, dst[3].SourceLine)

	n = ix.CopyTo(dst, 10)
	assert.Equal(t, 0, n)
	for _, r := range dst {
		assert.Equal(t, InvalidRecord, r)
	}
}

func TestRegister(t *testing.T) {
	ix := newTestIndex(t)

	src := newMemSource("a")
	h1, err := ix.Register(src)
	require.NoError(t, err)
	h2, err := ix.Register(src)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	got, ok := ix.Source(h1)
	require.True(t, ok)
	assert.Same(t, src, got)

	_, err = ix.Register(nil)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestRegisterTooManySources(t *testing.T) {
	ix := newTestIndex(t)
	for i := 0; i < MaxSources; i++ {
		h, err := ix.Register(newMemSource("s"))
		require.NoError(t, err)
		require.True(t, h.IsValid())
	}
	_, err := ix.Register(newMemSource("overflow"))
	assert.ErrorIs(t, err, ErrTooManySources)
}

func TestReadersDuringProcess(t *testing.T) {
	src := newMemSource("a")
	ix := newTestIndex(t, src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		dst := make([]LineRecord, 16)
		for i := 0; i < 2000; i++ {
			n := ix.CopyTo(dst, 0)
			for j := 1; j < n; j++ {
				if dst[j].Timestamp.Before(dst[j-1].Timestamp) {
					t.Errorf("copy out of order at %d", j)
					return
				}
			}
		}
	}()

	for i := 0; i < 200; i++ {
		_, err := ix.Process([]Pending{pend(0, src.add(at(0, 0, 0).Add(time.Duration(i)*time.Second)))})
		require.NoError(t, err)
	}
	<-done
}
