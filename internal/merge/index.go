package merge

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Index keeps the merged, time-ordered sequence of lines of its sources.
//
// Process is the only mutating call besides Register and Clear and must
// come from one writer at a time. Readers may call Get, CopyTo, At and Count
// concurrently; they receive copies.
type Index struct {
	logger logrus.FieldLogger

	mu      sync.RWMutex
	records []LineRecord
	sources registry
}

// NewIndex creates an index and registers sources in order, so the i-th
// source receives handle i.
func NewIndex(logger logrus.FieldLogger, sources ...Source) (*Index, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ix := &Index{
		logger:  logger.WithField("component", "merge_index"),
		sources: newRegistry(),
	}
	for _, src := range sources {
		if _, err := ix.sources.register(src); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Register adds src to the index and returns its handle. Registering a
// source twice returns the existing handle.
func (ix *Index) Register(src Source) (SourceHandle, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.sources.register(src)
}

// Handle returns the handle src was registered under.
func (ix *Index) Handle(src Source) (SourceHandle, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.sources.handle(src)
}

// Source returns the source registered under h.
func (ix *Index) Source(h SourceHandle) (Source, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.sources.lookup(h)
	if !ok {
		return nil, false
	}
	return e.source, true
}

// Sources returns the registered sources in handle order.
func (ix *Index) Sources() []Source {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Source, 0, ix.sources.len())
	for _, e := range ix.sources.entries {
		out = append(out, e.source)
	}
	return out
}

// Count returns the number of merged lines.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// At returns the record at pos or InvalidRecord.
func (ix *Index) At(pos int) LineRecord {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if pos < 0 || pos >= len(ix.records) {
		return InvalidRecord
	}
	return ix.records[pos]
}

// Get returns count records starting at from. Positions without a record
// hold InvalidRecord.
func (ix *Index) Get(from, count int) []LineRecord {
	if count <= 0 {
		return nil
	}
	dst := make([]LineRecord, count)
	ix.CopyTo(dst, from)
	return dst
}

// CopyTo fills dst with the records starting at from and returns how many
// of them are valid. Slots without a record receive InvalidRecord.
func (ix *Index) CopyTo(dst []LineRecord, from int) int {
	lead := 0
	if from < 0 {
		lead = min(-from, len(dst))
		from = 0
	}

	ix.mu.RLock()
	n := 0
	if from < len(ix.records) {
		n = copy(dst[lead:], ix.records[from:])
	}
	ix.mu.RUnlock()

	for i := 0; i < lead; i++ {
		dst[i] = InvalidRecord
	}
	for i := lead + n; i < len(dst); i++ {
		dst[i] = InvalidRecord
	}
	return n
}

// Clear drops every record and every registered source and releases the
// backing storage.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.records = nil
	ix.sources.reset()
}

// section is a normalized notification together with the column data it
// needs, fetched before the index is locked.
type section struct {
	pending Pending
	columns Columns
}

// Process applies a batch of source notifications and returns the changes
// of the merged stream. The batch is applied entirely or, when it violates
// the source contract, not at all.
func (ix *Index) Process(batch []Pending) ([]Modification, error) {
	start := time.Now()

	normalized, err := Normalize(batch)
	if err != nil {
		rejectedBatches.WithLabelValues("invalid_range").Inc()
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	sections, err := ix.fetch(normalized)
	if err != nil {
		rejectedBatches.WithLabelValues("unknown_source").Inc()
		return nil, err
	}
	candidates := buildCandidates(sections)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	next, err := ix.validateLocked(sections)
	if err != nil {
		reason := "unknown_source"
		if errors.Is(err, ErrInconsistentAppend) {
			reason = "inconsistent_append"
		}
		rejectedBatches.WithLabelValues(reason).Inc()
		return nil, err
	}

	acc := newChangeAccumulator(len(ix.records), ix.logger)
	dirty := -1
	lower := func(pos int) {
		if pos >= 0 && (dirty < 0 || pos < dirty) {
			dirty = pos
		}
	}

	for _, s := range sections {
		if s.pending.Modification.IsReset() {
			lower(ix.removeLocked(s.pending.Source, 0, acc))
		}
	}
	for _, s := range sections {
		if m := s.pending.Modification; m.IsInvalidated() {
			lower(ix.removeLocked(s.pending.Source, m.From, acc))
		}
	}
	lower(ix.insertLocked(candidates, acc))

	if dirty >= 0 {
		renumberEntries(ix.records, dirty)
	}
	for h, n := range next {
		if e, ok := ix.sources.lookup(h); ok {
			e.next = n
		}
	}

	changes, err := acc.Changes()
	if err != nil {
		// The records are consistent; only the diff is not. Observers
		// start over.
		ix.logger.WithError(err).Error("cannot describe merge changes, publishing a reset")
		changes = []Modification{Reset()}
		if len(ix.records) > 0 {
			changes = append(changes, Appended(0, len(ix.records)))
		}
	}

	elapsed := time.Since(start)
	processDuration.Observe(elapsed.Seconds())
	processedLines.Add(float64(len(candidates)))
	for _, c := range changes {
		emittedChanges.WithLabelValues(c.Kind.String()).Inc()
	}
	ix.logger.WithField("modifications", len(normalized)).
		WithField("lines", len(candidates)).
		WithField("took", elapsed).
		Debug("processed merge batch")

	return changes, nil
}

// fetch resolves the sources of all appends and reads their columns. No lock
// is held while a source is called.
func (ix *Index) fetch(batch []Pending) ([]section, error) {
	sources := make([]Source, len(batch))
	ix.mu.RLock()
	for i, p := range batch {
		e, ok := ix.sources.lookup(p.Source)
		if !ok {
			ix.mu.RUnlock()
			return nil, fmt.Errorf("source %s: %w", p.Source, ErrUnknownSource)
		}
		if p.Modification.IsAppended() {
			sources[i] = e.source
		}
	}
	ix.mu.RUnlock()

	sections := make([]section, len(batch))
	for i, p := range batch {
		sections[i].pending = p
		if src := sources[i]; src != nil {
			sections[i].columns = src.Columns(p.Modification.From, p.Modification.Count)
		}
	}
	return sections, nil
}

// buildCandidates turns appended lines into records, skipping lines without
// a timestamp, and sorts them by time. Ties keep batch order.
func buildCandidates(sections []section) []LineRecord {
	var candidates []LineRecord
	for _, s := range sections {
		cols := s.columns
		for i := 0; i < cols.Len(); i++ {
			if cols.Index[i] < 0 || cols.Entry[i] < 0 || cols.Timestamp[i].IsZero() {
				continue
			}
			candidates = append(candidates, LineRecord{
				Source:        s.pending.Source,
				SourceLine:    cols.Index[i],
				OriginalEntry: cols.Entry[i],
				MergedEntry:   -1,
				Timestamp:     cols.Timestamp[i],
			})
		}
	}
	slices.SortStableFunc(candidates, func(a, b LineRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return candidates
}

// validateLocked checks the batch against the registry and returns the next
// expected line per source once the batch is applied.
func (ix *Index) validateLocked(sections []section) (map[SourceHandle]int, error) {
	next := make(map[SourceHandle]int)
	for _, s := range sections {
		h := s.pending.Source
		e, ok := ix.sources.lookup(h)
		if !ok {
			return nil, fmt.Errorf("source %s: %w", h, ErrUnknownSource)
		}
		n, seen := next[h]
		if !seen {
			n = e.next
		}
		switch m := s.pending.Modification; m.Kind {
		case KindReset:
			n = 0
		case KindInvalidated:
			n = min(n, m.From)
		case KindAppended:
			if m.From < n {
				return nil, &InconsistentAppendError{Source: h, From: m.From, Expected: n}
			}
			if m.From > n {
				ix.logger.WithField("source", h.String()).WithField("from", m.From).WithField("expected", n).
					Debug("source skipped lines")
			}
			n = m.End()
		}
		next[h] = n
	}
	return next, nil
}

// removeLocked drops the records of h from source line from onwards and
// returns the first position affected, or -1.
func (ix *Index) removeLocked(h SourceHandle, from int, acc *changeAccumulator) int {
	first := slices.IndexFunc(ix.records, func(r LineRecord) bool {
		return r.Source == h && r.SourceLine >= from
	})
	if first < 0 {
		ix.logger.WithField("source", h.String()).WithField("from", from).
			Debug("no merged lines to invalidate")
		return -1
	}

	kept := first
	for _, r := range ix.records[first:] {
		if r.Source == h && r.SourceLine >= from {
			continue
		}
		ix.records[kept] = r
		kept++
	}
	clear(ix.records[kept:])
	ix.records = ix.records[:kept]

	if kept == 0 {
		acc.Reset()
		return 0
	}
	acc.RemoveFrom(first)
	acc.Append(first, kept-first)
	return first
}

// insertLocked places sorted candidates into the sequence and returns the
// first position that was not a plain append, or -1.
func (ix *Index) insertLocked(candidates []LineRecord, acc *changeAccumulator) int {
	base := len(ix.records)

	i := 0
	for ; i < len(candidates); i++ {
		n := len(ix.records)
		if n > 0 && candidates[i].Timestamp.Before(ix.records[n-1].Timestamp) {
			break
		}
		c := candidates[i]
		c.MergedEntry = mergedEntryIndex(ix.records, n, c)
		ix.records = append(ix.records, c)
	}

	dirty := -1
	if i < len(candidates) {
		// Candidates are sorted, so every later one lands at or after the
		// first insertion point: one invalidation covers the whole batch.
		dirty = insertionPoint(ix.records, candidates[i].Timestamp)
		ix.records = mergeTail(ix.records, dirty, candidates[i:])
	}

	from := base
	if dirty >= 0 && dirty < base {
		acc.RemoveFrom(dirty)
		from = dirty
	}
	acc.Append(from, len(ix.records)-from)
	return dirty
}

// mergeTail merges sorted candidates into records[pos:]. Existing records win
// ties, which matches inserting each candidate at its insertion point in
// turn. Merged entry indices of the tail are left for the caller.
func mergeTail(records []LineRecord, pos int, candidates []LineRecord) []LineRecord {
	tail := slices.Clone(records[pos:])
	out := slices.Grow(records[:pos], len(tail)+len(candidates))

	i, j := 0, 0
	for i < len(tail) && j < len(candidates) {
		if candidates[j].Timestamp.Before(tail[i].Timestamp) {
			out = append(out, candidates[j])
			j++
		} else {
			out = append(out, tail[i])
			i++
		}
	}
	out = append(out, tail[i:]...)
	out = append(out, candidates[j:]...)
	return out
}
