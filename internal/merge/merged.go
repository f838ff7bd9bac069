package merge

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxBatchLines bounds the appended lines handed to one Process call,
// which bounds how long readers wait for the index lock.
const DefaultMaxBatchLines = 5000

// maxResyncAttempts bounds how often one Flush resynchronizes sources that
// keep breaking the append contract.
const maxResyncAttempts = 3

// Listener receives the changes of a merged stream after each batch.
type Listener func(changes []Modification)

// Line is a merged line resolved against its source.
type Line struct {
	Record     LineRecord
	Text       string
	SourceName string
}

// Merged queues source notifications, feeds them to an Index in batches and
// republishes the resulting changes. A Merged is itself a Source, so merged
// streams can be merged again.
type Merged struct {
	logger        logrus.FieldLogger
	index         *Index
	name          string
	maxBatchLines int

	mu        sync.Mutex
	pending   []Pending
	listeners []Listener

	// flushMu makes Flush the single writer of index.
	flushMu sync.Mutex
}

// MergedOption configures a Merged.
type MergedOption func(*Merged)

// WithName sets the display name of the merged stream.
func WithName(name string) MergedOption {
	return func(m *Merged) { m.name = name }
}

// WithMaxBatchLines overrides DefaultMaxBatchLines.
func WithMaxBatchLines(n int) MergedOption {
	return func(m *Merged) {
		if n > 0 {
			m.maxBatchLines = n
		}
	}
}

// NewMerged creates a merged stream over sources.
func NewMerged(logger logrus.FieldLogger, sources []Source, opts ...MergedOption) (*Merged, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	index, err := NewIndex(logger, sources...)
	if err != nil {
		return nil, fmt.Errorf("create merge index: %w", err)
	}
	m := &Merged{
		logger:        logger.WithField("component", "merged_source"),
		index:         index,
		name:          "merged",
		maxBatchLines: DefaultMaxBatchLines,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Index exposes the underlying merge index for readers.
func (m *Merged) Index() *Index {
	return m.index
}

// Add registers another source.
func (m *Merged) Add(src Source) (SourceHandle, error) {
	return m.index.Register(src)
}

// AddListener subscribes fn to future changes.
func (m *Merged) AddListener(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Notify queues modifications reported by src. They take effect on the next
// Flush.
func (m *Merged) Notify(src Source, mods ...Modification) error {
	h, ok := m.index.Handle(src)
	if !ok {
		return fmt.Errorf("notify: %w", ErrUnknownSource)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mod := range mods {
		m.pending = append(m.pending, Pending{Source: h, Modification: mod})
	}
	return nil
}

// Pending returns the number of queued notifications.
func (m *Merged) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush processes every queued notification and returns the changes of the
// merged stream, in order. A batch the index rejects is logged and dropped;
// the first such error is returned after the queue is drained.
func (m *Merged) Flush() ([]Modification, error) {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	var (
		all      []Modification
		firstErr error
		resyncs  int
	)
	for {
		batch := m.dequeue()
		if len(batch) == 0 {
			break
		}

		changes, err := m.index.Process(batch)
		var inconsistent *InconsistentAppendError
		switch {
		case errors.As(err, &inconsistent) && resyncs < maxResyncAttempts:
			resyncs++
			m.logger.WithError(err).WithField("source", inconsistent.Source.String()).
				Warn("source broke the append contract, resynchronizing it")
			m.resync(batch, inconsistent.Source)
			continue
		case err != nil:
			m.logger.WithError(err).WithField("modifications", len(batch)).
				Error("dropping merge batch")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if len(changes) > 0 {
			all = append(all, changes...)
			m.notify(changes)
		}
	}
	return all, firstErr
}

// dequeue takes queued notifications until they carry maxBatchLines
// appended lines.
func (m *Merged) dequeue() []Pending {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines, n := 0, 0
	for n < len(m.pending) {
		p := m.pending[n]
		n++
		if p.Modification.IsAppended() {
			lines += p.Modification.Count
		}
		if lines >= m.maxBatchLines {
			break
		}
	}
	batch := make([]Pending, n)
	copy(batch, m.pending[:n])
	m.pending = append(m.pending[:0:0], m.pending[n:]...)
	return batch
}

// resync puts batch back in front of the queue with everything it, or the
// rest of the queue, says about h replaced by a reset followed by the
// source's full content.
func (m *Merged) resync(batch []Pending, h SourceHandle) {
	// Notifications queued before the count is read are covered by it.
	m.mu.Lock()
	covered := len(m.pending)
	m.mu.Unlock()

	count := 0
	if src, ok := m.index.Source(h); ok {
		count = src.Count()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	queue := make([]Pending, 0, len(batch)+len(m.pending)+2)
	for _, p := range batch {
		if p.Source != h {
			queue = append(queue, p)
		}
	}
	queue = append(queue, Pending{Source: h, Modification: Reset()})
	if count > 0 {
		queue = append(queue, Pending{Source: h, Modification: Appended(0, count)})
	}
	// Only Flush dequeues, so the first covered entries are unchanged.
	for i, p := range m.pending {
		if p.Source != h || i >= covered {
			queue = append(queue, p)
		}
	}
	m.pending = queue
}

func (m *Merged) notify(changes []Modification) {
	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(changes)
	}
}

// Close drops the merged content and the source registry.
func (m *Merged) Close() {
	m.mu.Lock()
	m.pending = nil
	m.listeners = nil
	m.mu.Unlock()
	m.index.Clear()
}

// Name implements NamedSource.
func (m *Merged) Name() string {
	return m.name
}

// Count implements Source.
func (m *Merged) Count() int {
	return m.index.Count()
}

// Columns implements Source. The merged stream numbers its lines by
// position and its entries by merged entry index.
func (m *Merged) Columns(from, count int) Columns {
	if count <= 0 {
		return Columns{}
	}
	records := m.index.Get(from, count)
	cols := NewColumns(count)
	for i, r := range records {
		if !r.IsValid() {
			cols.Index[i] = -1
			cols.Entry[i] = -1
			continue
		}
		cols.Index[i] = from + i
		cols.Entry[i] = r.MergedEntry
		cols.Timestamp[i] = r.Timestamp
	}
	return cols
}

// Text implements TextSource.
func (m *Merged) Text(line int) string {
	r := m.index.At(line)
	if !r.IsValid() {
		return ""
	}
	src, ok := m.index.Source(r.Source)
	if !ok {
		return ""
	}
	if ts, ok := src.(TextSource); ok {
		return ts.Text(r.SourceLine)
	}
	return ""
}

// Records returns count records starting at from.
func (m *Merged) Records(from, count int) []LineRecord {
	return m.index.Get(from, count)
}

// Lines resolves count merged lines starting at from. Text and names come
// from the sources and are read after the index lock is released.
func (m *Merged) Lines(from, count int) []Line {
	records := m.index.Get(from, count)
	lines := make([]Line, len(records))
	for i, r := range records {
		lines[i].Record = r
		if !r.IsValid() {
			continue
		}
		src, ok := m.index.Source(r.Source)
		if !ok {
			continue
		}
		if ts, ok := src.(TextSource); ok {
			lines[i].Text = ts.Text(r.SourceLine)
		}
		if ns, ok := src.(NamedSource); ok {
			lines[i].SourceName = ns.Name()
		}
	}
	return lines
}

// Span returns the timestamps of the first and last merged line.
func (m *Merged) Span() (first, last time.Time, ok bool) {
	n := m.index.Count()
	if n == 0 {
		return time.Time{}, time.Time{}, false
	}
	a, b := m.index.At(0), m.index.At(n-1)
	if !a.IsValid() || !b.IsValid() {
		return time.Time{}, time.Time{}, false
	}
	return a.Timestamp, b.Timestamp, true
}
