package state

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/tailmerge/internal/merge"
)

// SourceStatus describes one tailed file after the latest poll.
type SourceStatus struct {
	Name  string
	Path  string
	Lines int
	Err   error
}

// Poll is what one poller cycle produced.
type Poll struct {
	Sources     []SourceStatus
	MergedLines int
	Changes     []merge.Modification
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Sources     []SourceStatus
	MergedLines int
	// LastChanges are the merged changes of the latest cycle that had any.
	LastChanges []merge.Modification
	// Generation grows every time the merged stream changes.
	Generation          uint64
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsDegraded returns true when polling has failed several times in a row.
func (s Snapshot) IsDegraded() bool {
	return s.ConsecutiveFailures >= 2
}

// FailingSources returns the number of sources whose last poll failed.
func (s Snapshot) FailingSources() int {
	n := 0
	for _, src := range s.Sources {
		if src.Err != nil {
			n++
		}
	}
	return n
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records a poller cycle. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(poll Poll, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Sources = cloneSources(poll.Sources)
	s.snapshot.MergedLines = poll.MergedLines
	if len(poll.Changes) > 0 {
		s.snapshot.LastChanges = slices.Clone(poll.Changes)
		s.snapshot.Generation++
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Sources = cloneSources(s.snapshot.Sources)
	snap.LastChanges = slices.Clone(s.snapshot.LastChanges)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneSources(sources []SourceStatus) []SourceStatus {
	if len(sources) == 0 {
		return nil
	}
	dup := make([]SourceStatus, len(sources))
	copy(dup, sources)
	return dup
}
