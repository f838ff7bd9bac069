package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/tailmerge/internal/logtail"
	"github.com/five82/tailmerge/internal/merge"
	"github.com/five82/tailmerge/internal/state"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	maxBackoff          = 30 * time.Second
)

// errAllSourcesFailed marks a cycle in which no file could be read.
var errAllSourcesFailed = errors.New("no log file could be read")

// Poller reads the tailed files, feeds their changes to the merged stream
// and publishes the result to the store.
type Poller struct {
	logger   logrus.FieldLogger
	files    []*logtail.File
	merged   *merge.Merged
	store    *state.Store
	interval time.Duration
	wake     <-chan struct{}
}

// NewPoller creates a poller. wake may be nil; a value on it triggers an
// immediate cycle.
func NewPoller(logger logrus.FieldLogger, files []*logtail.File, merged *merge.Merged, store *state.Store, interval time.Duration, wake <-chan struct{}) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		logger:   logger.WithField("component", "poller"),
		files:    files,
		merged:   merged,
		store:    store,
		interval: interval,
		wake:     wake,
	}
}

// Run refreshes until ctx is done. Repeated failures stretch the interval
// up to maxBackoff.
func (p *Poller) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		case <-p.wake:
		}

		if _, err := p.Refresh(); err != nil {
			p.logger.WithError(err).Warn("poll failed")
		}
		failures := p.store.Snapshot().ConsecutiveFailures
		timer.Reset(calculateBackoff(failures, p.interval))
	}
}

// Cycle summarizes one Refresh.
type Cycle struct {
	// Read counts the modifications the files reported.
	Read int
	// Changes are the resulting changes of the merged stream.
	Changes []merge.Modification
}

// Refresh runs one cycle.
func (p *Poller) Refresh() (Cycle, error) {
	var cycle Cycle
	statuses := make([]state.SourceStatus, len(p.files))
	failed := 0
	for i, f := range p.files {
		statuses[i] = state.SourceStatus{Name: f.Name(), Path: f.Path()}

		mods, err := f.Poll()
		if err != nil {
			failed++
			statuses[i].Err = err
			p.logger.WithError(err).WithField("file", f.Path()).Debug("read failed")
		}
		if len(mods) > 0 {
			cycle.Read += len(mods)
			if err := p.merged.Notify(f, mods...); err != nil {
				return cycle, fmt.Errorf("notify merge: %w", err)
			}
		}
		statuses[i].Lines = f.Count()
	}

	changes, err := p.merged.Flush()
	cycle.Changes = changes
	if err == nil && failed > 0 && failed == len(p.files) {
		err = errAllSourcesFailed
	}
	p.store.Update(state.Poll{
		Sources:     statuses,
		MergedLines: p.merged.Count(),
		Changes:     changes,
	}, err)
	return cycle, err
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
