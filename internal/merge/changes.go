package merge

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// changeAccumulator records what one Process call did to the merged stream
// and condenses it into at most one reset or invalidation plus one append.
type changeAccumulator struct {
	logger logrus.FieldLogger

	initial int
	count   int
	reset   bool
	// invalidFrom is the lowest position of previously published content
	// that changed, or -1.
	invalidFrom int
	err         error
}

func newChangeAccumulator(initial int, logger logrus.FieldLogger) *changeAccumulator {
	return &changeAccumulator{
		logger:      logger,
		initial:     initial,
		count:       initial,
		invalidFrom: -1,
	}
}

// Reset records that the stream was emptied.
func (c *changeAccumulator) Reset() {
	c.reset = true
	c.invalidFrom = -1
	c.count = 0
}

// RemoveFrom records that every line from first onwards was taken away.
func (c *changeAccumulator) RemoveFrom(first int) {
	if first >= c.count {
		c.logger.WithField("from", first).WithField("count", c.count).
			Debug("ignoring invalidation past the end of the merged stream")
		return
	}
	if !c.reset && first < c.initial && (c.invalidFrom < 0 || first < c.invalidFrom) {
		c.invalidFrom = first
	}
	c.count = first
}

// Append records count lines written at from.
func (c *changeAccumulator) Append(from, count int) {
	if count <= 0 {
		return
	}
	if from > c.count {
		if c.err == nil {
			c.err = fmt.Errorf("append at %d leaves a gap after %d: %w", from, c.count, ErrInconsistentAppend)
		}
		return
	}
	if from < c.count {
		c.RemoveFrom(from)
	}
	c.count = from + count
}

// Changes returns the condensed change set.
func (c *changeAccumulator) Changes() ([]Modification, error) {
	if c.err != nil {
		return nil, c.err
	}
	switch {
	case c.reset:
		if c.count == 0 {
			return []Modification{Reset()}, nil
		}
		return []Modification{Reset(), Appended(0, c.count)}, nil
	case c.invalidFrom >= 0:
		changes := []Modification{Invalidated(c.invalidFrom, c.initial-c.invalidFrom)}
		if c.count > c.invalidFrom {
			changes = append(changes, Appended(c.invalidFrom, c.count-c.invalidFrom))
		}
		return changes, nil
	case c.count > c.initial:
		return []Modification{Appended(c.initial, c.count-c.initial)}, nil
	}
	return nil, nil
}
