package merge

import (
	"fmt"
	"time"
)

// LineRecord places one line of one source in the merged stream.
type LineRecord struct {
	Source SourceHandle
	// SourceLine is the line's position in its own source.
	SourceLine int
	// OriginalEntry is the entry id the source assigned to the line.
	OriginalEntry int
	// MergedEntry is the entry id in the merged stream's numbering.
	MergedEntry int
	Timestamp   time.Time
}

// InvalidRecord is returned for positions that hold no record.
var InvalidRecord = LineRecord{
	Source:        InvalidHandle,
	SourceLine:    -1,
	OriginalEntry: -1,
	MergedEntry:   -1,
}

// IsValid reports whether r refers to an actual line.
func (r LineRecord) IsValid() bool {
	return r.Source.IsValid()
}

func (r LineRecord) String() string {
	if !r.IsValid() {
		return "LineRecord{invalid}"
	}
	return fmt.Sprintf("LineRecord{source=%s line=%d entry=%d merged=%d ts=%s}",
		r.Source, r.SourceLine, r.OriginalEntry, r.MergedEntry, r.Timestamp.Format(time.RFC3339Nano))
}
