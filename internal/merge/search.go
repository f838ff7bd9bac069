package merge

import (
	"sort"
	"time"
)

// insertionPoint returns where a line stamped ts belongs: after every record
// stamped at or before ts, so equal timestamps keep their arrival order.
func insertionPoint(records []LineRecord, ts time.Time) int {
	n := len(records)
	if n == 0 {
		return 0
	}
	// Well-ordered input mostly lands at the end.
	if !ts.Before(records[n-1].Timestamp) {
		return n
	}
	return sort.Search(n, func(i int) bool {
		return records[i].Timestamp.After(ts)
	})
}
