// Package merge combines independently growing log sources into one
// chronologically ordered stream.
//
// # Overview
//
// Every source is an append-mostly sequence of lines. Each line carries a
// line number, the index of the log entry it belongs to and an optional
// timestamp. The Index keeps one LineRecord per timestamped line of every
// registered source, sorted by time, and after every update reports the
// smallest set of Modifications a reader needs to bring its own copy of the
// merged stream up to date.
//
// # Components
//
//   - handle.go: SourceHandle and the registry mapping handles to sources
//   - record.go: LineRecord, the unit stored by the index
//   - modification.go: the Appended / Invalidated / Reset vocabulary shared
//     by source notifications and merged changes
//   - normalize.go: folds a batch of notifications into its minimal form
//   - changes.go: condenses what one Process call did into a change set
//   - search.go, grouping.go: insertion point and merged entry numbering
//   - index.go: the Index itself
//   - merged.go: Merged, a queue in front of an Index that is also a Source
//
// # Processing a batch
//
//	notifications ──> Normalize ──> fetch columns (no lock held)
//	                                   │
//	                                   v
//	              ┌──────────── write lock ─────────────┐
//	              │ validate ─> resets ─> invalidations  │
//	              │          ─> insert ─> renumber       │
//	              └──────────────────────────────────────┘
//	                                   │
//	                                   v
//	                         []Modification
//
// A batch that violates the source contract is rejected before the index
// changes. Merged reacts to ErrInconsistentAppend by resynchronizing the
// offending source.
//
// # Ordering
//
// Records are ordered by timestamp. A line whose timestamp equals that of
// records already indexed is placed after them, and lines of one batch with
// equal timestamps keep their batch order. Lines without a timestamp are
// never indexed.
//
// Adjacent records of the same source entry share a merged entry index.
// Otherwise the index grows by one from record to record.
//
// # Concurrency
//
// The Index guards its state with a sync.RWMutex. Readers receive copies.
// Sources are never called while the lock is held, so a slow disk cannot
// stall readers. Process must not be called concurrently with itself;
// Merged.Flush takes care of that.
package merge
