// Package state shares the poller's view of the tailed files with the UI.
//
// # Overview
//
// The poller writes one Poll per cycle into a Store; the UI reads a
// Snapshot whenever it renders. The merged lines themselves live in the
// merge index. The Store only carries what the status bar shows: per-file
// line counts and errors, the merged line count, the latest merged changes
// and the health of the poll loop.
//
//	Producer (Poller):             Consumer (UI):
//	┌────────────────┐            ┌─────────────────┐
//	│ File.Poll()    │            │                 │
//	│ Merged.Flush() │            │                 │
//	│      ↓         │            │                 │
//	│ store.Update() │───────────→│ store.Snapshot()│
//	└────────────────┘  (mutex)   └─────────────────┘
//
// # Update Semantics
//
// A successful Update replaces sources and counts and clears LastError.
// Generation only grows when the cycle changed the merged stream, so the UI
// can skip re-rendering idle cycles. A failed Update keeps the previous
// data, records the error and counts consecutive failures; IsDegraded
// reports two or more in a row.
//
// # Copying
//
// Update and Snapshot copy slices and wrap the error so neither side can
// mutate what the other holds.
//
// The zero Store is ready to use.
package state
