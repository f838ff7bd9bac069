// Package app provides the orchestration layer for tailmerge.
//
// # Overview
//
// This package wires together configuration, logging, the tailed files, the
// merged stream, polling and the UI. It is the composition root where all
// dependencies are initialized and connected.
//
// # Architecture
//
// Run follows a simple initialization pattern:
//
//  1. Load ~/.config/tailmerge/config.toml and add files from the command line
//  2. Open the log file for the process logger
//  3. Open a logtail.File per source and a merge.Merged over all of them
//  4. Watch the files' directories with fsnotify
//  5. Poll once so the first frame has content
//  6. Run watcher, poller, metrics server and TUI in one errgroup
//
// Leaving the TUI cancels the group's context, which stops everything else.
//
// # Components
//
//   - app.go: Run, shared setup and the metrics endpoint
//   - poller.go: Poller, the read-merge-publish cycle and its backoff
//   - cat.go: Cat, which prints the merged stream once without a TUI
//
// # Data Flow
//
//	┌──────────────┐  wake   ┌─────────────────────────────────────┐
//	│ logtail.     │────────>│ Poller.Refresh()                    │
//	│ Watcher      │         │   File.Poll() ──> Merged.Notify()   │
//	└──────────────┘         │   Merged.Flush()                    │
//	                         │   state.Store.Update()              │
//	                         └───────────────┬─────────────────────┘
//	                                         │
//	                          ┌──────────────┴──────────────┐
//	                          v                             v
//	                   Merged.Lines()              Store.Snapshot()
//	                          └──────────> ui ─────────────┘
//
// # Polling and Backoff
//
// The poller runs a cycle every poll interval and whenever the watcher
// signals. A cycle fails when the merge rejects a batch or when none of the
// files can be read; a single unreadable file only shows up in its source
// status. After consecutive failures the wait doubles per failure, capped at
// 30 seconds, and returns to the poll interval after the next success.
//
// # Metrics
//
// With metrics_addr set (or --metrics), Prometheus metrics of the merge index
// are served at /metrics on that address.
package app
