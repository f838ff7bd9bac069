// Package logtail reads log files incrementally and exposes them as merge
// sources.
//
// # Overview
//
// A File remembers how far it has read. Each Poll reads what was appended
// since, splits it into lines and reports the new lines as a
// merge.Modification. The lines stay in memory so the merge index and the
// UI can ask for their columns and text at any time.
//
// # Rotation and Truncation
//
// Poll compares the file identity and size with what it saw last time:
//
//   - a different file at the same path (rotation) yields merge.Reset
//   - a file smaller than the read offset (truncation) yields merge.Reset
//   - a vanished file yields merge.Reset once and nothing after that
//
// After a reset the file is read again from the start.
//
// # Lines
//
// A trailing line without a newline is held back until the newline
// arrives, so a half-written line is never reported. Carriage returns
// before the newline are dropped.
//
// Every line is matched against the configured timestamp layouts (see
// DefaultLayouts). With Options.Multiline set, a line without a timestamp
// belongs to the entry above it and takes over its timestamp and level;
// this keeps stack traces next to the line that caused them. Without it
// such lines form entries of their own and, lacking a timestamp, are left
// out of the merged view.
//
// # Watching
//
// Watcher uses fsnotify on the parent directories of the tailed files and
// signals on Changed after a short debounce. The poller uses it to react
// quickly while still polling on an interval as a fallback for file
// systems without change notifications.
package logtail
