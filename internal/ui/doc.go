// Package ui provides the terminal viewer for tailmerge.
//
// # Architecture Overview
//
// The viewer is a Bubble Tea program showing one merged, time-ordered stream
// of log lines. It is read-only: all data comes from a *merge.Merged that the
// poller in internal/app keeps up to date, plus a state.Store with the poller
// status.
//
// # Package Structure
//
//   - model.go: Model, Update loop, key handling and Run
//   - view.go: Header, log body and status bar rendering
//   - help.go: Help overlay built from the key map
//   - keys.go: Key bindings (bubbles/key), also used by bubbles/help
//   - theme.go: Color themes with level and source palettes
//   - style_helpers.go: BgStyle for gap-free backgrounds
//   - strings.go: Truncation and formatting helpers
//
// # Virtualized Rendering
//
// The model never copies the merged stream. It keeps the position of the
// first visible line and, whenever the stream or the window size changes,
// resolves only the visible rows through Merged.Lines. In follow mode the
// window is pinned to the end of the stream; any scrolling leaves follow mode
// and G re-enters it.
//
// # Updates
//
// Two message sources drive the model:
//
//   - A listener on the merged stream signals a buffered channel; a command
//     waiting on it turns each signal into a reload.
//   - A ticker re-reads the state.Store snapshot for the header (source
//     count, failing sources, poll errors).
//
// # Preferences
//
// Theme, follow mode and the source column are saved to the preferences file
// whenever they are toggled.
package ui
