// Package config loads the tailmerge configuration file.
//
// # Overview
//
// The configuration names the log files to merge and tunes the poller. Every
// key is optional; files can also be given on the command line.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/tailmerge/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or blank, use defaults
//
// # Default Values
//
//   - Poll interval: 500ms (values below 10ms are raised to 10ms)
//   - Max batch lines: 5000
//   - Log level: info
//   - Log file: ~/.local/state/tailmerge/tailmerge.log
//   - Metrics: disabled
//
// # TOML Format
//
//	poll_interval = "500ms"
//	max_batch_lines = 5000
//	metrics_addr = "127.0.0.1:9464"
//	log_level = "info"
//	log_file = "~/.local/state/tailmerge/tailmerge.log"
//
//	[[source]]
//	path = "/var/log/api/api.log"
//	name = "api"
//	timestamp_layouts = ["2006-01-02 15:04:05.000"]
//	location = "Europe/Berlin"
//	multiline = true
//
// A source without timestamp_layouts uses logtail.DefaultLayouts. location
// applies to timestamps that carry no zone and defaults to the local zone.
// multiline defaults to true.
//
// # Path Expansion
//
// Source paths and log_file accept:
//
//   - Absolute paths: used as-is
//   - Tilde paths: expanded to the home directory
//   - Relative paths: made absolute against the working directory
//
// # Error Handling
//
// A missing file is not an error. Unreadable files, TOML syntax errors,
// malformed durations, unknown time zones and sources without a path are
// returned wrapped with the failing step.
package config
