package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the tailmerge configuration.
type Config struct {
	PollInterval  time.Duration
	MaxBatchLines int
	MetricsAddr   string
	LogLevel      string
	LogFile       string
	Sources       []Source
}

// Source describes one log file to merge.
type Source struct {
	Path             string
	Name             string
	TimestampLayouts []string
	Location         *time.Location
	Multiline        bool
}

const (
	defaultConfigPath    = "~/.config/tailmerge/config.toml"
	defaultLogFile       = "~/.local/state/tailmerge/tailmerge.log"
	defaultPollInterval  = 500 * time.Millisecond
	defaultMaxBatchLines = 5000
	minPollInterval      = 10 * time.Millisecond
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		PollInterval:  defaultPollInterval,
		MaxBatchLines: defaultMaxBatchLines,
		LogLevel:      "info",
		LogFile:       mustExpand(defaultLogFile),
	}
}

type rawSource struct {
	Path             string   `toml:"path"`
	Name             string   `toml:"name"`
	TimestampLayouts []string `toml:"timestamp_layouts"`
	Location         string   `toml:"location"`
	Multiline        *bool    `toml:"multiline"`
}

type rawConfig struct {
	PollInterval  string      `toml:"poll_interval"`
	MaxBatchLines int         `toml:"max_batch_lines"`
	MetricsAddr   string      `toml:"metrics_addr"`
	LogLevel      string      `toml:"log_level"`
	LogFile       string      `toml:"log_file"`
	Sources       []rawSource `toml:"source"`
}

// Load locates and parses the tailmerge config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.PollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = max(d, minPollInterval)
	}
	if raw.MaxBatchLines > 0 {
		cfg.MaxBatchLines = raw.MaxBatchLines
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}

	for i, rs := range raw.Sources {
		src, err := parseSource(rs)
		if err != nil {
			return Config{}, fmt.Errorf("source %d: %w", i+1, err)
		}
		cfg.Sources = append(cfg.Sources, src)
	}

	return cfg, nil
}

func parseSource(rs rawSource) (Source, error) {
	path := strings.TrimSpace(rs.Path)
	if path == "" {
		return Source{}, fmt.Errorf("path is empty")
	}
	expanded, err := expandPath(path)
	if err != nil {
		return Source{}, err
	}

	src := Source{
		Path:      expanded,
		Name:      strings.TrimSpace(rs.Name),
		Multiline: true,
	}
	if rs.Multiline != nil {
		src.Multiline = *rs.Multiline
	}
	for _, layout := range rs.TimestampLayouts {
		if layout = strings.TrimSpace(layout); layout != "" {
			src.TimestampLayouts = append(src.TimestampLayouts, layout)
		}
	}
	if loc := strings.TrimSpace(rs.Location); loc != "" {
		l, err := time.LoadLocation(loc)
		if err != nil {
			return Source{}, fmt.Errorf("load location: %w", err)
		}
		src.Location = l
	}
	return src, nil
}

// SourcesFromPaths builds sources for files given on the command line.
func SourcesFromPaths(paths []string) ([]Source, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		src, err := parseSource(rawSource{Path: p})
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", p, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
