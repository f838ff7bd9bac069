package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/five82/tailmerge/internal/config"
	"github.com/five82/tailmerge/internal/logging"
	"github.com/five82/tailmerge/internal/logtail"
	"github.com/five82/tailmerge/internal/merge"
	"github.com/five82/tailmerge/internal/prefs"
	"github.com/five82/tailmerge/internal/state"
	"github.com/five82/tailmerge/internal/ui"
)

// ErrNoSources is returned when neither the config nor the command line
// names a file.
var ErrNoSources = errors.New("no log files to merge")

// Options configure the tailmerge application.
type Options struct {
	ConfigPath   string
	PrefsPath    string        // empty uses default ~/.config/tailmerge/prefs.toml
	PollInterval time.Duration // zero uses the configured interval
	Paths        []string      // files in addition to the configured ones
	MetricsAddr  string        // overrides metrics_addr
	LogLevel     string        // overrides log_level
}

// pipeline is everything between the files and the viewer.
type pipeline struct {
	cfg    config.Config
	logger *logrus.Logger
	files  []*logtail.File
	merged *merge.Merged
	close  func() error
}

func setup(opts Options, logFile bool) (*pipeline, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.PollInterval > 0 {
		cfg.PollInterval = opts.PollInterval
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	extra, err := config.SourcesFromPaths(opts.Paths)
	if err != nil {
		return nil, err
	}
	cfg.Sources = append(cfg.Sources, extra...)
	if len(cfg.Sources) == 0 {
		return nil, ErrNoSources
	}

	logCfg := logging.Config{Level: cfg.LogLevel}
	if logFile {
		logCfg.File = cfg.LogFile
	}
	logger, closeLog, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	files := make([]*logtail.File, len(cfg.Sources))
	sources := make([]merge.Source, len(cfg.Sources))
	for i, src := range cfg.Sources {
		files[i] = logtail.Open(src.Path, logtail.Options{
			Name:      src.Name,
			Layouts:   src.TimestampLayouts,
			Location:  src.Location,
			Multiline: src.Multiline,
			Logger:    logger,
		})
		sources[i] = files[i]
	}

	merged, err := merge.NewMerged(logger, sources, merge.WithMaxBatchLines(cfg.MaxBatchLines))
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("init merge: %w", err)
	}

	return &pipeline{cfg: cfg, logger: logger, files: files, merged: merged, close: closeLog}, nil
}

func (p *pipeline) paths() []string {
	out := make([]string, len(p.files))
	for i, f := range p.files {
		out[i] = f.Path()
	}
	return out
}

// Run boots the tailmerge TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	p, err := setup(opts, true)
	if err != nil {
		return err
	}
	defer p.close()

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, _ := prefs.Load(prefsPath)
	store := &state.Store{}

	watcher, err := logtail.NewWatcher(p.logger, p.paths(), 0)
	if err != nil {
		// Polling still works without notifications.
		p.logger.WithError(err).Warn("file watching unavailable")
	}
	var wake <-chan struct{}
	if watcher != nil {
		defer watcher.Close()
		wake = watcher.Changed()
	}

	poller := NewPoller(p.logger, p.files, p.merged, store, p.cfg.PollInterval, wake)

	// Populate the store before the UI draws its first frame.
	if _, err := poller.Refresh(); err != nil {
		p.logger.WithError(err).Warn("initial poll failed")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if watcher != nil {
		g.Go(func() error {
			watcher.Run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		return poller.Run(ctx)
	})
	if p.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, p.cfg.MetricsAddr, p.logger)
		})
	}
	g.Go(func() error {
		defer cancel()
		return ui.Run(ctx, ui.Options{
			Merged:    p.merged,
			Store:     store,
			Prefs:     userPrefs,
			PrefsPath: prefsPath,
			Logger:    p.logger,
		})
	})

	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string, logger logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
