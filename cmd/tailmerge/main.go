package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/tailmerge/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tailmerge: %v\n", err)
		return 1
	}
	return 0
}

// rootFlags are shared by the viewer and the cat subcommand.
type rootFlags struct {
	configPath string
	prefsPath  string
	poll       time.Duration
	metrics    string
	logLevel   string
}

func (f *rootFlags) options(paths []string) app.Options {
	return app.Options{
		ConfigPath:   f.configPath,
		PrefsPath:    f.prefsPath,
		PollInterval: f.poll,
		Paths:        paths,
		MetricsAddr:  f.metrics,
		LogLevel:     f.logLevel,
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "tailmerge [file...]",
		Short: "Tail several log files as one time-ordered stream",
		Long: `tailmerge follows any number of log files and shows their lines merged
by timestamp. Files come from the [[source]] tables of the config file and
from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), flags.options(args))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file path (default ~/.config/tailmerge/config.toml)")
	pf.DurationVar(&flags.poll, "poll", 0, "file poll interval, e.g. 250ms (default from config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.Flags().StringVar(&flags.prefsPath, "prefs", "", "preferences file path (default ~/.config/tailmerge/prefs.toml)")
	root.Flags().StringVar(&flags.metrics, "metrics", "", "serve Prometheus metrics on this address, e.g. :9464")

	root.AddCommand(newCatCmd(flags))
	return root
}

func newCatCmd(flags *rootFlags) *cobra.Command {
	var showSource bool
	cmd := &cobra.Command{
		Use:   "cat [file...]",
		Short: "Print the merged stream once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Cat(cmd.Context(), flags.options(args), app.CatOptions{ShowSource: showSource}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&showSource, "source", "s", false, "prefix every line with its source name")
	return cmd
}
