package app

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/five82/tailmerge/internal/merge"
	"github.com/five82/tailmerge/internal/state"
)

// catPage is how many merged lines Cat resolves at a time.
const catPage = 1000

// CatOptions configure Cat output.
type CatOptions struct {
	ShowSource bool
}

// Cat reads every configured file once and writes the merged stream to w.
func Cat(ctx context.Context, opts Options, catOpts CatOptions, w io.Writer) error {
	p, err := setup(opts, false)
	if err != nil {
		return err
	}
	defer p.close()

	poller := NewPoller(p.logger, p.files, p.merged, &state.Store{}, p.cfg.PollInterval, nil)
	// A single poll reads a bounded amount per file; poll until dry.
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cycle, err := poller.Refresh()
		if err != nil {
			return fmt.Errorf("read logs: %w", err)
		}
		if cycle.Read == 0 {
			break
		}
	}

	return writeMerged(ctx, w, p.merged, catOpts)
}

func writeMerged(ctx context.Context, w io.Writer, merged *merge.Merged, opts CatOptions) error {
	out := bufio.NewWriter(w)
	total := merged.Count()
	for from := 0; from < total; from += catPage {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, line := range merged.Lines(from, min(catPage, total-from)) {
			if !line.Record.IsValid() {
				continue
			}
			if opts.ShowSource {
				if _, err := fmt.Fprintf(out, "%s | %s\n", line.SourceName, line.Text); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				continue
			}
			if _, err := fmt.Fprintln(out, line.Text); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
