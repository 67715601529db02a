package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/five82/reel/internal/config"
	"github.com/five82/reel/internal/history"
)

// HistoryOptions configure the history listing.
type HistoryOptions struct {
	ConfigPath string
	Limit      int
	JSON       bool
	Stdout     io.Writer
}

// History prints the most recent stored outcomes, newest batch first.
func History(ctx context.Context, opts HistoryOptions) error {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, opts.Limit)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(stdout)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("encode entry: %w", err)
			}
		}
		return nil
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(stdout, "no history yet")
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tBATCH\t#\tMODEL\tRESULT\tELAPSED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			e.RecordedAt.Format("2006-01-02 15:04"),
			shortBatch(e.BatchID),
			e.Index,
			e.Model,
			result(e),
			(time.Duration(e.ElapsedMS) * time.Millisecond).Round(time.Second),
		)
	}
	return tw.Flush()
}

func result(e history.Entry) string {
	switch {
	case e.OK():
		return e.VideoURL
	case e.ErrorKind != "":
		return e.ErrorKind + ": " + e.Error
	case e.Error != "":
		return e.Error
	}
	return "-"
}

func shortBatch(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
