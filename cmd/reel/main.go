package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/reel/internal/app"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(args) > 0 && args[0] == "history" {
		opts, err := parseHistory(args[1:], stderr)
		if err != nil {
			return usageStatus(err)
		}
		opts.Stdout = stdout
		if err := app.History(ctx, opts); err != nil {
			fmt.Fprintf(stderr, "reel: %v\n", err)
			return 1
		}
		return 0
	}

	opts, err := parseRun(args, stderr)
	if err != nil {
		return usageStatus(err)
	}
	opts.Stdout = stdout
	opts.Stderr = stderr
	if _, err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(stderr, "reel: %v\n", err)
		return 1
	}
	return 0
}

// usageStatus maps a flag parse error to an exit code. Asking for help is
// not a failure.
func usageStatus(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 2
}

func parseRun(args []string, stderr io.Writer) (app.Options, error) {
	fs := flag.NewFlagSet("reel", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: reel [flags]            generate from -image/-audio or -manifest")
		fmt.Fprintln(stderr, "       reel history [-n N] [-json]")
		fs.PrintDefaults()
	}

	var (
		opts app.Options
		o    = &opts.Overrides
	)
	fs.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/reel/config.toml)")
	fs.StringVar(&opts.ManifestPath, "manifest", "", "batch file (.yaml, .yml, .toml or .json)")
	fs.StringVar(&o.Model, "model", "", "model id, e.g. veed/fabric-1.0 or veed/fabric-1.0/fast")
	fs.StringVar(&o.ImageURL, "image", "", "image URL")
	fs.StringVar(&o.AudioURL, "audio", "", "audio URL")
	fs.StringVar(&o.Resolution, "resolution", "", "480p or 720p")
	fs.StringVar(&o.AspectRatio, "aspect", "", "16:9, 9:16 or 1:1")
	fs.IntVar(&o.PollSeconds, "poll", 0, "status poll interval in seconds (1-30)")
	fs.IntVar(&o.TimeoutMinutes, "timeout", 0, "per-record timeout in minutes (1-60)")
	fs.StringVar(&o.Strategy, "strategy", "", "auto, poll or stream")
	fs.BoolVar(&o.ContinueOnError, "continue-on-error", false, "keep going after a failed record")
	fs.BoolVar(&o.Strict, "strict", false, "require known image/audio file extensions")
	fs.BoolVar(&opts.TUI, "tui", false, "show the terminal progress monitor")
	fs.StringVar(&opts.OutputPath, "output", "", "write JSON lines to this file instead of stdout")
	fs.StringVar(&opts.LogFormat, "log-format", "", "console or json (default: console on a terminal)")
	fs.StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/reel/prefs.toml)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected argument %q", fs.Arg(0))
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return opts, err
	}
	opts.Version = version
	return opts, nil
}

func parseHistory(args []string, stderr io.Writer) (app.HistoryOptions, error) {
	fs := flag.NewFlagSet("reel history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts app.HistoryOptions
	fs.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/reel/config.toml)")
	fs.IntVar(&opts.Limit, "n", 20, "number of entries to show")
	fs.BoolVar(&opts.JSON, "json", false, "print JSON lines")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}
