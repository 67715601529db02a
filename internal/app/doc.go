// Package app provides the orchestration layer for reel.
//
// # Overview
//
// This package is the composition root: it loads configuration, resolves the
// batch, builds the fal client and the lifecycle controller, and connects the
// observers that turn lifecycle events into state, logs, metrics and spans.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()          config file + env
//	       ├─────> applyOverrides()       command line flags
//	       ├─────> manifest.Load()        records (or one record from flags)
//	       ├─────> fal.NewClient()        authenticated, rate limited
//	       ├─────> telemetry.NewProvider()
//	       ├─────> lifecycle.New()        observers: state, log, metrics, spans
//	       │
//	       ├─────> errgroup
//	       │        ├─> controller.Run()  then store.Finish()
//	       │        ├─> metrics.Serve()   when metrics_addr is set
//	       │        └─> ui.Run()          when --tui is set
//	       │
//	       ├─────> writeOutcomes()        JSON lines to stdout or --output
//	       ├─────> history.Record()
//	       └─────> prefs.Save()
//
// # Cancellation
//
// The caller's context (SIGINT/SIGTERM in cmd/reel) and the TUI's quit key
// both cancel the batch context. The controller then cancels the in-flight
// request on the queue and Run still writes whatever outcomes exist.
//
// # Errors
//
// Setup failures (config, manifest, client, tracing) return before anything
// is submitted. A run that stops on a failed record returns that record's
// error; a continue-on-error run with failures returns ErrRecordsFailed.
// History and prefs failures are logged and never fail the run.
package app
