// Package ui provides the terminal monitor for a reel batch.
//
// # Architecture Overview
//
// The monitor is a Bubble Tea program that never talks to the queue itself.
// The batch goroutine feeds a state.Store through the lifecycle observer
// chain; the monitor polls Store.Snapshot on a short tick and renders it:
//
//	tick → fetchSnapshotCmd → snapshotMsg → View
//
// # Layout
//
//   - Header: batch id, done/active/failed counts, last refresh time
//   - Command bar: short key help (bubbles/help)
//   - Records: one row per record with phase badge, progress bar
//     (bubbles/progress), elapsed time, and queue position or error
//   - Detail: the selected record's request id, artifact URL or error, and
//     its remote log tail in a scrollable viewport (bubbles/viewport)
//
// # Lifecycle
//
// The program exits by itself once the snapshot reports the batch finished.
// Quitting earlier calls Options.Cancel, which cancels the batch context; the
// controller then cancels in-flight requests remotely.
//
// # Themes
//
// Nightfox, Kanagawa and Slate are built in. "T" cycles them and reports the
// new name through Options.OnThemeChange so the caller can persist it.
package ui
