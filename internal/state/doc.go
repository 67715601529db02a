// Package state provides thread-safe run state for the reel application.
//
// # Overview
//
// Store is where lifecycle events meet rendering. The batch goroutine feeds
// it events through the lifecycle.Observer interface; the terminal UI reads
// it on a tick through Snapshot.
//
//	Producer (batch):              Consumer (UI):
//	┌──────────────────┐          ┌──────────────────┐
//	│ Controller.Run() │          │ tick             │
//	│      ↓           │          │      ↓           │
//	│ store.Observe(e) │─────────→│ store.Snapshot() │
//	│      ↓           │ (mutex)  │      ↓           │
//	│  next event...   │          │  render rows     │
//	└──────────────────┘          └──────────────────┘
//
// # Record Phases
//
// Events map onto a small set of phases:
//
//	Started    → pending
//	Submitted  → submitted
//	Status     → queued (IN_QUEUE) or running (IN_PROGRESS)
//	Completed  → fetching
//	Fetched    → done
//	Failed     → failed
//
// Progress and Retry events update counters without changing phase. Each
// record keeps the last 50 distinct remote log lines in a logtail.Ring.
//
// # Concurrency Model
//
// Observe takes the write lock; Snapshot takes the read lock and returns deep
// copies, so callers may hold a Snapshot for as long as they like.
package state
