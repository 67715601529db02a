// Package logtail keeps a bounded tail of remote log lines.
//
// The queue API attaches the full, append-only log to every status payload,
// so a record that is polled fifty times sees its newest line fifty times.
// Ring stores the last N distinct lines per record for display:
//
//	ring := logtail.NewRing(50)
//	ring.AddNew("Loading model")
//	ring.AddNew("Diffusing: 10%")
//	ring.AddNew("Diffusing: 10%") // ignored, repeats the newest line
//	ring.Lines()                  // ["Loading model", "Diffusing: 10%"]
//
// # Ring Buffer Algorithm
//
// Add stores each line at the write index and advances it modulo the
// capacity. Once full, the write index always points at the oldest line,
// which is where Lines starts reading. Memory use is O(capacity).
//
// Ring is not safe for concurrent use; state.Store guards its rings with its
// own lock.
package logtail
