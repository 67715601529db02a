// Package config loads reel's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/reel/config.toml
//  3. If the file doesn't exist, start from Default()
//  4. Apply FAL_KEY, REEL_API_KEY, REEL_BASE_URL and REEL_LOG_LEVEL
//
// A missing file is not an error, so reel runs with nothing but FAL_KEY set.
//
// # Default Values
//
//   - base_url: https://queue.fal.run
//   - model: veed/fabric-1.0
//   - resolution: 480p, aspect_ratio: 16:9
//   - poll_interval_seconds: 5 (clamped to 1..30)
//   - timeout_minutes: 10 (clamped to 1..60)
//   - strategy: auto (stream when possible, otherwise poll)
//   - rate_limit_per_second: 5
//   - history_path: ~/.local/share/reel/history.db
//
// # TOML Format
//
//	api_key = "fal-..."
//	model = "veed/fabric-1.0/fast"
//	resolution = "720p"
//	poll_interval_seconds = 3
//	strategy = "poll"
//	metrics_addr = "127.0.0.1:9464"
//
//	[tracing]
//	enabled = true
//	exporter = "http"
//	endpoint = "localhost:4318"
//
// Invalid enum values (resolution, aspect_ratio, strategy, tracing.exporter)
// are reported as parse errors rather than silently replaced.
package config
