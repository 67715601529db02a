// Package fal provides an HTTP client and wire types for the fal.ai queue API.
//
// # Overview
//
// Generation requests are not answered inline. A POST to {base}/{model} enqueues
// the job and returns a QueueHandle; the job's progress is then read from the
// status URL (polled, or streamed as server-sent events) and the finished
// artifact is read from the response URL. This package only knows how to talk
// HTTP to those endpoints; deciding when to poll, retry, or give up is the
// lifecycle package's job.
//
// # Architecture
//
//   - client.go: authenticated transport (Post, Get, GetStream, Cancel)
//   - types.go: data structures mirroring the queue API schema
//   - metrics.go: per-request Prometheus counters and latency histogram
//
// # Client Usage
//
//	client, err := fal.NewClient(fal.Options{APIKey: key})
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//	resp, err := client.Post(ctx, client.BaseURL()+"/"+fal.ModelFabric, body)
//
// Post and Get return the full response, including non-2xx ones, so callers
// can tell a transport failure (err != nil) from an HTTP error (!resp.OK()).
// GetStream returns the open body for SSE consumption and turns non-2xx
// statuses into errors because there is nothing to stream.
//
// # Request Handling
//
// All requests:
//   - Carry Authorization: Key <api key>
//   - Set Accept and User-Agent: reel/0.1
//   - Wait on a shared token-bucket limiter (default 5 req/s, burst 10)
//   - Run through an otelhttp transport unless an http.Client is injected
//
// Regular requests are bounded by a 30 second client timeout. Streams use a
// copy of the client without a timeout; their lifetime is the context's.
//
// # URL Resolution
//
// The queue hands back absolute status/response URLs. Relative paths are
// resolved against the base URL, which defaults to https://queue.fal.run.
//
// # Thread Safety
//
// Client is safe for concurrent use.
package fal
