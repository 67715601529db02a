// Package lifecycle drives a generation request from submission to a
// finished artifact.
//
// A record goes through four stages, each a small type that can be used on
// its own:
//
//   - Validator: checks URLs and enum fields before any network call
//   - Submitter: POSTs the payload and returns the fal.QueueHandle
//   - Awaiter: waits for COMPLETED or FAILED, either by polling (Poller) or
//     by reading the status event stream (Streamer)
//   - Fetcher: reads the artifact from the response URL
//
// Controller composes them and processes records strictly in order. Every
// failure is an *Error whose Kind is one of the Err* sentinels, so callers
// can branch with errors.Is.
//
// Nothing here logs. Stages report through an Observer, and the host decides
// whether events become log lines, metrics, or UI updates.
package lifecycle
