// Package dispatcher runs the chunking engine over a scanned file list,
// sequentially or with a bounded worker pool.
//
// Concurrent mode is opt-in. Files are processed in batches; inside a batch
// each worker owns its own engine and every task runs under a hard timeout.
// A task that times out, panics, or lands on a worker whose engine could not
// be created is retried once synchronously. The run downgrades to
// sequential mode for good when failures exceed the configured threshold
// or when heap usage crosses the memory threshold.
//
// A timed-out task is abandoned rather than joined, so an engine that
// ignores cancellation cannot hold up the run; Dispatcher.Wait joins such
// tasks when needed.
//
// Chunks are returned in input order, so each file's chunks stay ascending
// by line.
package dispatcher
