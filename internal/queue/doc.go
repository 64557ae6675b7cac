// Package queue holds the two buffering disciplines used by the fusion loop and
// the frame annotation pipeline.
//
// DropOldest keeps the latest N items and never blocks a producer. It trades
// completeness for recency and suits live telemetry.
//
// Unbounded never drops. Consumers pop with a bounded wait, and a pop that
// times out on an empty queue tells a worker that no more work will arrive.
package queue
