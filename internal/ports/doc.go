// Package ports defines the interfaces that connect the pipelines to their
// collaborators.
//
// The pipelines in internal/mac, internal/ethhdr and internal/uart depend only
// on these interfaces. Adapters (internal/adapters) and the stream queues
// (internal/stream) provide the concrete implementations.
//
// # Port Interfaces
//
//   - [StreamSource]: ready/valid producer of stream words
//   - [StreamSink]: consumer of stream words
//   - [EventHandler]: per-frame notifications for statistics sinks
//   - [Logger]: structured logging abstraction
package ports
