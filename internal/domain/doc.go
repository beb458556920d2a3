// Package domain contains the core entities and value objects for ethlink.
//
// This package is the innermost layer. It has no dependencies on logging,
// configuration or the physical encodings and only describes what moves
// through the pipelines.
//
// # Entities
//
//   - [Frame]: an Ethernet frame (header and payload) with its error tag
//   - [StreamWord]: one beat of the byte-stream boundary
//   - [Symbol] and [LaneWord]: the lane-level representation of the medium
//   - [Stats]: counters for every frame and error observed by a pipeline
//
// # Design Principles
//
// Domain values are:
//   - Free of infrastructure dependencies
//   - Copied by value where practical (Symbol, Stats)
//   - Testable without mocks or external systems
package domain
