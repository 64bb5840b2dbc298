// Package state holds the in-memory model of a loaded performance and its
// four patches.
//
// Ownership boundary:
// - owns the decoded section values of each patch and performance
// - owns the views and live properties bound to those values
// - owns file and message (de)serialization order and CRC framing
// - does not own the transport or the goroutine that mutates the model
//
// A Patch or Performance is mutated from one goroutine only. Properties
// notify listeners synchronously on that goroutine.
package state
