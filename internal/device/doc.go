// Package device drives one G2 over an external transport.
//
// Ownership boundary:
// - owns the single worker goroutine that mutates the performance model
// - owns inbound message routing by response code, context and type byte
// - owns the initialization request sequence and entry paging
// - does not own the USB link; Transport is supplied by the caller
//
// Every state change, inbound or local, runs on the worker. Callers block
// in Invoke until their task ran or its deadline passed. Listeners fire on
// the worker and must not call back into Invoke.
package device
