// Package future holds values that become known at some later point of an
// event loop, together with the continuations waiting for them.
//
// A Value is not safe for concurrent use: it is meant to be owned by a single
// event-processing goroutine, where "waiting" means registering a callback
// that runs when the value is set. Nothing blocks and no goroutine is spawned.
//
//	var deck future.Value[[][]byte]
//	deck.Then(func(d [][]byte) { ... }) // runs later
//	deck.Set(received)                  // runs the callback now
package future
