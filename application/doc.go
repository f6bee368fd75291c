// Package application wires the relay, the card protocol and the betting
// engine of one peer together and runs them on a single event loop.
//
// Every state change happens on the goroutine running App.Run: events from
// the network, cards opened by the card protocol and local actions are
// processed one at a time, each to completion. The methods of App may be
// called from any goroutine; they hand their work to the loop.
package application
