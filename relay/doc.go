// Package relay routes game events between the members of a table through a
// single hub peer.
//
// # Topology
//
// One peer is the hub: every guest holds exactly one connection, to the hub,
// and the hub holds one connection per guest. The member roster is derived by
// the hub from the connections it accepted (itself first, then guests in join
// order) and broadcast to the guests, which adopt it verbatim.
//
// # Events
//
// An Event is either Public (delivered to every member, the emitter included)
// or Private (delivered to one recipient). Private events between the hub and
// a guest travel in clear over their direct connection. Private events
// between two guests are sealed with the recipient's announced public key
// (ECIES over the Ed25519 group) so that the hub forwards them by recipient
// id without being able to read them.
//
// # Event loop
//
// A Relay does not own a goroutine of its own. Connection readers push Frames
// onto Incoming; the owner of the Relay hands every frame back to Handle and
// then drains locally delivered events with Next, all on one goroutine:
//
//	for {
//		select {
//		case f := <-r.Incoming():
//			r.Handle(f)
//		case <-ctx.Done():
//			return
//		}
//		for ev, ok := r.Next(); ok; ev, ok = r.Next() {
//			dispatch(ev)
//		}
//	}
//
// Emit, Publish and Send must be called from that same goroutine.
package relay
