// Package network connects the relay of one peer to the relays of the
// others over WebSocket.
//
// # Identity
//
// Every peer draws a random UUID when it registers. The identity is what the
// relay calls a PeerID, and it is what a table is known by on the LAN: the
// hub's identity is the table id.
//
// # Connections
//
// A hub serves the /relay endpoint. A guest resolves the hub's identity to
// an address through a Directory and dials it. The first frame in each
// direction is a hello carrying the identity of its sender, so both ends know
// who they are talking to before any event flows. After the hello every
// frame is one JSON encoded relay.Event.
//
// # TLS
//
// With WithCertificate the hub serves wss and guests dial wss. Self-signed
// certificates can be produced with GenerateSelfSignedCert and trusted with
// WithLimitedCAs.
package network
