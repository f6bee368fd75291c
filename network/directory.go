package network

import (
	"sync"

	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

// Directory resolves a peer identity to a host:port the peer serves on.
type Directory interface {
	Lookup(id relay.PeerID) (addr string, ok bool)
}

// StaticDirectory is a Directory whose entries are set by hand, for example
// from the command line.
type StaticDirectory struct {
	mu      sync.RWMutex
	entries map[relay.PeerID]string
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{entries: make(map[relay.PeerID]string)}
}

func (d *StaticDirectory) Add(id relay.PeerID, addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[id] = addr
}

func (d *StaticDirectory) Lookup(id relay.PeerID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	addr, ok := d.entries[id]
	return addr, ok
}
