package discovery

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

// Directory remembers the latest announcement of every table. It resolves
// hub identities for network.Signaling.
type Directory struct {
	mu      sync.RWMutex
	entries map[relay.PeerID]Entry
}

func NewDirectory() *Directory {
	return &Directory{entries: make(map[relay.PeerID]Entry)}
}

func (d *Directory) Add(e Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[e.ID] = e
}

// Follow adds every entry received until entries is closed or ctx is done.
func (d *Directory) Follow(ctx context.Context, entries <-chan Entry) {
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return
			}
			d.Add(e)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Directory) Lookup(id relay.PeerID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	return e.Address, ok
}

// Tables lists the known tables, most recently heard first.
func (d *Directory) Tables() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.SortedFunc(maps.Values(d.entries), func(a, b Entry) int {
		return cmp.Or(b.Time.Compare(a.Time), cmp.Compare(a.ID, b.ID))
	})
}
