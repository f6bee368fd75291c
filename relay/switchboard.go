package relay

import (
	"context"
	"fmt"
	"sync"
)

// Switchboard connects relays living in the same process. It is the
// signaling layer used by tests and by single-process tables.
type Switchboard struct {
	mu        sync.Mutex
	next      int
	endpoints map[PeerID]*endpoint
}

func NewSwitchboard() *Switchboard {
	return &Switchboard{endpoints: make(map[PeerID]*endpoint)}
}

// Signaling returns a fresh, unregistered endpoint on the switchboard.
func (s *Switchboard) Signaling() Signaling {
	return &endpoint{
		board:   s,
		accepts: make(chan Conn, 16),
		closed:  make(chan struct{}),
	}
}

type endpoint struct {
	board   *Switchboard
	id      PeerID
	accepts chan Conn
	closed  chan struct{}
	once    sync.Once
}

func (e *endpoint) Register(ctx context.Context) (PeerID, error) {
	e.board.mu.Lock()
	defer e.board.mu.Unlock()
	if e.id != "" {
		return e.id, nil
	}
	e.board.next++
	e.id = PeerID(fmt.Sprintf("peer-%d", e.board.next))
	e.board.endpoints[e.id] = e
	return e.id, nil
}

func (e *endpoint) Accept(ctx context.Context) (Conn, error) {
	select {
	case c := <-e.accepts:
		return c, nil
	case <-e.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *endpoint) Dial(ctx context.Context, hub PeerID) (Conn, error) {
	e.board.mu.Lock()
	remote, ok := e.board.endpoints[hub]
	e.board.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dialing %s: %w", hub, ErrUnknownPeer)
	}
	local, accepted := pipe(e.id, hub)
	select {
	case remote.accepts <- accepted:
		return local, nil
	case <-remote.closed:
		return nil, fmt.Errorf("dialing %s: %w", hub, ErrClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *endpoint) Close() error {
	e.once.Do(func() {
		close(e.closed)
		e.board.mu.Lock()
		delete(e.board.endpoints, e.id)
		e.board.mu.Unlock()
	})
	return nil
}

// pipe returns the two ends of an in-memory connection between a and b.
func pipe(a, b PeerID) (Conn, Conn) {
	toA, toB := NewMailbox(), NewMailbox()
	shutdown := func() {
		toA.Close()
		toB.Close()
	}
	return &pipeConn{remote: b, in: toA, out: toB, shutdown: shutdown},
		&pipeConn{remote: a, in: toB, out: toA, shutdown: shutdown}
}

type pipeConn struct {
	remote   PeerID
	in, out  *Mailbox
	shutdown func()
}

func (c *pipeConn) Remote() PeerID { return c.remote }
func (c *pipeConn) Send(ev Event) error { return c.out.Put(ev) }
func (c *pipeConn) Recv() (Event, error) { return c.in.Take() }
func (c *pipeConn) Close() error {
	c.shutdown()
	return nil
}
