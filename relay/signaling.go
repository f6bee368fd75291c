package relay

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrClosed       = errors.New("connection closed")
	ErrNotConnected = errors.New("relay is not connected")
	ErrUnknownPeer  = errors.New("unknown peer")
)

// Signaling establishes the point-to-point connections the relay runs on.
type Signaling interface {
	// Register obtains the identity of the local peer.
	Register(ctx context.Context) (PeerID, error)
	// Accept waits for the next guest connecting to the local peer.
	Accept(ctx context.Context) (Conn, error)
	// Dial connects to the hub.
	Dial(ctx context.Context, hub PeerID) (Conn, error)
	Close() error
}

// Conn is one direction-agnostic connection to a remote peer. Events sent on
// a Conn are received in the same order.
type Conn interface {
	Remote() PeerID
	Send(Event) error
	Recv() (Event, error)
	Close() error
}

// Mailbox is an unbounded FIFO of events. Put never blocks, so a slow reader
// cannot stall the event loop of the writer.
type Mailbox struct {
	mu     sync.Mutex
	queue  []Event
	ready  chan struct{}
	closed chan struct{}
	once   sync.Once
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (m *Mailbox) Put(ev Event) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}
	m.mu.Lock()
	m.queue = append(m.queue, ev)
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
	return nil
}

// Take blocks until an event is available or the mailbox is closed. Events
// queued before Close are still returned.
func (m *Mailbox) Take() (Event, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			ev := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return ev, nil
		}
		m.mu.Unlock()
		select {
		case <-m.ready:
		case <-m.closed:
			m.mu.Lock()
			empty := len(m.queue) == 0
			m.mu.Unlock()
			if empty {
				return Event{}, ErrClosed
			}
		}
	}
}

func (m *Mailbox) Close() {
	m.once.Do(func() { close(m.closed) })
}
