package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

// conn is a relay.Conn over one WebSocket. Writes are serialized since
// gorilla/websocket allows a single concurrent writer.
type conn struct {
	remote    relay.PeerID
	ws        *websocket.Conn
	writeWait time.Duration
	mu        sync.Mutex
	once      sync.Once
}

func newConn(remote relay.PeerID, ws *websocket.Conn, writeWait time.Duration) *conn {
	return &conn{remote: remote, ws: ws, writeWait: writeWait}
}

func (c *conn) Remote() relay.PeerID {
	return c.remote
}

// Send fails once the peer has not drained a frame for writeWait. The
// connection is then closed, so its reader reports the peer as gone.
func (c *conn) Send(ev relay.Event) error {
	c.mu.Lock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		c.mu.Unlock()
		return closedOr(err)
	}
	err := c.ws.WriteJSON(ev)
	c.mu.Unlock()
	if err != nil {
		c.ws.Close()
		return closedOr(err)
	}
	return nil
}

func (c *conn) Recv() (relay.Event, error) {
	var ev relay.Event
	if err := c.ws.ReadJSON(&ev); err != nil {
		return relay.Event{}, closedOr(err)
	}
	return ev, nil
}

func (c *conn) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func closedOr(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return relay.ErrClosed
	}
	return err
}
