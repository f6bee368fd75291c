package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

const relayPath = "/relay"

const defaultWriteWait = 10 * time.Second

var ErrWrongPeer = errors.New("connected to an unexpected peer")

// hello is the first frame sent in each direction of a connection.
type hello struct {
	Type string       `json:"type"`
	ID   relay.PeerID `json:"id"`
	Hub  relay.PeerID `json:"hub,omitempty"`
}

const helloType = "hello"

// Signaling is the WebSocket implementation of relay.Signaling.
type Signaling struct {
	id        relay.PeerID
	listener  net.Listener
	directory Directory
	tlsConfig *tls.Config
	log       *slog.Logger
	writeWait time.Duration

	dialer   *websocket.Dialer
	upgrader websocket.Upgrader
	server   *http.Server

	accepts chan relay.Conn
	closed  chan struct{}
	once    sync.Once
}

func New(opts ...Option) *Signaling {
	s := &Signaling{
		directory: NewStaticDirectory(),
		log:       slog.Default(),
		writeWait: defaultWriteWait,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		upgrader: websocket.Upgrader{
			// peers are not browsers, there is no origin to check
			CheckOrigin: func(*http.Request) bool { return true },
		},
		accepts: make(chan relay.Conn),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register draws the identity of the local peer and, when a listener was
// given, starts serving guests.
func (s *Signaling) Register(ctx context.Context) (relay.PeerID, error) {
	if s.id == "" {
		s.id = relay.PeerID(uuid.NewString())
	}
	if s.listener == nil || s.server != nil {
		return s.id, nil
	}
	router := mux.NewRouter()
	router.HandleFunc(relayPath, s.serveRelay).Methods(http.MethodGet)
	s.server = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	l := s.listener
	if s.tlsConfig != nil && len(s.tlsConfig.Certificates) > 0 {
		l = tls.NewListener(l, s.tlsConfig)
	}
	go func() {
		err := s.server.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("relay server stopped", "err", err)
		}
	}()
	s.log.Info("serving guests", "addr", s.listener.Addr().String(), "id", string(s.id))
	return s.id, nil
}

// Addr is the address guests can dial, or "" without a listener.
func (s *Signaling) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Signaling) Accept(ctx context.Context) (relay.Conn, error) {
	select {
	case c := <-s.accepts:
		return c, nil
	case <-s.closed:
		return nil, relay.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Signaling) Dial(ctx context.Context, hub relay.PeerID) (relay.Conn, error) {
	addr, ok := s.directory.Lookup(hub)
	if !ok {
		return nil, fmt.Errorf("resolving %s: %w", hub, relay.ErrUnknownPeer)
	}
	scheme := "ws"
	if s.tlsConfig != nil {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: addr, Path: relayPath}
	ws, _, err := s.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", u.String(), err)
	}
	if err := ws.WriteJSON(hello{Type: helloType, ID: s.id, Hub: hub}); err != nil {
		ws.Close()
		return nil, fmt.Errorf("greeting %s: %w", hub, err)
	}
	var reply hello
	if err := ws.ReadJSON(&reply); err != nil {
		ws.Close()
		return nil, fmt.Errorf("reading greeting of %s: %w", hub, err)
	}
	if reply.Type != helloType || reply.ID != hub {
		ws.Close()
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrWrongPeer, hub, reply.ID)
	}
	return newConn(hub, ws, s.writeWait), nil
}

func (s *Signaling) serveRelay(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	var greeting hello
	if err := ws.ReadJSON(&greeting); err != nil {
		s.log.Debug("guest sent no greeting", "remote", r.RemoteAddr, "err", err)
		ws.Close()
		return
	}
	if greeting.Type != helloType || greeting.ID == "" || greeting.ID == s.id || greeting.Hub != s.id {
		s.log.Warn("rejecting guest", "remote", r.RemoteAddr, "id", string(greeting.ID), "hub", string(greeting.Hub))
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unexpected greeting"),
			time.Now().Add(time.Second))
		ws.Close()
		return
	}
	if err := ws.WriteJSON(hello{Type: helloType, ID: s.id}); err != nil {
		ws.Close()
		return
	}
	select {
	case s.accepts <- newConn(greeting.ID, ws, s.writeWait):
	case <-s.closed:
		ws.Close()
	case <-r.Context().Done():
		ws.Close()
	}
}

func (s *Signaling) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = s.server.Shutdown(ctx)
		}
	})
	return err
}
