package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"go.dedis.ch/kyber/v4"
)

type State int

const (
	NotReady State = iota
	PeerServerConnected
	HubConnected
	Closed
)

func (s State) String() string {
	switch s {
	case NotReady:
		return "not-ready"
	case PeerServerConnected:
		return "peer-server-connected"
	case HubConnected:
		return "hub-connected"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type frameKind int

const (
	frameMessage frameKind = iota
	frameJoined
	frameLeft
	frameLost
)

// Frame is something that happened on a connection or on the signaling
// layer. Frames are produced by background readers and consumed by Handle.
type Frame struct {
	kind  frameKind
	from  PeerID
	conn  Conn
	event Event
	err   error
}

// Relay is the local end of the table's message bus.
type Relay struct {
	signaling Signaling
	log       *slog.Logger
	keys      KeyPair

	self  PeerID
	hub   PeerID
	state State

	conns    map[PeerID]Conn
	roster   []PeerID
	peerKeys map[PeerID]kyber.Point
	pending  map[PeerID][]Event
	inbox    []Event

	frames chan Frame
	ctx    context.Context
	cancel context.CancelFunc
}

func New(signaling Signaling, opts ...Option) *Relay {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		signaling: signaling,
		log:       slog.Default(),
		keys:      NewKeyPair(),
		conns:     make(map[PeerID]Conn),
		peerKeys:  make(map[PeerID]kyber.Point),
		pending:   make(map[PeerID][]Event),
		frames:    make(chan Frame, 256),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect registers the local peer and, if hub is not empty, joins the hub.
// With an empty hub the local peer becomes the hub of a new table.
func (r *Relay) Connect(ctx context.Context, hub PeerID) error {
	if r.state != NotReady {
		return fmt.Errorf("connect: relay is %s", r.state)
	}
	self, err := r.signaling.Register(ctx)
	if err != nil {
		return fmt.Errorf("registering with signaling: %w", err)
	}
	r.self = self
	r.state = PeerServerConnected
	r.log = r.log.With("peer", string(self))

	if hub == "" || hub == self {
		r.hub = self
		r.roster = []PeerID{self}
		r.deliverMembers()
		go r.acceptLoop()
		return nil
	}

	conn, err := r.signaling.Dial(ctx, hub)
	if err != nil {
		return fmt.Errorf("dialing hub %s: %w", hub, err)
	}
	r.hub = hub
	r.conns[hub] = conn
	r.state = HubConnected
	go r.readLoop(conn)
	r.announceKey()
	return nil
}

func (r *Relay) Self() PeerID { return r.self }
func (r *Relay) Hub() PeerID { return r.hub }
func (r *Relay) IsHub() bool { return r.self != "" && r.self == r.hub }
func (r *Relay) State() State { return r.state }
func (r *Relay) Roster() []PeerID {
	return slices.Clone(r.roster)
}

// Incoming is the stream of frames to be handed to Handle.
func (r *Relay) Incoming() <-chan Frame {
	return r.frames
}

// Next pops the oldest event delivered to the local peer.
func (r *Relay) Next() (Event, bool) {
	if len(r.inbox) == 0 {
		return Event{}, false
	}
	ev := r.inbox[0]
	r.inbox = r.inbox[1:]
	return ev, true
}

// Publish emits payload to every member.
func (r *Relay) Publish(payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	return r.Emit(Event{Kind: Public, Payload: raw})
}

// Send emits payload to a single member.
func (r *Relay) Send(to PeerID, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	return r.Emit(Event{Kind: Private, Recipient: to, Payload: raw})
}

// Emit routes ev from the local peer. The sender field is always overwritten
// with the local identity.
func (r *Relay) Emit(ev Event) error {
	switch r.state {
	case NotReady:
		return ErrNotConnected
	case Closed:
		return ErrClosed
	}
	ev.Sender = r.self
	switch ev.Kind {
	case Public:
		if r.IsHub() {
			r.broadcast(ev)
			r.deliver(ev)
			return nil
		}
		return r.send(r.hub, ev)
	case Private:
		switch {
		case ev.Recipient == r.self:
			r.deliver(ev)
			return nil
		case r.IsHub(), ev.Recipient == r.hub:
			return r.send(ev.Recipient, ev)
		default:
			return r.sendSealed(ev)
		}
	}
	return fmt.Errorf("emit: unknown event kind %q", ev.Kind)
}

// Handle applies a frame read from Incoming.
func (r *Relay) Handle(f Frame) {
	switch f.kind {
	case frameJoined:
		r.join(f.conn)
	case frameLeft:
		r.leave(f.from, f.conn, f.err)
	case frameLost:
		r.log.Error("signaling lost", "err", f.err)
		r.state = Closed
	case frameMessage:
		r.receive(f.from, f.event)
	}
}

// Close tears down every connection and the signaling endpoint.
func (r *Relay) Close() error {
	if r.state == Closed && r.ctx.Err() != nil {
		return nil
	}
	r.state = Closed
	r.cancel()
	for _, c := range r.conns {
		c.Close()
	}
	clear(r.conns)
	return r.signaling.Close()
}

func (r *Relay) acceptLoop() {
	for {
		conn, err := r.signaling.Accept(r.ctx)
		if err != nil {
			r.push(Frame{kind: frameLost, err: err})
			return
		}
		if !r.push(Frame{kind: frameJoined, from: conn.Remote(), conn: conn}) {
			conn.Close()
			return
		}
	}
}

func (r *Relay) readLoop(conn Conn) {
	for {
		ev, err := conn.Recv()
		if err != nil {
			r.push(Frame{kind: frameLeft, from: conn.Remote(), conn: conn, err: err})
			return
		}
		if !r.push(Frame{kind: frameMessage, from: conn.Remote(), event: ev}) {
			return
		}
	}
}

func (r *Relay) push(f Frame) bool {
	select {
	case r.frames <- f:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Relay) join(conn Conn) {
	if !r.IsHub() {
		conn.Close()
		return
	}
	id := conn.Remote()
	if _, live := r.conns[id]; live || id == r.self {
		r.log.Warn("rejecting connection for a live identity", "guest", string(id))
		conn.Close()
		return
	}
	r.roster = append(r.roster, id)
	r.conns[id] = conn
	go r.readLoop(conn)
	r.log.Info("guest joined", "guest", string(id), "members", len(r.roster))
	r.broadcastMembers()
	r.announceKey()
}

func (r *Relay) leave(id PeerID, conn Conn, err error) {
	if current, ok := r.conns[id]; !ok || current != conn {
		return
	}
	delete(r.conns, id)
	if !r.IsHub() {
		r.log.Error("hub connection lost", "err", err)
		r.state = Closed
		return
	}
	r.log.Info("guest left", "guest", string(id), "err", err)
	r.roster = slices.DeleteFunc(r.roster, func(p PeerID) bool { return p == id })
	r.forget(id)
	r.broadcastMembers()
}

func (r *Relay) receive(from PeerID, ev Event) {
	if r.IsHub() && ev.Sender != from {
		r.log.Warn("sender does not match connection", "claimed", string(ev.Sender), "from", string(from))
		ev.Sender = from
	}
	typ, err := PayloadType(ev.Payload)
	if err != nil {
		r.log.Warn("dropping malformed event", "from", string(from), "err", err)
		return
	}
	switch ev.Kind {
	case Public:
		r.receivePublic(typ, ev)
	case Private:
		r.receivePrivate(typ, ev)
	default:
		r.log.Warn("dropping event of unknown kind", "kind", string(ev.Kind), "from", string(from))
	}
}

func (r *Relay) receivePublic(typ string, ev Event) {
	switch typ {
	case TypePublicKey:
		r.learnKey(ev)
		if r.IsHub() {
			r.broadcast(ev)
		}
	case TypeMembers:
		if r.IsHub() || ev.Sender != r.hub {
			r.log.Warn("dropping roster not sent by the hub", "sender", string(ev.Sender))
			return
		}
		r.adoptRoster(ev)
	case TypeEncrypted:
		r.log.Warn("dropping public encrypted envelope", "sender", string(ev.Sender))
	default:
		if r.IsHub() {
			r.broadcast(ev)
		}
		r.deliver(ev)
	}
}

func (r *Relay) receivePrivate(typ string, ev Event) {
	if ev.Recipient != r.self {
		if !r.IsHub() {
			r.log.Warn("dropping private event for someone else", "recipient", string(ev.Recipient))
			return
		}
		if err := r.send(ev.Recipient, ev); err != nil {
			r.log.Warn("forwarding private event", "recipient", string(ev.Recipient), "err", err)
		}
		return
	}
	if typ == TypeEncrypted {
		r.open(ev)
		return
	}
	r.deliver(ev)
}

func (r *Relay) adoptRoster(ev Event) {
	roster, err := Roster(ev)
	if err != nil {
		r.log.Warn("dropping malformed roster", "err", err)
		return
	}
	newcomer := false
	for _, p := range roster {
		if p != r.self && !slices.Contains(r.roster, p) {
			newcomer = true
		}
	}
	for _, p := range r.roster {
		if !slices.Contains(roster, p) {
			r.forget(p)
		}
	}
	r.roster = slices.Clone(roster)
	r.deliver(ev)
	if newcomer {
		r.announceKey()
	}
}

func (r *Relay) forget(id PeerID) {
	delete(r.peerKeys, id)
	delete(r.pending, id)
}

func (r *Relay) announceKey() {
	public, err := r.keys.Public.MarshalBinary()
	if err != nil {
		r.log.Error("encoding public key", "err", err)
		return
	}
	payload, err := encodePayload(PublicKeyAnnounce{Type: TypePublicKey, Sender: r.self, PublicKey: public})
	if err != nil {
		r.log.Error("encoding key announcement", "err", err)
		return
	}
	ev := Event{Kind: Public, Sender: r.self, Payload: payload}
	if r.IsHub() {
		r.broadcast(ev)
		return
	}
	if err := r.send(r.hub, ev); err != nil {
		r.log.Warn("announcing public key", "err", err)
	}
}

func (r *Relay) learnKey(ev Event) {
	var announce PublicKeyAnnounce
	if err := json.Unmarshal(ev.Payload, &announce); err != nil {
		r.log.Warn("dropping malformed key announcement", "err", err)
		return
	}
	if announce.Sender != ev.Sender {
		r.log.Warn("key announced on behalf of another peer", "sender", string(ev.Sender), "claimed", string(announce.Sender))
		return
	}
	if announce.Sender == r.self {
		return
	}
	key, err := ParsePublicKey(announce.PublicKey)
	if err != nil {
		r.log.Warn("dropping key announcement", "sender", string(ev.Sender), "err", err)
		return
	}
	r.peerKeys[announce.Sender] = key
	queued := r.pending[announce.Sender]
	delete(r.pending, announce.Sender)
	for _, q := range queued {
		if err := r.seal(q, key); err != nil {
			r.log.Warn("sending queued private event", "recipient", string(q.Recipient), "err", err)
		}
	}
}

func (r *Relay) sendSealed(ev Event) error {
	key, ok := r.peerKeys[ev.Recipient]
	if !ok {
		r.log.Debug("queueing private event until recipient key is known", "recipient", string(ev.Recipient))
		r.pending[ev.Recipient] = append(r.pending[ev.Recipient], ev)
		return nil
	}
	return r.seal(ev, key)
}

func (r *Relay) seal(ev Event, key kyber.Point) error {
	plain, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding private event: %w", err)
	}
	ciphertext, err := Seal(key, plain)
	if err != nil {
		return fmt.Errorf("sealing private event: %w", err)
	}
	payload, err := encodePayload(EncryptedEnvelope{
		Type:       TypeEncrypted,
		Sender:     r.self,
		Recipient:  ev.Recipient,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return err
	}
	return r.send(r.hub, Event{Kind: Private, Sender: r.self, Recipient: ev.Recipient, Payload: payload})
}

func (r *Relay) open(ev Event) {
	var envelope EncryptedEnvelope
	if err := json.Unmarshal(ev.Payload, &envelope); err != nil {
		r.log.Warn("dropping malformed envelope", "err", err)
		return
	}
	plain, err := r.keys.Open(envelope.Ciphertext)
	if err != nil {
		r.log.Warn("dropping undecryptable envelope", "sender", string(ev.Sender), "err", err)
		return
	}
	var inner Event
	if err := json.Unmarshal(plain, &inner); err != nil {
		r.log.Warn("dropping malformed sealed event", "err", err)
		return
	}
	if inner.Sender != ev.Sender || inner.Recipient != r.self || inner.Kind != Private {
		r.log.Warn("dropping sealed event with forged header", "sender", string(ev.Sender), "inner", string(inner.Sender))
		return
	}
	r.deliver(inner)
}

func (r *Relay) deliverMembers() {
	payload, err := encodePayload(Members{Type: TypeMembers, Roster: slices.Clone(r.roster)})
	if err != nil {
		r.log.Error("encoding roster", "err", err)
		return
	}
	r.deliver(Event{Kind: Public, Sender: r.self, Payload: payload})
}

func (r *Relay) broadcastMembers() {
	payload, err := encodePayload(Members{Type: TypeMembers, Roster: slices.Clone(r.roster)})
	if err != nil {
		r.log.Error("encoding roster", "err", err)
		return
	}
	ev := Event{Kind: Public, Sender: r.self, Payload: payload}
	r.broadcast(ev)
	r.deliver(ev)
}

// broadcast sends ev to every guest, in roster order.
func (r *Relay) broadcast(ev Event) {
	for _, p := range r.roster {
		if p == r.self {
			continue
		}
		if err := r.send(p, ev); err != nil {
			r.log.Warn("broadcast", "guest", string(p), "err", err)
		}
	}
}

func (r *Relay) send(to PeerID, ev Event) error {
	conn, ok := r.conns[to]
	if !ok {
		r.log.Debug("dropping event for unknown connection", "recipient", string(to))
		return nil
	}
	if err := conn.Send(ev); err != nil {
		return fmt.Errorf("sending to %s: %w", to, err)
	}
	return nil
}

func (r *Relay) deliver(ev Event) {
	r.inbox = append(r.inbox, ev)
}
