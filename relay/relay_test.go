package relay

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 5 * time.Second

type testPeer struct {
	relay  *Relay
	events chan Event
	calls  chan func()
}

func startPeer(t *testing.T, sig Signaling, hub PeerID) *testPeer {
	t.Helper()
	r := New(sig)
	require.NoError(t, r.Connect(context.Background(), hub))
	p := &testPeer{
		relay:  r,
		events: make(chan Event, 256),
		calls:  make(chan func()),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	drain := func() {
		for ev, ok := r.Next(); ok; ev, ok = r.Next() {
			p.events <- ev
		}
	}
	go func() {
		defer close(done)
		// Connect may already have delivered the hub's own roster
		drain()
		for {
			select {
			case f := <-r.Incoming():
				r.Handle(f)
			case fn := <-p.calls:
				fn()
			case <-ctx.Done():
				r.Close()
				return
			}
			drain()
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p
}

// do runs fn on the peer's event loop and waits for it.
func (p *testPeer) do(fn func()) {
	finished := make(chan struct{})
	p.calls <- func() {
		fn()
		close(finished)
	}
	<-finished
}

// next returns the next delivered event whose payload has the given type.
func (p *testPeer) next(t *testing.T, typ string) Event {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case ev := <-p.events:
			got, err := PayloadType(ev.Payload)
			require.NoError(t, err)
			if got == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", typ)
		}
	}
}

func (p *testPeer) waitRoster(t *testing.T, n int) []PeerID {
	t.Helper()
	for {
		roster, err := Roster(p.next(t, TypeMembers))
		require.NoError(t, err)
		if len(roster) == n {
			return roster
		}
	}
}

func (p *testPeer) self() PeerID {
	var id PeerID
	p.do(func() { id = p.relay.Self() })
	return id
}

type ping struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func newTable(t *testing.T, guests int) (*Switchboard, *testPeer, []*testPeer) {
	t.Helper()
	sb := NewSwitchboard()
	hub := startPeer(t, sb.Signaling(), "")
	hub.waitRoster(t, 1)
	var gs []*testPeer
	for i := range guests {
		g := startPeer(t, sb.Signaling(), hub.self())
		hub.waitRoster(t, i+2)
		g.waitRoster(t, i+2)
		gs = append(gs, g)
	}
	return sb, hub, gs
}

func TestRosterOrder(t *testing.T) {
	_, hub, guests := newTable(t, 2)
	want := []PeerID{hub.self(), guests[0].self(), guests[1].self()}

	var hubRoster []PeerID
	hub.do(func() { hubRoster = hub.relay.Roster() })
	assert.Equal(t, want, hubRoster)

	g0 := guests[0]
	assert.Equal(t, want, g0.waitRoster(t, 3))
	var state State
	g0.do(func() { state = g0.relay.State() })
	assert.Equal(t, HubConnected, state)
}

func TestPublicEventReachesEveryone(t *testing.T) {
	_, hub, guests := newTable(t, 2)
	sender := guests[0]
	var err error
	sender.do(func() { err = sender.relay.Publish(ping{Type: "ping", Text: "hello"}) })
	require.NoError(t, err)

	for _, p := range []*testPeer{hub, guests[0], guests[1]} {
		ev := p.next(t, "ping")
		assert.Equal(t, Public, ev.Kind)
		assert.Equal(t, sender.self(), ev.Sender)
		var got ping
		require.NoError(t, json.Unmarshal(ev.Payload, &got))
		assert.Equal(t, "hello", got.Text)
	}
}

func TestHubPublicEventIsEchoedLocally(t *testing.T) {
	_, hub, guests := newTable(t, 1)
	var err error
	hub.do(func() { err = hub.relay.Publish(ping{Type: "ping"}) })
	require.NoError(t, err)
	assert.Equal(t, hub.self(), hub.next(t, "ping").Sender)
	assert.Equal(t, hub.self(), guests[0].next(t, "ping").Sender)
}

func TestPrivateBetweenHubAndGuest(t *testing.T) {
	_, hub, guests := newTable(t, 2)
	target := guests[1].self()
	var err error
	hub.do(func() { err = hub.relay.Send(target, ping{Type: "secret", Text: "for you"}) })
	require.NoError(t, err)
	ev := guests[1].next(t, "secret")
	assert.Equal(t, Private, ev.Kind)
	assert.Equal(t, target, ev.Recipient)

	guests[1].do(func() { err = guests[1].relay.Send(hub.self(), ping{Type: "reply"}) })
	require.NoError(t, err)
	assert.Equal(t, target, hub.next(t, "reply").Sender)

}

type spySignaling struct {
	Signaling
	seen chan Event
}

func (s spySignaling) Accept(ctx context.Context) (Conn, error) {
	c, err := s.Signaling.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return spyConn{Conn: c, seen: s.seen}, nil
}

type spyConn struct {
	Conn
	seen chan Event
}

func (c spyConn) Recv() (Event, error) {
	ev, err := c.Conn.Recv()
	if err == nil {
		c.seen <- ev
	}
	return ev, err
}

func TestGuestToGuestIsSealed(t *testing.T) {
	sb := NewSwitchboard()
	seen := make(chan Event, 256)
	hub := startPeer(t, spySignaling{Signaling: sb.Signaling(), seen: seen}, "")
	hub.waitRoster(t, 1)
	alice := startPeer(t, sb.Signaling(), hub.self())
	hub.waitRoster(t, 2)
	bob := startPeer(t, sb.Signaling(), hub.self())
	alice.waitRoster(t, 3)

	var err error
	alice.do(func() { err = alice.relay.Send(bob.self(), ping{Type: "hole", Text: "ace of spades"}) })
	require.NoError(t, err)

	ev := bob.next(t, "hole")
	assert.Equal(t, alice.self(), ev.Sender)
	assert.Equal(t, Private, ev.Kind)
	var got ping
	require.NoError(t, json.Unmarshal(ev.Payload, &got))
	assert.Equal(t, "ace of spades", got.Text)

	var privateSeen int
	for len(seen) > 0 {
		relayed := <-seen
		if relayed.Kind != Private {
			continue
		}
		privateSeen++
		typ, err := PayloadType(relayed.Payload)
		require.NoError(t, err)
		assert.Equal(t, TypeEncrypted, typ)
		assert.False(t, strings.Contains(string(relayed.Payload), "ace of spades"))
	}
	assert.Equal(t, 1, privateSeen)
}

func TestDisconnectRemovesMember(t *testing.T) {
	sb := NewSwitchboard()
	hub := startPeer(t, sb.Signaling(), "")
	hub.waitRoster(t, 1)
	leaving := New(sb.Signaling())
	require.NoError(t, leaving.Connect(context.Background(), hub.self()))
	hub.waitRoster(t, 2)
	staying := startPeer(t, sb.Signaling(), hub.self())
	hub.waitRoster(t, 3)

	require.NoError(t, leaving.Close())
	roster := hub.waitRoster(t, 2)
	assert.Equal(t, []PeerID{hub.self(), staying.self()}, roster)
	assert.Equal(t, roster, staying.waitRoster(t, 2))
}

func TestSecondConnectionForLiveIdentityIsRejected(t *testing.T) {
	_, hub, guests := newTable(t, 1)
	hubID, victim := hub.self(), guests[0].self()
	impostor, accepted := pipe(victim, hubID)
	hub.do(func() { hub.relay.Handle(Frame{kind: frameJoined, from: victim, conn: accepted}) })

	_, err := impostor.Recv()
	assert.ErrorIs(t, err, ErrClosed)
	var roster []PeerID
	hub.do(func() { roster = hub.relay.Roster() })
	assert.Equal(t, []PeerID{hubID, victim}, roster)

	hub.do(func() { err = hub.relay.Send(victim, ping{Type: "secret"}) })
	require.NoError(t, err)
	assert.Equal(t, victim, guests[0].next(t, "secret").Recipient)
}

func TestUnknownRecipientIsDropped(t *testing.T) {
	_, hub, _ := newTable(t, 1)
	var err error
	hub.do(func() { err = hub.relay.Send("nobody", ping{Type: "lost"}) })
	assert.NoError(t, err)
}

func TestEmitBeforeConnect(t *testing.T) {
	r := New(NewSwitchboard().Signaling())
	assert.ErrorIs(t, r.Publish(ping{Type: "ping"}), ErrNotConnected)
}

func TestPayloadType(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{"tagged", `{"type":"deck/step1","round":1}`, "deck/step1", false},
		{"untagged", `{"round":1}`, "", true},
		{"garbage", `nope`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PayloadType(json.RawMessage(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.True(t, IsControl(TypeMembers))
	assert.False(t, IsControl("newRound"))
}
