package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luca-patrignani/mental-poker-holdem/future"
	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

// Transport is the part of the relay the orchestrator talks through.
type Transport interface {
	Self() relay.PeerID
	Publish(payload any) error
	Send(to relay.PeerID, payload any) error
}

// Reveal is a card the local peer has been able to open.
type Reveal struct {
	Round  int
	Slot   int
	Code   int
	Public bool
}

type Option func(*Orchestrator)

func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

func WithScheme(s Scheme) Option {
	return func(o *Orchestrator) { o.scheme = s }
}

// OnReveal sets the function called for every card opened locally.
func OnReveal(fn func(Reveal)) Option {
	return func(o *Orchestrator) { o.onReveal = fn }
}

// OnShuffled sets the function called once a round's sealed deck is known.
func OnShuffled(fn func(round int)) Option {
	return func(o *Orchestrator) { o.onShuffled = fn }
}

// Orchestrator drives the protocol for every round the local peer hears of.
// It is not safe for concurrent use.
type Orchestrator struct {
	transport  Transport
	scheme     Scheme
	log        *slog.Logger
	rounds     map[int]*round
	onReveal   func(Reveal)
	onShuffled func(int)
}

func NewOrchestrator(t Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport:  t,
		scheme:     Kyber{},
		log:        slog.Default(),
		rounds:     make(map[int]*round),
		onReveal:   func(Reveal) {},
		onShuffled: func(int) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type shares struct {
	first, second future.Value[[]byte]
}

func (s *shares) of(name RoleName) *future.Value[[]byte] {
	if name == First {
		return &s.first
	}
	return &s.second
}

type step1 struct {
	deck   Sealed
	params []byte
}

type dealing struct {
	slot      int
	recipient relay.PeerID
}

type round struct {
	number  int
	roles   future.Value[Roles]
	keyBits int

	step1  future.Value[step1]
	step2  future.Value[Sealed]
	step3  future.Value[Sealed]
	sealed future.Value[Sealed]

	local Role
	// ready fires when the local role can hand out individual keys.
	ready future.Signal

	private map[int]*shares
	public  map[int]*shares
	dealt   map[dealing]bool
	shown   map[int]bool
}

func (o *Orchestrator) round(n int) *round {
	if r, ok := o.rounds[n]; ok {
		return r
	}
	r := &round{
		number:  n,
		private: make(map[int]*shares),
		public:  make(map[int]*shares),
		dealt:   make(map[dealing]bool),
		shown:   make(map[int]bool),
	}
	r.sealed.Then(func(Sealed) { o.onShuffled(n) })
	o.rounds[n] = r
	return r
}

// Start announces a round whose first two players hold the roles.
func (o *Orchestrator) Start(round int, players []relay.PeerID, keyBits int) error {
	if len(players) < 2 {
		return fmt.Errorf("round %d: need two players to shuffle, have %d", round, len(players))
	}
	return o.transport.Publish(Start{
		Type:    TypeStart,
		Round:   round,
		Roles:   Roles{First: players[0], Second: players[1]},
		KeyBits: keyBits,
	})
}

// Shuffled reports whether the sealed deck of a round is known.
func (o *Orchestrator) Shuffled(round int) bool {
	r, ok := o.rounds[round]
	return ok && r.sealed.Known()
}

// Deal has the local role, if any, send its share of slot to recipient.
func (o *Orchestrator) Deal(round, slot int, recipient relay.PeerID) {
	r := o.round(round)
	key := dealing{slot: slot, recipient: recipient}
	if r.dealt[key] {
		return
	}
	r.dealt[key] = true
	o.release(r, slot, func(msg Decrypt) error { return o.transport.Send(recipient, msg) })
}

// Show has the local role, if any, publish its share of slot.
func (o *Orchestrator) Show(round, slot int) {
	r := o.round(round)
	if r.shown[slot] {
		return
	}
	r.shown[slot] = true
	o.release(r, slot, func(msg Decrypt) error { return o.transport.Publish(msg) })
}

func (o *Orchestrator) release(r *round, slot int, emit func(Decrypt) error) {
	r.roles.Then(func(roles Roles) {
		name, ok := roles.of(o.transport.Self())
		if !ok {
			return
		}
		r.ready.Then(func(struct{}) {
			key, err := r.local.IndividualKey(slot)
			if err != nil {
				o.log.Error("individual key", "round", r.number, "slot", slot, "err", err)
				return
			}
			msg := Decrypt{Type: TypeDecrypt, Round: r.number, Slot: slot, Role: name, Key: key}
			if err := emit(msg); err != nil {
				o.log.Warn("releasing key share", "round", r.number, "slot", slot, "err", err)
			}
		})
	})
}

// Handle processes one protocol event.
func (o *Orchestrator) Handle(ev relay.Event) {
	typ, err := relay.PayloadType(ev.Payload)
	if err != nil {
		o.violation(ev, 0, err)
		return
	}
	switch typ {
	case TypeStart:
		var msg Start
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			o.violation(ev, 0, err)
			return
		}
		o.handleStart(ev, msg)
	case TypeStep1, TypeStep2, TypeStep3, TypeFinalized:
		var msg Step
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			o.violation(ev, 0, err)
			return
		}
		o.handleStep(ev, typ, msg)
	case TypeDecrypt:
		var msg Decrypt
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			o.violation(ev, 0, err)
			return
		}
		o.handleDecrypt(ev, msg)
	default:
		o.violation(ev, 0, fmt.Errorf("unexpected payload %q", typ))
	}
}

func (o *Orchestrator) violation(ev relay.Event, round int, err error) {
	o.log.Warn("protocol violation", "sender", string(ev.Sender), "round", round, "err", err)
}

func (o *Orchestrator) handleStart(ev relay.Event, msg Start) {
	if msg.Round <= 0 || msg.Roles.First == "" || msg.Roles.Second == "" || msg.Roles.First == msg.Roles.Second {
		o.violation(ev, msg.Round, errors.New("invalid role assignment"))
		return
	}
	r := o.round(msg.Round)
	if r.roles.Known() {
		o.violation(ev, msg.Round, errors.New("round already started"))
		return
	}
	r.keyBits = msg.KeyBits
	r.roles.Set(msg.Roles)
	switch o.transport.Self() {
	case msg.Roles.First:
		o.runFirst(r)
	case msg.Roles.Second:
		o.runSecond(r)
	}
}

// runFirst builds and shuffles the canonical deck, then seals the deck the
// second role sends back.
func (o *Orchestrator) runFirst(r *round) {
	role, err := o.scheme.NewRole(true, CardCount, r.keyBits, nil)
	if err != nil {
		o.log.Error("creating first role", "round", r.number, "err", err)
		return
	}
	r.local = role
	canonical, err := o.scheme.CanonicalDeck(CardCount)
	if err != nil {
		o.log.Error("building deck", "round", r.number, "err", err)
		return
	}
	shuffled, err := role.EncryptAndShuffle(canonical)
	if err != nil {
		o.log.Error("shuffling deck", "round", r.number, "err", err)
		return
	}
	params, err := role.Params()
	if err != nil {
		o.log.Error("encoding key parameters", "round", r.number, "err", err)
		return
	}
	o.publish(r, Step{Type: TypeStep1, Round: r.number, Deck: shuffled, Params: params})

	r.step2.Then(func(deck Sealed) {
		sealed, err := role.SealIndividually(deck)
		if err != nil {
			o.log.Error("sealing deck", "round", r.number, "err", err)
			return
		}
		future.Fire(&r.ready)
		o.publish(r, Step{Type: TypeStep3, Round: r.number, Deck: sealed})
	})
}

func (o *Orchestrator) runSecond(r *round) {
	r.step1.Then(func(s step1) {
		role, err := o.scheme.NewRole(false, CardCount, r.keyBits, s.params)
		if err != nil {
			o.log.Error("creating second role", "round", r.number, "err", err)
			return
		}
		r.local = role
		shuffled, err := role.EncryptAndShuffle(s.deck)
		if err != nil {
			o.log.Error("shuffling deck", "round", r.number, "err", err)
			return
		}
		o.publish(r, Step{Type: TypeStep2, Round: r.number, Deck: shuffled})

		r.step3.Then(func(deck Sealed) {
			sealed, err := role.SealIndividually(deck)
			if err != nil {
				o.log.Error("sealing deck", "round", r.number, "err", err)
				return
			}
			future.Fire(&r.ready)
			o.publish(r, Step{Type: TypeFinalized, Round: r.number, Deck: sealed})
		})
	})
}

func (o *Orchestrator) publish(r *round, msg Step) {
	if err := o.transport.Publish(msg); err != nil {
		o.log.Warn("publishing deck", "round", r.number, "type", msg.Type, "err", err)
	}
}

func (o *Orchestrator) handleStep(ev relay.Event, typ string, msg Step) {
	if msg.Round <= 0 || len(msg.Deck) != CardCount {
		o.violation(ev, msg.Round, fmt.Errorf("%s with %d cards", typ, len(msg.Deck)))
		return
	}
	r := o.round(msg.Round)
	author := Second
	if typ == TypeStep1 || typ == TypeStep3 {
		author = First
	}
	r.roles.Then(func(roles Roles) {
		if ev.Sender != roles.holder(author) {
			o.violation(ev, msg.Round, fmt.Errorf("%s not sent by the %s role", typ, author))
			return
		}
		var fresh bool
		switch typ {
		case TypeStep1:
			fresh = r.step1.Set(step1{deck: msg.Deck, params: msg.Params})
		case TypeStep2:
			fresh = r.step2.Set(msg.Deck)
		case TypeStep3:
			fresh = r.step3.Set(msg.Deck)
		case TypeFinalized:
			fresh = r.sealed.Set(msg.Deck)
		}
		if !fresh {
			o.violation(ev, msg.Round, fmt.Errorf("duplicate %s", typ))
		}
	})
}

func (o *Orchestrator) handleDecrypt(ev relay.Event, msg Decrypt) {
	if msg.Round <= 0 || msg.Slot < 0 || msg.Slot >= CardCount || (msg.Role != First && msg.Role != Second) {
		o.violation(ev, msg.Round, fmt.Errorf("malformed share for slot %d", msg.Slot))
		return
	}
	r := o.round(msg.Round)
	public := ev.Kind == relay.Public
	r.roles.Then(func(roles Roles) {
		if ev.Sender != roles.holder(msg.Role) {
			o.violation(ev, msg.Round, fmt.Errorf("share of the %s role sent by someone else", msg.Role))
			return
		}
		if !o.shares(r, msg.Slot, public).of(msg.Role).Set(msg.Key) {
			o.log.Debug("duplicate share", "round", msg.Round, "slot", msg.Slot, "role", msg.Role)
		}
	})
}

// shares returns the share record of a slot, wiring the reveal the first
// time it is asked for.
func (o *Orchestrator) shares(r *round, slot int, public bool) *shares {
	set := r.private
	if public {
		set = r.public
	}
	if s, ok := set[slot]; ok {
		return s
	}
	s := &shares{}
	set[slot] = s
	future.All(func() {
		first, _ := s.first.Get()
		second, _ := s.second.Get()
		deck, _ := r.sealed.Get()
		code, err := o.scheme.CombineAndDecrypt(first, second, deck[slot])
		if err != nil {
			o.log.Warn("cannot open card", "round", r.number, "slot", slot, "err", err)
			return
		}
		o.onReveal(Reveal{Round: r.number, Slot: slot, Code: code, Public: public})
	}, &s.first, &s.second, &r.sealed)
	return s
}
