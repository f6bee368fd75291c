package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/luca-patrignani/mental-poker-holdem/domain/deck"
	"github.com/luca-patrignani/mental-poker-holdem/domain/poker"
	"github.com/luca-patrignani/mental-poker-holdem/ledger"
	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

var (
	ErrStopped     = errors.New("application is not running")
	ErrNoRound     = errors.New("no round in progress")
	ErrNotYourTurn = errors.New("not your turn")
	ErrHubLost     = errors.New("connection to the hub lost")
)

// App is one peer at the table.
type App struct {
	relay   *relay.Relay
	dealer  *deck.Orchestrator
	engine  *poker.Engine
	notices *noticeQueue
	log     *slog.Logger

	evaluator poker.Evaluator
	scheme    deck.Scheme
	bankroll  *ledger.Bankroll

	actions chan func()
	stopped chan struct{}

	// cards opened and decks sealed while another event was being handled
	reveals  []deck.Reveal
	shuffled []int
}

func New(signaling relay.Signaling, opts ...Option) *App {
	a := &App{
		log:       slog.Default(),
		evaluator: poker.HandEvaluator{},
		scheme:    deck.Kyber{},
		bankroll:  ledger.NewBankroll(),
		actions:   make(chan func()),
		stopped:   make(chan struct{}),
		notices:   newNoticeQueue(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.relay = relay.New(signaling, relay.WithLogger(a.log))
	a.dealer = deck.NewOrchestrator(a.relay,
		deck.WithLogger(a.log),
		deck.WithScheme(a.scheme),
		deck.OnReveal(func(rv deck.Reveal) { a.reveals = append(a.reveals, rv) }),
		deck.OnShuffled(func(round int) { a.shuffled = append(a.shuffled, round) }),
	)
	a.engine = poker.NewEngine(a.relay, a.dealer,
		poker.WithEvaluator(a.evaluator),
		poker.WithBankroll(a.bankroll),
		poker.WithObserver(a.notices),
		poker.WithLogger(a.log),
	)
	return a
}

// Connect joins the table hosted by hub, or hosts a new one if hub is empty.
// It must be called before Run.
func (a *App) Connect(ctx context.Context, hub relay.PeerID) error {
	if err := a.relay.Connect(ctx, hub); err != nil {
		return err
	}
	a.log = a.log.With("peer", string(a.relay.Self()))
	return nil
}

// Self is the identity obtained by Connect.
func (a *App) Self() relay.PeerID {
	return a.relay.Self()
}

// Notices streams what happens at the table. It is closed when Run returns.
func (a *App) Notices() <-chan poker.Notice {
	return a.notices.out
}

// Run processes events until ctx is done or the hub goes away. It releases
// every connection before returning.
func (a *App) Run(ctx context.Context) error {
	defer a.shutdown()
	a.drain()
	for {
		select {
		case f := <-a.relay.Incoming():
			a.relay.Handle(f)
		case fn := <-a.actions:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
		a.drain()
		if a.relay.State() == relay.Closed {
			return ErrHubLost
		}
	}
}

func (a *App) shutdown() {
	close(a.stopped)
	if err := a.relay.Close(); err != nil {
		a.log.Warn("closing relay", "err", err)
	}
	a.notices.close()
}

// Close releases the connections of an App whose Run was never started.
func (a *App) Close() error {
	a.notices.close()
	return a.relay.Close()
}

// drain processes everything that became available while handling the last
// frame or action.
func (a *App) drain() {
	for {
		if ev, ok := a.relay.Next(); ok {
			a.dispatch(ev)
			continue
		}
		if len(a.reveals) > 0 {
			rv := a.reveals[0]
			a.reveals = a.reveals[1:]
			a.engine.OnReveal(rv)
			continue
		}
		if len(a.shuffled) > 0 {
			round := a.shuffled[0]
			a.shuffled = a.shuffled[1:]
			a.engine.OnShuffled(round)
			continue
		}
		return
	}
}

func (a *App) dispatch(ev relay.Event) {
	typ, err := relay.PayloadType(ev.Payload)
	if err != nil {
		a.log.Warn("dropping malformed event", "sender", string(ev.Sender), "err", err)
		return
	}
	switch {
	case typ == relay.TypeMembers:
		roster, err := relay.Roster(ev)
		if err != nil {
			a.log.Warn("dropping malformed roster", "err", err)
			return
		}
		a.engine.SetMembers(roster)
	case deck.IsMessage(typ):
		a.dealer.Handle(ev)
	case poker.IsMessage(typ):
		a.engine.Handle(ev)
	default:
		a.log.Debug("dropping event of unknown type", "type", typ, "sender", string(ev.Sender))
	}
}

// do runs fn on the event loop and waits for it to finish.
func (a *App) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case a.actions <- func() {
		defer close(finished)
		fn()
	}:
	case <-a.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (a *App) StartNewRound(ctx context.Context, settings poker.Settings) error {
	var err error
	if doErr := a.do(ctx, func() { err = a.engine.StartNewRound(settings) }); doErr != nil {
		return doErr
	}
	return err
}

// Bet commits amount to the current round. Zero checks, the call amount
// calls, more raises.
func (a *App) Bet(ctx context.Context, amount int) error {
	return a.act(ctx, func(round int) error { return a.engine.Bet(round, amount) })
}

func (a *App) Fold(ctx context.Context) error {
	return a.act(ctx, a.engine.Fold)
}

func (a *App) act(ctx context.Context, action func(round int) error) error {
	var err error
	doErr := a.do(ctx, func() {
		r, ok := a.engine.Round(a.engine.Latest())
		switch {
		case !ok || r.Stage == poker.Concluded:
			err = ErrNoRound
		case r.Acting < 0 || r.Players[r.Acting] != a.relay.Self():
			err = ErrNotYourTurn
		default:
			err = action(r.Number)
		}
	})
	if doErr != nil {
		return doErr
	}
	if err != nil {
		return fmt.Errorf("acting: %w", err)
	}
	return nil
}

// Seat is the public view of one player of a round.
type Seat struct {
	Player    relay.PeerID `json:"player"`
	Funds     int          `json:"funds"`
	Committed int          `json:"committed"`
	Folded    bool         `json:"folded"`
	AllIn     bool         `json:"allIn"`
}

// Snapshot is what the local peer knows of the table between two events.
type Snapshot struct {
	Self   relay.PeerID         `json:"self"`
	Hub    relay.PeerID         `json:"hub"`
	Roster []relay.PeerID       `json:"roster"`
	Round  int                  `json:"round"`
	Stage  poker.Stage          `json:"stage,omitempty"`
	Seats  []Seat               `json:"seats,omitempty"`
	Acting relay.PeerID         `json:"acting,omitempty"`
	Board  []poker.Card         `json:"board,omitempty"`
	Hole   []poker.Card         `json:"hole,omitempty"`
	Pot    int                  `json:"pot"`
	Result *poker.WinningResult `json:"result,omitempty"`
}

func (a *App) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := a.do(ctx, func() { s = a.snapshot() })
	return s, err
}

func (a *App) snapshot() Snapshot {
	s := Snapshot{
		Self:   a.relay.Self(),
		Hub:    a.relay.Hub(),
		Roster: a.relay.Roster(),
		Round:  a.engine.Latest(),
	}
	r, ok := a.engine.Round(s.Round)
	if !ok {
		return s
	}
	s.Stage = r.Stage
	s.Pot = r.Pot()
	s.Board = r.Board()
	s.Result = r.Result
	if r.Acting >= 0 {
		s.Acting = r.Players[r.Acting]
	}
	if hole, ok := r.Hole(s.Self); ok {
		s.Hole = hole[:]
	}
	for _, p := range r.Players {
		s.Seats = append(s.Seats, Seat{
			Player:    p,
			Funds:     a.bankroll.Funds(string(p)),
			Committed: r.Committed(p),
			Folded:    r.Folded(p),
			AllIn:     r.AllIn(p),
		})
	}
	return s
}

// Ledger returns a copy of the local bankroll log.
func (a *App) Ledger(ctx context.Context) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	err := a.do(ctx, func() { entries = slices.Clone(a.bankroll.Entries()) })
	return entries, err
}
