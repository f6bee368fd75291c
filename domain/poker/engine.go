package poker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/luca-patrignani/mental-poker-holdem/domain/deck"
	"github.com/luca-patrignani/mental-poker-holdem/future"
	"github.com/luca-patrignani/mental-poker-holdem/ledger"
	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

const maxSeats = deck.MaxSeats

// Transport publishes betting events to the whole table.
type Transport interface {
	Publish(payload any) error
}

// Dealer is the card side of a round.
type Dealer interface {
	Start(round int, players []relay.PeerID, keyBits int) error
	Deal(round, slot int, recipient relay.PeerID)
	Show(round, slot int)
}

type Option func(*Engine)

func WithEvaluator(e Evaluator) Option {
	return func(en *Engine) { en.evaluator = e }
}

func WithBankroll(b *ledger.Bankroll) Option {
	return func(en *Engine) { en.bankroll = b }
}

func WithObserver(o Observer) Option {
	return func(en *Engine) { en.observer = o }
}

func WithLogger(log *slog.Logger) Option {
	return func(en *Engine) { en.log = log }
}

// Engine is the betting state machine of one peer. It is not safe for
// concurrent use.
type Engine struct {
	transport Transport
	dealer    Dealer
	evaluator Evaluator
	bankroll  *ledger.Bankroll
	observer  Observer
	log       *slog.Logger

	members   []relay.PeerID
	latest    int
	requested int
	rounds    map[int]*Round
}

func NewEngine(t Transport, d Dealer, opts ...Option) *Engine {
	e := &Engine{
		transport: t,
		dealer:    d,
		evaluator: HandEvaluator{},
		bankroll:  ledger.NewBankroll(),
		observer:  ObserverFunc(func(Notice) {}),
		log:       slog.Default(),
		rounds:    make(map[int]*Round),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Bankroll() *ledger.Bankroll {
	return e.bankroll
}

// Latest is the number of the most recent round started, 0 if none.
func (e *Engine) Latest() int {
	return e.latest
}

// Round returns a round the engine has heard of.
func (e *Engine) Round(n int) (*Round, bool) {
	r, ok := e.rounds[n]
	return r, ok && r.started
}

func (e *Engine) round(n int) *Round {
	r, ok := e.rounds[n]
	if !ok {
		r = newRound(n)
		e.rounds[n] = r
	}
	return r
}

func (e *Engine) notify(n Notice) {
	e.observer.Notify(n)
}

func (e *Engine) violation(round int, player relay.PeerID, err error) {
	e.log.Warn("rule violation ignored", "round", round, "player", string(player), "reason", err)
}

// StartNewRound asks every peer to start the next round. The seat order is
// the roster rotated by the round number, so the blinds move every round.
func (e *Engine) StartNewRound(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if len(e.members) < 2 {
		return ErrNotEnoughPlayers
	}
	if len(e.members) > maxSeats {
		return ErrTooManyPlayers
	}
	n := max(e.latest, e.requested) + 1
	k := n % len(e.members)
	players := append(slices.Clone(e.members[k:]), e.members[:k]...)
	e.requested = n
	if err := e.transport.Publish(NewRound{Type: TypeNewRound, Round: n, Players: players, Settings: settings}); err != nil {
		return fmt.Errorf("publishing round %d: %w", n, err)
	}
	if err := e.dealer.Start(n, players, settings.KeyBits); err != nil {
		return fmt.Errorf("starting shuffle of round %d: %w", n, err)
	}
	return nil
}

func (e *Engine) Bet(round, amount int) error {
	return e.transport.Publish(BetAction{Type: TypeBet, Round: round, Amount: amount})
}

func (e *Engine) Fold(round int) error {
	return e.transport.Publish(FoldAction{Type: TypeFold, Round: round})
}

// Handle applies a betting event received from the table.
func (e *Engine) Handle(ev relay.Event) {
	typ, err := relay.PayloadType(ev.Payload)
	if err != nil {
		e.log.Warn("dropping malformed event", "sender", string(ev.Sender), "err", err)
		return
	}
	switch typ {
	case TypeNewRound:
		var msg NewRound
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			e.violation(0, ev.Sender, err)
			return
		}
		e.handleNewRound(msg)
	case TypeBet:
		var msg BetAction
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			e.violation(0, ev.Sender, err)
			return
		}
		e.handleBet(ev.Sender, msg)
	case TypeFold:
		var msg FoldAction
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			e.violation(0, ev.Sender, err)
			return
		}
		e.handleFold(ev.Sender, msg)
	default:
		e.log.Warn("dropping unexpected event", "type", typ, "sender", string(ev.Sender))
	}
}

func (e *Engine) handleNewRound(msg NewRound) {
	if msg.Round <= e.latest {
		e.violation(msg.Round, "", fmt.Errorf("round %d after round %d", msg.Round, e.latest))
		return
	}
	if err := checkPlayers(msg.Players); err != nil {
		e.violation(msg.Round, "", err)
		return
	}
	if err := msg.Settings.Validate(); err != nil {
		e.violation(msg.Round, "", err)
		return
	}
	if msg.Round != e.latest+1 {
		e.log.Warn("rounds skipped", "round", msg.Round, "latest", e.latest)
	}
	if prev, ok := e.rounds[e.latest]; ok && prev.started && prev.Stage != Concluded {
		e.abort(prev)
	}
	e.latest = msg.Round

	r := e.round(msg.Round)
	r.Players = slices.Clone(msg.Players)
	r.Settings = msg.Settings
	r.started = true
	e.notify(PlayersNotice{Round: r.Number, Seats: slices.Clone(r.Players)})

	for _, p := range r.Players {
		if e.bankroll.Funds(string(p)) >= BigBlind {
			continue
		}
		previous := e.bankroll.Replenish(r.Number, string(p), r.Settings.InitialFundAmount)
		e.log.Info("borrowed", "round", r.Number, "player", string(p), "from", previous, "to", r.Settings.InitialFundAmount)
		e.notify(FundNotice{Current: r.Settings.InitialFundAmount, Previous: previous, Player: p, Borrowed: true})
	}

	for seat, p := range r.Players {
		for _, slot := range deck.HoleSlots(seat) {
			e.dealer.Deal(r.Number, slot, p)
		}
	}

	e.commit(r, 0, SmallBlind, ledger.Blind)
	e.commit(r, 1, BigBlind, ledger.Blind)
	e.notify(PotNotice{Round: r.Number, Amount: r.Pot()})
	e.announceCards(r)

	r.lastActor = 1
	e.advance(r)
}

// commit moves amount (capped to the player's funds) from the bankroll of
// seat into the round.
func (e *Engine) commit(r *Round, seat, amount int, reason ledger.Reason) {
	p := r.Players[seat]
	amount = min(amount, e.bankroll.Funds(string(p)))
	previous, current, err := e.bankroll.Debit(r.Number, string(p), amount, reason)
	if err != nil {
		e.log.Error("debit", "round", r.Number, "player", string(p), "err", err)
		return
	}
	r.street[p] += amount
	r.total[p] += amount
	if current == 0 {
		r.allIn[p] = true
	}
	e.notify(BetNotice{Round: r.Number, Amount: amount, Player: p, AllIn: r.allIn[p]})
	e.notify(FundNotice{Current: current, Previous: previous, Player: p})
}

func (e *Engine) handleBet(sender relay.PeerID, msg BetAction) {
	r, ok := e.rounds[msg.Round]
	if !ok {
		e.violation(msg.Round, sender, errors.New("unknown round"))
		return
	}
	if err := checkTurn(r, sender); err != nil {
		e.violation(msg.Round, sender, err)
		return
	}
	funds := e.bankroll.Funds(string(sender))
	current := r.street[sender]
	minRequired := r.minRequired()
	if err := checkBet(msg.Amount, funds, current, minRequired); err != nil {
		e.violation(msg.Round, sender, err)
		return
	}

	target := current + msg.Amount
	switch {
	case target > minRequired:
		clear(r.satisfied)
		r.satisfied[sender] = true
	case target == minRequired:
		r.satisfied[sender] = true
	}
	e.commit(r, r.Acting, msg.Amount, ledger.Bet)
	e.notify(PotNotice{Round: r.Number, Amount: r.Pot()})

	r.lastActor = r.Acting
	e.advance(r)
}

func (e *Engine) handleFold(sender relay.PeerID, msg FoldAction) {
	r, ok := e.rounds[msg.Round]
	if !ok {
		e.violation(msg.Round, sender, errors.New("unknown round"))
		return
	}
	if err := checkTurn(r, sender); err != nil {
		e.violation(msg.Round, sender, err)
		return
	}
	r.folded[sender] = true
	e.notify(FoldNotice{Round: r.Number, Player: sender})
	if live := r.live(); len(live) == 1 {
		e.lastOneWins(r, live[0])
		return
	}
	r.lastActor = r.Acting
	e.advance(r)
}

// SetMembers records the current roster. Seated players that are no longer
// members fold.
func (e *Engine) SetMembers(roster []relay.PeerID) {
	e.members = slices.Clone(roster)
	r, ok := e.rounds[e.latest]
	if !ok || !r.started || r.Stage == Concluded {
		return
	}
	for _, p := range r.Players {
		if slices.Contains(roster, p) || r.folded[p] {
			continue
		}
		e.log.Warn("seated player left the table", "round", r.Number, "player", string(p))
		r.folded[p] = true
		e.notify(FoldNotice{Round: r.Number, Player: p})
	}
	if live := r.live(); len(live) == 1 {
		e.lastOneWins(r, live[0])
		return
	}
	if r.Acting >= 0 && r.folded[r.Players[r.Acting]] {
		r.lastActor = r.Acting
		e.advance(r)
	}
}

// advance hands the turn to the next seat that still has to act, or closes
// the street.
func (e *Engine) advance(r *Round) {
	n := len(r.Players)
	for i := 1; i <= n; i++ {
		seat := (r.lastActor + i) % n
		if !r.canAct(seat) || r.satisfied[r.Players[seat]] {
			continue
		}
		r.Acting = seat
		e.notify(TurnNotice{Round: r.Number, Player: r.Players[seat], CallAmount: r.callAmount(seat)})
		return
	}
	e.endStreet(r)
}

func (e *Engine) endStreet(r *Round) {
	clear(r.satisfied)
	r.Acting = -1
	if r.Stage == River {
		e.showdown(r)
		return
	}
	runout := r.runout()
	var reveal []int
	switch r.Stage {
	case PreFlop:
		reveal = deck.FlopSlots
		if runout {
			reveal = deck.BoardSlots()
		}
	case Flop:
		reveal = []int{deck.TurnSlot}
		if runout {
			reveal = []int{deck.TurnSlot, deck.RiverSlot}
		}
	case Turn:
		reveal = []int{deck.RiverSlot}
	}
	for _, slot := range reveal {
		e.dealer.Show(r.Number, slot)
	}
	r.Stage = nextStage(r.Stage)
	clear(r.street)
	if runout {
		e.showdown(r)
		return
	}

	for seat := range r.Players {
		if r.canAct(seat) {
			r.Acting = seat
			break
		}
	}
	seat, stage := r.Acting, r.Stage
	var board []future.Waiter
	for _, slot := range reveal {
		board = append(board, &r.cards[slot])
	}
	future.All(func() {
		if r.Acting == seat && r.Stage == stage && !r.showdown {
			e.notify(TurnNotice{Round: r.Number, Player: r.Players[seat], CallAmount: 0})
		}
	}, board...)
}

// showdown reveals the board and the hands still in, then settles once all
// of them are known.
func (e *Engine) showdown(r *Round) {
	r.showdown = true
	r.Acting = -1
	e.notify(TurnNotice{Round: r.Number})

	var waiting []future.Waiter
	for _, slot := range deck.BoardSlots() {
		e.dealer.Show(r.Number, slot)
		waiting = append(waiting, &r.cards[slot])
	}
	for _, p := range r.live() {
		for _, slot := range deck.HoleSlots(r.seat(p)) {
			e.dealer.Show(r.Number, slot)
			waiting = append(waiting, &r.cards[slot])
		}
	}
	future.All(func() { e.settle(r) }, waiting...)
}

func (e *Engine) settle(r *Round) {
	if r.Stage == Concluded {
		return
	}
	board := r.Board()
	live := r.live()
	strengths := make(map[relay.PeerID]HandStrength, len(live))
	for _, p := range live {
		hole, ok := r.Hole(p)
		if !ok || len(board) != deck.BoardSize {
			e.log.Error("settling without every card", "round", r.Number, "player", string(p))
			return
		}
		var cards [7]Card
		copy(cards[:], board)
		cards[5], cards[6] = hole[0], hole[1]
		s, err := e.evaluator.Evaluate(cards)
		if err != nil {
			e.log.Error("evaluating hand", "round", r.Number, "player", string(p), "err", err)
			return
		}
		strengths[p] = s
	}
	tiers := rankTiers(live, strengths)
	payouts := distribute(tiers, r.total)
	e.conclude(r, WinningResult{Round: r.Number, Kind: Showdown, Tiers: tiers, Payouts: payouts})
}

func (e *Engine) lastOneWins(r *Round, winner relay.PeerID) {
	r.Acting = -1
	e.notify(TurnNotice{Round: r.Number})
	e.conclude(r, WinningResult{
		Round:   r.Number,
		Kind:    LastOneWins,
		Winner:  winner,
		Payouts: map[relay.PeerID]int{winner: r.Pot()},
	})
}

func (e *Engine) conclude(r *Round, result WinningResult) {
	for _, p := range r.Players {
		amount, ok := result.Payouts[p]
		if !ok {
			continue
		}
		previous, current, err := e.bankroll.Credit(r.Number, string(p), amount, ledger.Win)
		if err != nil {
			e.log.Error("credit", "round", r.Number, "player", string(p), "err", err)
			continue
		}
		e.notify(FundNotice{Current: current, Previous: previous, Player: p})
	}
	r.settled = true
	r.Stage = Concluded
	r.Result = &result
	e.notify(PotNotice{Round: r.Number, Amount: 0})
	e.notify(WinnerNotice{Result: result})
}

// abort ends an unfinished round by giving every commitment back.
func (e *Engine) abort(r *Round) {
	e.log.Warn("aborting unfinished round", "round", r.Number, "stage", r.Stage)
	for _, p := range r.Players {
		if r.total[p] == 0 {
			continue
		}
		previous, current, err := e.bankroll.Credit(r.Number, string(p), r.total[p], ledger.Refund)
		if err != nil {
			e.log.Error("refund", "round", r.Number, "player", string(p), "err", err)
			continue
		}
		e.notify(FundNotice{Current: current, Previous: previous, Player: p})
	}
	r.settled = true
	r.Stage = Concluded
	r.Acting = -1
}

// OnReveal records a card opened by the dealer.
func (e *Engine) OnReveal(rv deck.Reveal) {
	card, err := FromCode(rv.Code)
	if err != nil || rv.Slot < 0 || rv.Slot >= deck.CardCount {
		e.log.Warn("dropping invalid reveal", "round", rv.Round, "slot", rv.Slot, "code", rv.Code)
		return
	}
	r := e.round(rv.Round)
	if existing, ok := r.cards[rv.Slot].Get(); ok {
		if existing != card {
			e.log.Warn("slot opened to two different cards", "round", rv.Round, "slot", rv.Slot)
		}
		return
	}
	r.cards[rv.Slot].Set(card)
	e.announceCards(r)
}

// OnShuffled tells the engine a round's deck is ready.
func (e *Engine) OnShuffled(round int) {
	e.notify(AllSetNotice{Round: round})
}

// announceCards emits board and hole notices for cards not announced yet.
func (e *Engine) announceCards(r *Round) {
	if !r.started {
		return
	}
	board := r.Board()
	if len(board) > r.boardSeen && len(board) >= len(deck.FlopSlots) {
		r.boardSeen = len(board)
		e.notify(BoardNotice{Round: r.Number, Cards: board})
	}
	for _, p := range r.Players {
		if r.holeSeen[p] {
			continue
		}
		if hole, ok := r.Hole(p); ok {
			r.holeSeen[p] = true
			e.notify(HoleNotice{Round: r.Number, Player: p, Cards: hole})
		}
	}
}
