package poker

import (
	"slices"

	"github.com/luca-patrignani/mental-poker-holdem/domain/deck"
	"github.com/luca-patrignani/mental-poker-holdem/future"
	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

type Stage string

const (
	PreFlop   Stage = "PRE_FLOP"
	Flop      Stage = "FLOP"
	Turn      Stage = "TURN"
	River     Stage = "RIVER"
	Concluded Stage = "CONCLUDED"
)

// nextStage returns the stage after current. Concluded is terminal.
func nextStage(current Stage) Stage {
	stages := []Stage{PreFlop, Flop, Turn, River, Concluded}
	i := slices.Index(stages, current)
	if i < 0 || i == len(stages)-1 {
		return Concluded
	}
	return stages[i+1]
}

// Round is the state of one hand. Its card slots can be filled before the
// round itself is known, since reveals and the start event come from
// different senders.
type Round struct {
	Number   int
	Players  []relay.PeerID
	Settings Settings
	Stage    Stage
	Result   *WinningResult

	// Acting is the seat expected to act, or -1.
	Acting int

	started   bool
	settled   bool
	showdown  bool
	lastActor int

	street    map[relay.PeerID]int
	total     map[relay.PeerID]int
	folded    map[relay.PeerID]bool
	allIn     map[relay.PeerID]bool
	satisfied map[relay.PeerID]bool

	cards     [deck.CardCount]future.Value[Card]
	boardSeen int
	holeSeen  map[relay.PeerID]bool
}

func newRound(n int) *Round {
	return &Round{
		Number:    n,
		Stage:     PreFlop,
		Acting:    -1,
		street:    make(map[relay.PeerID]int),
		total:     make(map[relay.PeerID]int),
		folded:    make(map[relay.PeerID]bool),
		allIn:     make(map[relay.PeerID]bool),
		satisfied: make(map[relay.PeerID]bool),
		holeSeen:  make(map[relay.PeerID]bool),
	}
}

func (r *Round) seat(p relay.PeerID) int {
	return slices.Index(r.Players, p)
}

// Pot is what has been committed and not yet paid out.
func (r *Round) Pot() int {
	if r.settled {
		return 0
	}
	pot := 0
	for _, c := range r.total {
		pot += c
	}
	return pot
}

// Committed is what p has put in the pot since the round started.
func (r *Round) Committed(p relay.PeerID) int {
	return r.total[p]
}

func (r *Round) minRequired() int {
	m := 0
	for _, c := range r.street {
		m = max(m, c)
	}
	return m
}

func (r *Round) callAmount(seat int) int {
	return r.minRequired() - r.street[r.Players[seat]]
}

// canAct reports whether the player in seat still takes decisions.
func (r *Round) canAct(seat int) bool {
	p := r.Players[seat]
	return !r.folded[p] && !r.allIn[p]
}

// live returns the non-folded players in seat order.
func (r *Round) live() []relay.PeerID {
	var live []relay.PeerID
	for _, p := range r.Players {
		if !r.folded[p] {
			live = append(live, p)
		}
	}
	return live
}

// runout reports whether at most one non-folded player is not all-in, in
// which case no more betting can happen.
func (r *Round) runout() bool {
	active := 0
	for seat := range r.Players {
		if r.canAct(seat) {
			active++
		}
	}
	return active <= 1
}

// Board returns the known prefix of the board.
func (r *Round) Board() []Card {
	var board []Card
	for slot := range deck.BoardSize {
		c, ok := r.cards[slot].Get()
		if !ok {
			break
		}
		board = append(board, c)
	}
	return board
}

// Hole returns the hole cards of p when both are known.
func (r *Round) Hole(p relay.PeerID) ([2]Card, bool) {
	seat := r.seat(p)
	if seat < 0 {
		return [2]Card{}, false
	}
	var hole [2]Card
	for i, slot := range deck.HoleSlots(seat) {
		c, ok := r.cards[slot].Get()
		if !ok {
			return [2]Card{}, false
		}
		hole[i] = c
	}
	return hole, true
}

func (r *Round) Folded(p relay.PeerID) bool {
	return r.folded[p]
}

func (r *Round) AllIn(p relay.PeerID) bool {
	return r.allIn[p]
}
