package poker

import (
	"encoding/json"
	"testing"

	"github.com/luca-patrignani/mental-poker-holdem/domain/deck"
	"github.com/luca-patrignani/mental-poker-holdem/ledger"
	"github.com/luca-patrignani/mental-poker-holdem/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// table drives one Engine with a scripted dealer. Deals are opened only for
// self, shows for everyone, and every card is slot+1 unless codes says
// otherwise.
type table struct {
	self    relay.PeerID
	engine  *Engine
	members []relay.PeerID
	queue   []relay.Event
	pending []deck.Reveal
	codes   map[int]int
	shown   map[int]bool
	started []int
	notices []Notice
}

func newTable(self relay.PeerID, opts ...Option) *table {
	tb := &table{self: self, codes: make(map[int]int), shown: make(map[int]bool)}
	opts = append([]Option{WithObserver(ObserverFunc(func(n Notice) {
		tb.notices = append(tb.notices, n)
	}))}, opts...)
	tb.engine = NewEngine(tb, tb, opts...)
	return tb
}

func (tb *table) Publish(payload any) error {
	return tb.from(tb.self, payload)
}

func (tb *table) from(sender relay.PeerID, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	tb.queue = append(tb.queue, relay.Event{Kind: relay.Public, Sender: sender, Payload: b})
	return nil
}

func (tb *table) Start(round int, _ []relay.PeerID, _ int) error {
	tb.started = append(tb.started, round)
	return nil
}

func (tb *table) Deal(round, slot int, recipient relay.PeerID) {
	if recipient == tb.self {
		tb.pending = append(tb.pending, tb.card(round, slot))
	}
}

func (tb *table) Show(round, slot int) {
	if tb.shown[slot] {
		return
	}
	tb.shown[slot] = true
	tb.pending = append(tb.pending, tb.card(round, slot))
}

func (tb *table) card(round, slot int) deck.Reveal {
	code, ok := tb.codes[slot]
	if !ok {
		code = slot + 1
	}
	return deck.Reveal{Round: round, Slot: slot, Code: code}
}

func (tb *table) flush() {
	for len(tb.queue) > 0 || len(tb.pending) > 0 {
		if len(tb.pending) > 0 {
			rv := tb.pending[0]
			tb.pending = tb.pending[1:]
			tb.engine.OnReveal(rv)
			continue
		}
		ev := tb.queue[0]
		tb.queue = tb.queue[1:]
		tb.engine.Handle(ev)
	}
}

func (tb *table) newRound(n int, players []relay.PeerID, funds int) {
	clear(tb.shown)
	_ = tb.from(players[0], NewRound{Type: TypeNewRound, Round: n, Players: players, Settings: Settings{InitialFundAmount: funds}})
	tb.flush()
}

func (tb *table) bet(n int, p relay.PeerID, amount int) {
	_ = tb.from(p, BetAction{Type: TypeBet, Round: n, Amount: amount})
	tb.flush()
}

func (tb *table) fold(n int, p relay.PeerID) {
	_ = tb.from(p, FoldAction{Type: TypeFold, Round: n})
	tb.flush()
}

func (tb *table) acting(n int) relay.PeerID {
	r, ok := tb.engine.Round(n)
	if !ok || r.Acting < 0 {
		return ""
	}
	return r.Players[r.Acting]
}

func noticesOf[N Notice](tb *table) []N {
	var found []N
	for _, n := range tb.notices {
		if v, ok := n.(N); ok {
			found = append(found, v)
		}
	}
	return found
}

func card(t *testing.T, suit, rank uint8) int {
	c, err := NewCard(suit, rank)
	require.NoError(t, err)
	return c.Code()
}

func TestCheckedDownRoundGoesToShowdown(t *testing.T) {
	tb := newTable("alice")
	tb.codes = map[int]int{
		0: card(t, Club, 2), 1: card(t, Diamond, 7), 2: card(t, Heart, 9),
		3: card(t, Spade, Jack), 4: card(t, Diamond, 4),
		5: card(t, Spade, Ace), 6: card(t, Heart, Ace),
		7: card(t, Club, King), 8: card(t, Diamond, Queen),
	}
	players := []relay.PeerID{"alice", "bob"}
	tb.newRound(1, players, 100)

	r, ok := tb.engine.Round(1)
	require.True(t, ok)
	assert.Equal(t, 3, r.Pot())
	assert.Equal(t, relay.PeerID("alice"), tb.acting(1))

	tb.bet(1, "alice", 1)
	assert.Equal(t, 4, r.Pot())
	assert.Equal(t, relay.PeerID("bob"), tb.acting(1))
	tb.bet(1, "bob", 0)

	for _, stage := range []Stage{Flop, Turn, River} {
		require.Equal(t, stage, r.Stage)
		tb.bet(1, "alice", 0)
		tb.bet(1, "bob", 0)
	}

	require.Equal(t, Concluded, r.Stage)
	require.NotNil(t, r.Result)
	assert.Equal(t, Showdown, r.Result.Kind)
	assert.Equal(t, map[relay.PeerID]int{"alice": 4}, r.Result.Payouts)
	assert.Equal(t, []relay.PeerID{"alice"}, r.Result.Tiers[0].Players)
	assert.NotEmpty(t, r.Result.Tiers[0].Description)
	assert.Equal(t, 0, r.Pot())

	b := tb.engine.Bankroll()
	assert.Equal(t, 102, b.Funds("alice"))
	assert.Equal(t, 98, b.Funds("bob"))
	assert.Equal(t, b.TotalBorrowed(), b.Total())
	assert.NoError(t, b.Verify())

	boards := noticesOf[BoardNotice](tb)
	require.Len(t, boards, 3)
	assert.Len(t, boards[0].Cards, 3)
	assert.Len(t, boards[2].Cards, 5)
	winners := noticesOf[WinnerNotice](tb)
	require.Len(t, winners, 1)
}

func TestFoldLeavesLastPlayer(t *testing.T) {
	tb := newTable("alice")
	tb.newRound(1, []relay.PeerID{"alice", "bob"}, 100)
	tb.bet(1, "alice", 1)
	tb.fold(1, "bob")

	r, _ := tb.engine.Round(1)
	assert.Equal(t, Concluded, r.Stage)
	require.NotNil(t, r.Result)
	assert.Equal(t, LastOneWins, r.Result.Kind)
	assert.Equal(t, relay.PeerID("alice"), r.Result.Winner)
	assert.Equal(t, map[relay.PeerID]int{"alice": 4}, r.Result.Payouts)
	assert.Empty(t, tb.shown)
	assert.Empty(t, noticesOf[BoardNotice](tb))
	assert.Equal(t, 102, tb.engine.Bankroll().Funds("alice"))
	assert.Equal(t, 98, tb.engine.Bankroll().Funds("bob"))
}

type scriptedEvaluator map[int]int

func (s scriptedEvaluator) Evaluate(cards [7]Card) (HandStrength, error) {
	return HandStrength{Score: s[cards[5].Code()], Category: "scripted"}, nil
}

func TestSidePotReturnsUnmatchedChips(t *testing.T) {
	b := ledger.NewBankroll()
	b.Replenish(0, "a", 10)
	b.Replenish(0, "b", 10)
	b.Replenish(0, "c", 100)
	// first hole card of seats 0, 1 and 2 is slot 5, 7 and 9
	tb := newTable("a", WithBankroll(b), WithEvaluator(scriptedEvaluator{6: 10, 8: 10, 10: 1}))
	tb.newRound(1, []relay.PeerID{"a", "b", "c"}, 10)

	assert.Equal(t, relay.PeerID("c"), tb.acting(1))
	tb.bet(1, "c", 30)
	tb.bet(1, "a", 9)
	tb.bet(1, "b", 8)

	r, _ := tb.engine.Round(1)
	require.Equal(t, Concluded, r.Stage)
	assert.Equal(t, 10, r.Committed("a"))
	assert.Equal(t, 10, r.Committed("b"))
	assert.Equal(t, 30, r.Committed("c"))
	require.Len(t, r.Result.Tiers, 2)
	assert.ElementsMatch(t, []relay.PeerID{"a", "b"}, r.Result.Tiers[0].Players)
	assert.Equal(t, map[relay.PeerID]int{"a": 15, "b": 15, "c": 20}, r.Result.Payouts)
	assert.Equal(t, 90, b.Funds("c"))
	assert.Equal(t, b.TotalBorrowed(), b.Total())
}

func shownSlots(tb *table) []int {
	var slots []int
	for slot := range deck.CardCount {
		if tb.shown[slot] {
			slots = append(slots, slot)
		}
	}
	return slots
}

func TestAllInPreFlopRunsOutTheBoard(t *testing.T) {
	b := ledger.NewBankroll()
	b.Replenish(0, "alice", 10)
	b.Replenish(0, "bob", 100)
	tb := newTable("alice", WithBankroll(b))
	tb.newRound(1, []relay.PeerID{"alice", "bob"}, 10)
	assert.Empty(t, shownSlots(tb))

	tb.bet(1, "alice", 9)
	r, _ := tb.engine.Round(1)
	require.True(t, r.AllIn("alice"))
	tb.bet(1, "bob", 8)

	assert.False(t, r.AllIn("bob"))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, shownSlots(tb))
	assert.Equal(t, Concluded, r.Stage)
	require.NotNil(t, r.Result)
	assert.Equal(t, Showdown, r.Result.Kind)
	assert.Equal(t, 0, r.Pot())
	assert.Equal(t, b.TotalBorrowed(), b.Total())
}

func TestAllInOnTheFlopShowsTurnAndRiverTogether(t *testing.T) {
	tb := newTable("alice")
	tb.newRound(1, []relay.PeerID{"alice", "bob"}, 100)
	tb.bet(1, "alice", 1)
	tb.bet(1, "bob", 0)

	r, _ := tb.engine.Round(1)
	require.Equal(t, Flop, r.Stage)
	assert.Equal(t, []int{0, 1, 2}, shownSlots(tb))
	require.Equal(t, relay.PeerID("alice"), tb.acting(1))

	tb.bet(1, "alice", 98)
	assert.Equal(t, []int{0, 1, 2}, shownSlots(tb))
	tb.bet(1, "bob", 98)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, shownSlots(tb))
	assert.Equal(t, Concluded, r.Stage)
	require.NotNil(t, r.Result)
	assert.Equal(t, Showdown, r.Result.Kind)
	b := tb.engine.Bankroll()
	assert.Equal(t, 200, b.Funds("alice")+b.Funds("bob"))
}

func TestOutOfTurnActionsAreIgnored(t *testing.T) {
	tb := newTable("alice")
	tb.newRound(1, []relay.PeerID{"alice", "bob", "carol"}, 50)
	r, _ := tb.engine.Round(1)
	require.Equal(t, relay.PeerID("carol"), tb.acting(1))

	tb.bet(1, "alice", 5)
	tb.fold(1, "bob")
	tb.bet(1, "carol", 1)
	tb.bet(1, "carol", 60)
	tb.bet(2, "carol", 2)

	assert.Equal(t, 3, r.Pot())
	assert.False(t, r.Folded("bob"))
	assert.Equal(t, relay.PeerID("carol"), tb.acting(1))

	tb.bet(1, "carol", 2)
	assert.Equal(t, relay.PeerID("alice"), tb.acting(1))
}

func TestRoundsOnlyMoveForward(t *testing.T) {
	tb := newTable("alice")
	players := []relay.PeerID{"alice", "bob"}
	tb.newRound(2, players, 100)
	tb.newRound(1, players, 100)
	tb.newRound(2, players, 100)

	assert.Equal(t, 2, tb.engine.Latest())
	_, ok := tb.engine.Round(1)
	assert.False(t, ok)
	assert.Len(t, noticesOf[PlayersNotice](tb), 1)
}

func TestNewRoundRefundsUnfinishedRound(t *testing.T) {
	tb := newTable("alice")
	players := []relay.PeerID{"alice", "bob"}
	tb.newRound(1, players, 100)
	tb.bet(1, "alice", 5)
	tb.newRound(2, []relay.PeerID{"bob", "alice"}, 100)

	first, _ := tb.engine.Round(1)
	assert.Equal(t, Concluded, first.Stage)
	assert.Nil(t, first.Result)
	b := tb.engine.Bankroll()
	assert.Equal(t, 98, b.Funds("alice"))
	assert.Equal(t, 99, b.Funds("bob"))
	second, _ := tb.engine.Round(2)
	assert.Equal(t, b.TotalBorrowed(), b.Total()+second.Pot())
}

func TestDepartedPlayerFolds(t *testing.T) {
	tb := newTable("alice")
	players := []relay.PeerID{"alice", "bob", "carol"}
	tb.engine.SetMembers(players)
	tb.newRound(1, players, 100)
	require.Equal(t, relay.PeerID("carol"), tb.acting(1))

	tb.engine.SetMembers([]relay.PeerID{"alice", "bob"})
	r, _ := tb.engine.Round(1)
	assert.True(t, r.Folded("carol"))
	assert.Equal(t, relay.PeerID("alice"), tb.acting(1))

	tb.engine.SetMembers([]relay.PeerID{"alice"})
	require.NotNil(t, r.Result)
	assert.Equal(t, relay.PeerID("alice"), r.Result.Winner)
}

func TestStartNewRoundRotatesSeats(t *testing.T) {
	tb := newTable("alice")
	settings := Settings{InitialFundAmount: 20}
	require.ErrorIs(t, tb.engine.StartNewRound(settings), ErrNotEnoughPlayers)

	tb.engine.SetMembers([]relay.PeerID{"alice", "bob", "carol"})
	require.ErrorIs(t, tb.engine.StartNewRound(Settings{InitialFundAmount: 1}), ErrInvalidSettings)
	require.NoError(t, tb.engine.StartNewRound(settings))
	tb.flush()

	r, ok := tb.engine.Round(1)
	require.True(t, ok)
	assert.Equal(t, []relay.PeerID{"bob", "carol", "alice"}, r.Players)
	assert.Equal(t, []int{1}, tb.started)
	assert.Len(t, noticesOf[HoleNotice](tb), 1)

	require.NoError(t, tb.engine.StartNewRound(settings))
	tb.flush()
	r, _ = tb.engine.Round(2)
	assert.Equal(t, []relay.PeerID{"carol", "alice", "bob"}, r.Players)
}

func TestBrokePlayerBorrows(t *testing.T) {
	b := ledger.NewBankroll()
	b.Replenish(0, "bob", 1)
	tb := newTable("alice", WithBankroll(b))
	tb.newRound(1, []relay.PeerID{"alice", "bob"}, 30)

	assert.Equal(t, 29, b.Funds("alice"))
	assert.Equal(t, 28, b.Funds("bob"))
	var borrowed []relay.PeerID
	for _, n := range noticesOf[FundNotice](tb) {
		if n.Borrowed {
			borrowed = append(borrowed, n.Player)
		}
	}
	assert.ElementsMatch(t, []relay.PeerID{"alice", "bob"}, borrowed)
}

func TestChipsAreConserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(2, 5).Draw(t, "players")
		all := []relay.PeerID{"p0", "p1", "p2", "p3", "p4"}[:count]
		tb := newTable(all[0])
		rounds := rapid.IntRange(1, 4).Draw(t, "rounds")
		for n := 1; n <= rounds; n++ {
			k := n % count
			players := append(append([]relay.PeerID{}, all[k:]...), all[:k]...)
			tb.newRound(n, players, 20)
			r, ok := tb.engine.Round(n)
			if !ok {
				t.Fatalf("round %d did not start", n)
			}
			for step := 0; r.Stage != Concluded; step++ {
				if step > 200 {
					t.Fatalf("round %d does not end", n)
				}
				p := tb.acting(n)
				if p == "" {
					t.Fatalf("round %d stuck at %s", n, r.Stage)
				}
				funds := tb.engine.Bankroll().Funds(string(p))
				call := min(r.callAmount(r.Acting), funds)
				switch rapid.IntRange(0, 3).Draw(t, "action") {
				case 0:
					tb.fold(n, p)
				case 1:
					tb.bet(n, p, call)
				case 2:
					tb.bet(n, p, funds)
				default:
					tb.bet(n, p, call+rapid.IntRange(0, funds-call).Draw(t, "raise"))
				}
				b := tb.engine.Bankroll()
				if b.Total()+r.Pot() != b.TotalBorrowed() {
					t.Fatalf("chips leaked: %d in bankrolls, %d in pot, %d borrowed", b.Total(), r.Pot(), b.TotalBorrowed())
				}
			}
			if r.Pot() != 0 {
				t.Fatalf("pot of round %d not emptied", n)
			}
		}
		if err := tb.engine.Bankroll().Verify(); err != nil {
			t.Fatal(err)
		}
	})
}
