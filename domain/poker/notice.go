package poker

import "github.com/luca-patrignani/mental-poker-holdem/relay"

// Notice is something the presentation layer may want to show. The set of
// notices is closed: it is one of the types below.
type Notice interface {
	notice()
}

type PlayersNotice struct {
	Round int
	Seats []relay.PeerID
}

// BoardNotice carries every board card known so far.
type BoardNotice struct {
	Round int
	Cards []Card
}

type HoleNotice struct {
	Round  int
	Player relay.PeerID
	Cards  [2]Card
}

type BetNotice struct {
	Round  int
	Amount int
	Player relay.PeerID
	AllIn  bool
}

type FoldNotice struct {
	Round  int
	Player relay.PeerID
}

type PotNotice struct {
	Round  int
	Amount int
}

// TurnNotice names the player expected to act; Player is empty when nobody
// is.
type TurnNotice struct {
	Round      int
	Player     relay.PeerID
	CallAmount int
}

// AllSetNotice is sent once the round's deck is shuffled and sealed.
type AllSetNotice struct {
	Round int
}

type FundNotice struct {
	Current  int
	Previous int
	Player   relay.PeerID
	Borrowed bool
}

type WinnerNotice struct {
	Result WinningResult
}

func (PlayersNotice) notice() {}
func (BoardNotice) notice() {}
func (HoleNotice) notice() {}
func (BetNotice) notice() {}
func (FoldNotice) notice() {}
func (PotNotice) notice() {}
func (TurnNotice) notice() {}
func (AllSetNotice) notice() {}
func (FundNotice) notice() {}
func (WinnerNotice) notice() {}

type Observer interface {
	Notify(Notice)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Notice)

func (f ObserverFunc) Notify(n Notice) {
	f(n)
}
