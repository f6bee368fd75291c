package poker

import (
	"errors"
	"fmt"

	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

var (
	ErrNotEnoughPlayers = errors.New("at least two players are needed")
	ErrTooManyPlayers   = errors.New("too many players for one deck")
)

// checkTurn verifies that p may act in round r right now.
func checkTurn(r *Round, p relay.PeerID) error {
	if !r.started {
		return fmt.Errorf("round %d has not started", r.Number)
	}
	if r.Stage == Concluded || r.showdown {
		return fmt.Errorf("round %d is over", r.Number)
	}
	if r.Acting < 0 || r.Players[r.Acting] != p {
		return fmt.Errorf("not the turn of %s", p)
	}
	return nil
}

// checkBet validates a bet of amount by a player holding funds, whose street
// commitment is current, against the street maximum minRequired.
func checkBet(amount, funds, current, minRequired int) error {
	switch {
	case amount < 0:
		return fmt.Errorf("negative bet %d", amount)
	case amount > funds:
		return fmt.Errorf("bet %d exceeds funds %d", amount, funds)
	case current+amount < minRequired && amount != funds:
		return fmt.Errorf("bet %d does not reach %d", amount, minRequired-current)
	}
	return nil
}

// checkPlayers validates the seat order of a new round.
func checkPlayers(players []relay.PeerID) error {
	if len(players) < 2 {
		return ErrNotEnoughPlayers
	}
	if len(players) > maxSeats {
		return ErrTooManyPlayers
	}
	seen := make(map[relay.PeerID]bool)
	for _, p := range players {
		if p == "" || seen[p] {
			return fmt.Errorf("invalid seat order %v", players)
		}
		seen[p] = true
	}
	return nil
}
