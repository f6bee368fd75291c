package poker

import (
	"cmp"
	"maps"
	"slices"

	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

type ResultKind string

const (
	LastOneWins ResultKind = "lastOneWins"
	Showdown    ResultKind = "showdown"
)

// Tier is a group of players holding hands of equal strength.
type Tier struct {
	Strength    int            `json:"strength"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Players     []relay.PeerID `json:"players"`
}

// WinningResult is how a round ended. Winner is set for LastOneWins, Tiers
// (strongest first) for Showdown. Payouts holds every positive credit.
type WinningResult struct {
	Round   int                  `json:"round"`
	Kind    ResultKind           `json:"kind"`
	Winner  relay.PeerID         `json:"winner,omitempty"`
	Tiers   []Tier               `json:"tiers,omitempty"`
	Payouts map[relay.PeerID]int `json:"payouts"`
}

// rankTiers groups players by strength, strongest first. Players keep their
// seat order inside a tier.
func rankTiers(players []relay.PeerID, strengths map[relay.PeerID]HandStrength) []Tier {
	ordered := slices.Clone(players)
	slices.SortStableFunc(ordered, func(a, b relay.PeerID) int {
		return cmp.Compare(strengths[b].Score, strengths[a].Score)
	})
	var tiers []Tier
	for _, p := range ordered {
		s := strengths[p]
		if n := len(tiers); n > 0 && tiers[n-1].Strength == s.Score {
			tiers[n-1].Players = append(tiers[n-1].Players, p)
			continue
		}
		tiers = append(tiers, Tier{
			Strength:    s.Score,
			Category:    s.Category,
			Description: s.Description,
			Players:     []relay.PeerID{p},
		})
	}
	return tiers
}

// distribute pays the committed chips to the tiers. Tiers are processed
// strongest first. Inside a tier, members are taken by ascending commitment:
// each sweeps from every contributor what is left of it up to the member's
// own commitment, and the amount is split evenly among the members not yet
// processed, the odd chips going on to the next split. What no tier can
// claim goes back to whoever committed it.
func distribute(tiers []Tier, committed map[relay.PeerID]int) map[relay.PeerID]int {
	remaining := maps.Clone(committed)
	contributors := slices.Sorted(maps.Keys(committed))
	payouts := make(map[relay.PeerID]int)

	sweep := func(limit int) int {
		amount := 0
		for _, c := range contributors {
			taken := committed[c] - remaining[c]
			take := min(remaining[c], limit-taken)
			if take > 0 {
				remaining[c] -= take
				amount += take
			}
		}
		return amount
	}

	for _, tier := range tiers {
		members := slices.Clone(tier.Players)
		slices.SortStableFunc(members, func(a, b relay.PeerID) int {
			return cmp.Compare(committed[a], committed[b])
		})
		carry := 0
		for i, m := range members {
			shared := carry + sweep(committed[m])
			split := len(members) - i
			for _, w := range members[i:] {
				payouts[w] += shared / split
			}
			carry = shared % split
		}
	}
	for _, c := range contributors {
		if remaining[c] > 0 {
			payouts[c] += remaining[c]
		}
	}
	maps.DeleteFunc(payouts, func(_ relay.PeerID, v int) bool { return v == 0 })
	return payouts
}
