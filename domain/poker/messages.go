package poker

import (
	"errors"
	"fmt"

	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

const (
	TypeNewRound = "newRound"
	TypeBet      = "action/bet"
	TypeFold     = "action/fold"
)

// IsMessage reports whether a payload type belongs to the betting layer.
func IsMessage(payloadType string) bool {
	switch payloadType {
	case TypeNewRound, TypeBet, TypeFold:
		return true
	}
	return false
}

const (
	SmallBlind = 1
	BigBlind   = 2
)

var ErrInvalidSettings = errors.New("invalid settings")

type Settings struct {
	InitialFundAmount int `json:"initialFundAmount"`
	KeyBits           int `json:"keyBits,omitempty"`
}

func (s Settings) Validate() error {
	if s.InitialFundAmount < BigBlind {
		return fmt.Errorf("%w: initial fund amount %d is below the big blind", ErrInvalidSettings, s.InitialFundAmount)
	}
	if s.KeyBits < 0 {
		return fmt.Errorf("%w: negative key size", ErrInvalidSettings)
	}
	return nil
}

type NewRound struct {
	Type     string         `json:"type"`
	Round    int            `json:"round"`
	Players  []relay.PeerID `json:"players"`
	Settings Settings       `json:"settings"`
}

type BetAction struct {
	Type   string `json:"type"`
	Round  int    `json:"round"`
	Amount int    `json:"amount"`
}

type FoldAction struct {
	Type  string `json:"type"`
	Round int    `json:"round"`
}
