package poker

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
)

// Card suit constants (0-3)
const (
	Club    = 0 // ♣ (black)
	Diamond = 1 // ♦ (red)
	Heart   = 2 // ♥ (red)
	Spade   = 3 // ♠ (black)
)

// Card rank constants for face cards and ace
const (
	Jack  = 11 // J
	Queen = 12 // Q
	King  = 13 // K
	Ace   = 1  // A
)

// FaceDown is the display character for hidden cards
const FaceDown = "▓"

// Card represents a playing card with suit and rank.
// Rank 0 indicates a face-down or uninitialized card.
type Card struct {
	suit uint8 // 0-3: clubs, diamonds, hearts, spades
	rank uint8 // 1-13: ace through king (0 = face down)
}

// NewCard creates a new Card with validation.
//
// Parameters:
//   - suit: 0-3 (Club, Diamond, Heart, Spade)
//   - rank: 1-13 (Ace=1, 2-10=face value, Jack=11, Queen=12, King=13)
func NewCard(suit uint8, rank uint8) (Card, error) {
	if suit > 3 || rank == 0 || rank > 13 {
		return Card{}, fmt.Errorf("invalid card %d, %d", suit, rank)
	}
	return Card{suit: suit, rank: rank}, nil
}

// FromCode converts a deck code (1-52) to a Card. Codes map to suits in order
// (clubs, diamonds, hearts, spades) with ranks 1-13 within each suit.
func FromCode(code int) (Card, error) {
	if code > 52 || code < 1 {
		return Card{}, errors.New("the card to convert have an invalid value")
	}
	return NewCard(uint8((code-1)/13), uint8((code-1)%13+1))
}

// Code is the inverse of FromCode.
func (c Card) Code() int {
	return int(c.suit)*13 + int(c.rank)
}

func (c Card) Suit() uint8 {
	return c.suit
}

func (c Card) Rank() uint8 {
	return c.rank
}

func (c Card) rankString() string {
	switch c.rank {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	return fmt.Sprintf("%d", c.rank)
}

// String returns a human-readable representation of the Card using coloured
// suit symbols (♣, ♦, ♥, ♠) and rank abbreviations (A, J, Q, K, or number).
func (c Card) String() string {
	if c.rank == 0 {
		return FaceDown
	}
	var suit string
	switch c.suit {
	case Club:
		suit = pterm.Black("♣")
	case Diamond:
		suit = pterm.LightRed("♦")
	case Heart:
		suit = pterm.LightRed("♥")
	case Spade:
		suit = pterm.Black("♠")
	default:
		suit = "?"
	}
	return c.rankString() + suit
}

// MarshalText renders the card without colours, e.g. "Q♥".
func (c Card) MarshalText() ([]byte, error) {
	if c.rank == 0 {
		return []byte(FaceDown), nil
	}
	if c.suit > Spade {
		return nil, fmt.Errorf("invalid suit %d", c.suit)
	}
	return []byte(c.rankString() + []string{"♣", "♦", "♥", "♠"}[c.suit]), nil
}
