package poker

import (
	"fmt"
	"strings"

	"github.com/paulhankin/poker"
)

// HandStrength is the value of a player's best five cards out of seven.
// Higher scores beat lower ones; equal scores tie.
type HandStrength struct {
	Score       int    `json:"score"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Evaluator ranks seven-card hands.
type Evaluator interface {
	Evaluate(cards [7]Card) (HandStrength, error)
}

// HandEvaluator evaluates hands with github.com/paulhankin/poker.
type HandEvaluator struct{}

func (HandEvaluator) Evaluate(cards [7]Card) (HandStrength, error) {
	var hand [7]poker.Card
	for i, c := range cards {
		if c.rank == 0 {
			return HandStrength{}, fmt.Errorf("card at idx %d is face down", i)
		}
		card, err := poker.MakeCard(poker.Suit(c.suit), poker.Rank(c.rank))
		if err != nil {
			return HandStrength{}, fmt.Errorf("invalid card at idx %d: %w", i, err)
		}
		hand[i] = card
	}
	desc, err := poker.Describe(hand[:])
	if err != nil {
		return HandStrength{}, err
	}
	return HandStrength{
		Score:       int(poker.Eval7(&hand)),
		Category:    category(desc),
		Description: desc,
	}, nil
}

// category reads the coarse hand class out of a description such as
// "KK-55-J", "KKK-55" or "7 straight flush".
func category(desc string) string {
	for _, suffix := range []string{"straight flush", "flush", "straight"} {
		if strings.HasSuffix(desc, " "+suffix) {
			return suffix
		}
	}
	groups := strings.Split(desc, "-")
	second := 0
	if len(groups) > 1 {
		second = len(groups[1])
	}
	switch len(groups[0]) {
	case 5:
		return "five of a kind"
	case 4:
		return "four of a kind"
	case 3:
		if second == 2 {
			return "full house"
		}
		return "three of a kind"
	case 2:
		if second == 2 {
			return "two pair"
		}
		return "pair"
	}
	return "high card"
}
