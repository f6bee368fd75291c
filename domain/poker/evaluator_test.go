package poker

import (
	"testing"
)

func hand(t *testing.T, codes ...int) [7]Card {
	t.Helper()
	var h [7]Card
	for i, code := range codes {
		c, err := FromCode(code)
		if err != nil {
			t.Fatal(err)
		}
		h[i] = c
	}
	return h
}

func mustCard(t *testing.T, suit, rank uint8) int {
	t.Helper()
	c, err := NewCard(suit, rank)
	if err != nil {
		t.Fatal(err)
	}
	return c.Code()
}

func TestEvaluateIsDeterministic(t *testing.T) {
	h := hand(t,
		mustCard(t, Club, Ace), mustCard(t, Diamond, Ace), mustCard(t, Heart, 7),
		mustCard(t, Spade, 9), mustCard(t, Club, 2), mustCard(t, Heart, King), mustCard(t, Diamond, 4))
	var e HandEvaluator
	first, err := e.Evaluate(h)
	if err != nil {
		t.Fatal(err)
	}
	reversed := h
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	for range 3 {
		again, err := e.Evaluate(reversed)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("expected %+v, got %+v", first, again)
		}
	}
	if first.Category == "" || first.Description == "" {
		t.Fatalf("missing description: %+v", first)
	}
}

func TestEvaluateOrdersHands(t *testing.T) {
	board := []int{mustCard(t, Club, 2), mustCard(t, Diamond, 7), mustCard(t, Heart, 9), mustCard(t, Spade, Jack), mustCard(t, Club, 4)}
	quads := hand(t, append(board[:3:3], mustCard(t, Club, 9), mustCard(t, Diamond, 9), mustCard(t, Spade, 9), mustCard(t, Heart, 3))...)
	pair := hand(t, append(board, mustCard(t, Heart, Jack), mustCard(t, Spade, 3))...)
	high := hand(t, append(board, mustCard(t, Heart, Queen), mustCard(t, Spade, 3))...)

	var e HandEvaluator
	q, err := e.Evaluate(quads)
	if err != nil {
		t.Fatal(err)
	}
	p, err := e.Evaluate(pair)
	if err != nil {
		t.Fatal(err)
	}
	h, err := e.Evaluate(high)
	if err != nil {
		t.Fatal(err)
	}
	if !(q.Score > p.Score && p.Score > h.Score) {
		t.Fatalf("expected quads > pair > high card, got %d %d %d", q.Score, p.Score, h.Score)
	}
	if q.Category == p.Category || p.Category == h.Category {
		t.Fatalf("categories must differ: %q %q %q", q.Category, p.Category, h.Category)
	}
}

func TestEvaluateRejectsFaceDown(t *testing.T) {
	var e HandEvaluator
	if _, err := e.Evaluate([7]Card{}); err == nil {
		t.Fatal("face down cards must not evaluate")
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		desc     string
		expected string
	}{
		{"K-J-9-7-5", "high card"},
		{"KK-J-9-7", "pair"},
		{"KK-55-J", "two pair"},
		{"TTT-9-7", "three of a kind"},
		{"9 straight", "straight"},
		{"AKQ97 flush", "flush"},
		{"KKK-55", "full house"},
		{"9999-K", "four of a kind"},
		{"7 straight flush", "straight flush"},
	}
	for _, tt := range tests {
		if actual := category(tt.desc); actual != tt.expected {
			t.Errorf("%s: expected %q, actual %q", tt.desc, tt.expected, actual)
		}
	}
}

func TestEvaluateCategories(t *testing.T) {
	tests := []struct {
		name     string
		cards    [7][2]uint8
		expected string
	}{
		{"high card", [7][2]uint8{{Club, King}, {Diamond, Jack}, {Heart, 9}, {Spade, 7}, {Club, 5}, {Diamond, 3}, {Heart, 2}}, "high card"},
		{"pair", [7][2]uint8{{Club, King}, {Diamond, King}, {Heart, Jack}, {Spade, 9}, {Club, 7}, {Diamond, 5}, {Heart, 2}}, "pair"},
		{"two pair", [7][2]uint8{{Club, King}, {Diamond, King}, {Heart, 5}, {Spade, 5}, {Club, Jack}, {Diamond, 9}, {Heart, 2}}, "two pair"},
		{"trips", [7][2]uint8{{Club, King}, {Diamond, King}, {Heart, King}, {Spade, Jack}, {Club, 9}, {Diamond, 5}, {Heart, 2}}, "three of a kind"},
		{"straight", [7][2]uint8{{Club, 5}, {Diamond, 6}, {Heart, 7}, {Spade, 8}, {Club, 9}, {Diamond, King}, {Heart, 2}}, "straight"},
		{"flush", [7][2]uint8{{Heart, Ace}, {Heart, King}, {Heart, Queen}, {Heart, 9}, {Heart, 7}, {Club, 2}, {Diamond, 3}}, "flush"},
		{"full house", [7][2]uint8{{Club, King}, {Diamond, King}, {Heart, King}, {Spade, 5}, {Club, 5}, {Diamond, Jack}, {Heart, 2}}, "full house"},
		{"quads", [7][2]uint8{{Club, 9}, {Diamond, 9}, {Heart, 9}, {Spade, 9}, {Club, King}, {Diamond, 5}, {Heart, 2}}, "four of a kind"},
		{"straight flush", [7][2]uint8{{Spade, 3}, {Spade, 4}, {Spade, 5}, {Spade, 6}, {Spade, 7}, {Diamond, King}, {Heart, Queen}}, "straight flush"},
	}
	var e HandEvaluator
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var codes []int
			for _, c := range tt.cards {
				codes = append(codes, mustCard(t, c[0], c[1]))
			}
			s, err := e.Evaluate(hand(t, codes...))
			if err != nil {
				t.Fatal(err)
			}
			if s.Category != tt.expected {
				t.Fatalf("%s: expected %q, actual %q", s.Description, tt.expected, s.Category)
			}
		})
	}
}
