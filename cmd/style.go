package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/luca-patrignani/mental-poker-holdem/domain/poker"
	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

func printBanner() {
	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("M", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("ental ", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("P", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("oker", pterm.FgDarkGray.ToStyle()),
	).Render()
}

// renderer turns notices into terminal output. It also remembers the call
// amount of the local player's turn for the prompt.
type renderer struct {
	self relay.PeerID

	mu   sync.Mutex
	turn *poker.TurnNotice
}

func newRenderer(self relay.PeerID) *renderer {
	return &renderer{self: self}
}

// myTurn returns the pending turn of the local player, if any.
func (r *renderer) myTurn() (poker.TurnNotice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.turn == nil {
		return poker.TurnNotice{}, false
	}
	return *r.turn, true
}

func (r *renderer) name(p relay.PeerID) string {
	if p == r.self {
		return pterm.LightCyan("you")
	}
	id := string(p)
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

func (r *renderer) show(n poker.Notice) {
	switch n := n.(type) {
	case poker.PlayersNotice:
		pterm.DefaultSection.Printfln("Round %d", n.Round)
		data := pterm.TableData{{"Seat", "Player"}}
		for i, p := range n.Seats {
			data = append(data, []string{fmt.Sprint(i), r.name(p)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			pterm.Error.Println(err)
		}
	case poker.BoardNotice:
		pterm.Println(boardPanel(n))
	case poker.HoleNotice:
		if n.Player == r.self {
			pterm.Println(handBox(n.Cards))
		}
	case poker.WinnerNotice:
		pterm.Println(r.winnerPanel(n.Result))
	case poker.TurnNotice:
		r.mu.Lock()
		if n.Player == r.self {
			r.turn = &n
		} else {
			r.turn = nil
		}
		r.mu.Unlock()
		if n.Player == r.self {
			pterm.Warning.Println(r.describe(n))
			return
		}
		pterm.Info.Println(r.describe(n))
	default:
		if line := r.describe(n); line != "" {
			pterm.Info.Println(line)
		}
	}
}

// describe is the one-line text of a notice.
func (r *renderer) describe(n poker.Notice) string {
	switch n := n.(type) {
	case poker.BetNotice:
		var action string
		switch {
		case n.AllIn:
			action = fmt.Sprintf("is all-in with %d", n.Amount)
		case n.Amount == 0:
			action = "checks"
		default:
			action = fmt.Sprintf("bets %d", n.Amount)
		}
		return fmt.Sprintf("%s %s", r.name(n.Player), action)
	case poker.FoldNotice:
		return fmt.Sprintf("%s folds", r.name(n.Player))
	case poker.PotNotice:
		return fmt.Sprintf("pot: %d", n.Amount)
	case poker.TurnNotice:
		switch {
		case n.Player == "":
			return "no more bets"
		case n.Player == r.self && n.CallAmount == 0:
			return "your turn: check or bet"
		case n.Player == r.self:
			return fmt.Sprintf("your turn: %d to call", n.CallAmount)
		}
		return fmt.Sprintf("waiting for %s", r.name(n.Player))
	case poker.AllSetNotice:
		return fmt.Sprintf("deck of round %d shuffled and sealed", n.Round)
	case poker.FundNotice:
		if n.Borrowed {
			return fmt.Sprintf("%s borrows and now has %d", r.name(n.Player), n.Current)
		}
		if n.Player == r.self {
			return fmt.Sprintf("your bankroll: %d -> %d", n.Previous, n.Current)
		}
		return ""
	}
	return ""
}

func cardsString(cards []poker.Card) string {
	var parts []string
	for _, c := range cards {
		parts = append(parts, c.String())
	}
	for len(parts) < 5 {
		parts = append(parts, poker.FaceDown)
	}
	return strings.Join(parts, " - ")
}

func boardPanel(n poker.BoardNotice) string {
	return pterm.BgGreen.Sprint("\n " + cardsString(n.Cards) + " \n")
}

func handBox(cards [2]poker.Card) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(10).WithTopPadding(1).WithBottomPadding(1)
	hand := pterm.BgGreen.Sprintf("%s - %s", cards[0].String(), cards[1].String())
	return pbox.WithTitle("Your hand").WithTitleTopLeft().Sprint(hand)
}

func (r *renderer) winnerPanel(result poker.WinningResult) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	var players []relay.PeerID
	for p := range result.Payouts {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i] < players[j] })

	description := make(map[relay.PeerID]string)
	for _, tier := range result.Tiers {
		for _, p := range tier.Players {
			description[p] = tier.Description
		}
	}
	infoString := ""
	for _, p := range players {
		if d, ok := description[p]; ok && result.Kind == poker.Showdown {
			infoString += pterm.Sprintfln("%s won %d with %s", pterm.LightCyan(r.name(p)), result.Payouts[p], d)
		} else {
			infoString += pterm.Sprintfln("%s won %d taking down the pot", pterm.LightCyan(r.name(p)), result.Payouts[p])
		}
	}
	title := "|SHOWDOWN|"
	if result.Kind == poker.LastOneWins {
		title = "|EVERYBODY FOLDED|"
	}
	return pbox.WithTitle(pterm.LightGreen(title)).WithTitleTopCenter().Sprint(infoString)
}
