package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type Bankroll struct {
	mu       sync.RWMutex
	funds    map[string]int
	borrowed map[string]int
	entries  []Entry
}

// NewBankroll creates an empty bankroll whose log starts with a genesis entry.
func NewBankroll() *Bankroll {
	b := &Bankroll{
		funds:    make(map[string]int),
		borrowed: make(map[string]int),
	}
	genesis := Entry{
		Index:     0,
		Timestamp: time.Now().Unix(),
		PrevHash:  "0",
		Reason:    Genesis,
	}
	genesis.Hash = calculateHash(genesis)
	b.entries = append(b.entries, genesis)
	return b
}

func (b *Bankroll) Funds(player string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.funds[player]
}

// Borrowed is how much player has been lent in total.
func (b *Bankroll) Borrowed(player string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.borrowed[player]
}

// Total is the sum of every balance.
func (b *Bankroll) Total() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, f := range b.funds {
		total += f
	}
	return total
}

func (b *Bankroll) TotalBorrowed() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, f := range b.borrowed {
		total += f
	}
	return total
}

// Players returns the known players in lexical order.
func (b *Bankroll) Players() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.funds))
}

// Replenish lends player what it takes to reach amount. It returns the
// balance before the loan; nothing happens if the balance is already there.
func (b *Bankroll) Replenish(round int, player string, amount int) (previous int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	previous = b.funds[player]
	if previous >= amount {
		return previous
	}
	b.borrowed[player] += amount - previous
	b.move(round, player, Borrow, amount-previous)
	return previous
}

// Debit removes amount from player's balance.
func (b *Bankroll) Debit(round int, player string, amount int, reason Reason) (previous, current int, err error) {
	if amount < 0 {
		return 0, 0, fmt.Errorf("negative debit %d", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	previous = b.funds[player]
	if amount > previous {
		return previous, previous, fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, player, previous, amount)
	}
	return previous, b.move(round, player, reason, -amount), nil
}

// Credit adds amount to player's balance.
func (b *Bankroll) Credit(round int, player string, amount int, reason Reason) (previous, current int, err error) {
	if amount < 0 {
		return 0, 0, fmt.Errorf("negative credit %d", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	previous = b.funds[player]
	return previous, b.move(round, player, reason, amount), nil
}

func (b *Bankroll) move(round int, player string, reason Reason, delta int) int {
	b.funds[player] += delta
	latest := b.entries[len(b.entries)-1]
	e := Entry{
		Index:     latest.Index + 1,
		Timestamp: time.Now().Unix(),
		PrevHash:  latest.Hash,
		Round:     round,
		Player:    player,
		Reason:    reason,
		Delta:     delta,
		Balance:   b.funds[player],
	}
	e.Hash = calculateHash(e)
	b.entries = append(b.entries, e)
	return b.funds[player]
}

// Entries returns a copy of the log.
func (b *Bankroll) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.entries)
}

// Verify checks the genesis entry and, for every later entry, index
// continuity, previous hash linkage and its own hash.
func (b *Bankroll) Verify() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return verify(b.entries)
}

func verify(entries []Entry) error {
	if len(entries) == 0 {
		return errors.New("empty ledger")
	}
	if entries[0].PrevHash != "0" || entries[0].Hash != calculateHash(entries[0]) {
		return errors.New("invalid genesis entry")
	}
	balances := make(map[string]int)
	for i := 1; i < len(entries); i++ {
		current, previous := entries[i], entries[i-1]
		if current.Index != previous.Index+1 {
			return fmt.Errorf("entry %d: invalid index: expected %d, got %d", i, previous.Index+1, current.Index)
		}
		if current.PrevHash != previous.Hash {
			return fmt.Errorf("entry %d: invalid prev hash", i)
		}
		if expected := calculateHash(current); current.Hash != expected {
			return fmt.Errorf("entry %d: invalid hash: expected %s, got %s", i, expected, current.Hash)
		}
		balances[current.Player] += current.Delta
		if balances[current.Player] != current.Balance {
			return fmt.Errorf("entry %d: balance of %s is %d, entries add up to %d", i, current.Player, current.Balance, balances[current.Player])
		}
	}
	return nil
}

func calculateHash(e Entry) string {
	data := fmt.Sprintf("%d%d%s%d%s%s%d%d",
		e.Index,
		e.Timestamp,
		e.PrevHash,
		e.Round,
		e.Player,
		e.Reason,
		e.Delta,
		e.Balance,
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
