package ledger

import (
	"errors"
	"testing"
)

func TestReplenish(t *testing.T) {
	b := NewBankroll()
	if prev := b.Replenish(1, "alice", 100); prev != 0 {
		t.Fatalf("expected previous balance 0, got %d", prev)
	}
	if got := b.Funds("alice"); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	if _, _, err := b.Debit(1, "alice", 99, Bet); err != nil {
		t.Fatal(err)
	}
	if prev := b.Replenish(2, "alice", 100); prev != 1 {
		t.Fatalf("expected previous balance 1, got %d", prev)
	}
	if got := b.Borrowed("alice"); got != 199 {
		t.Fatalf("expected 199 borrowed, got %d", got)
	}
	b.Replenish(3, "alice", 50)
	if got := b.Funds("alice"); got != 100 {
		t.Fatalf("replenish must not lower a balance, got %d", got)
	}
}

func TestDebitCredit(t *testing.T) {
	b := NewBankroll()
	b.Replenish(1, "bob", 10)
	prev, cur, err := b.Debit(1, "bob", 4, Blind)
	if err != nil {
		t.Fatal(err)
	}
	if prev != 10 || cur != 6 {
		t.Fatalf("expected 10 -> 6, got %d -> %d", prev, cur)
	}
	if _, _, err := b.Debit(1, "bob", 7, Bet); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, _, err := b.Debit(1, "bob", -1, Bet); err == nil {
		t.Fatal("negative debit must fail")
	}
	if _, cur, _ := b.Credit(1, "bob", 8, Win); cur != 14 {
		t.Fatalf("expected 14, got %d", cur)
	}
	if b.Total() != 14 || b.TotalBorrowed() != 10 {
		t.Fatalf("unexpected totals %d/%d", b.Total(), b.TotalBorrowed())
	}
}

func TestVerify(t *testing.T) {
	b := NewBankroll()
	b.Replenish(1, "alice", 100)
	b.Replenish(1, "bob", 100)
	b.Debit(1, "alice", 1, Blind)
	b.Debit(1, "bob", 2, Blind)
	b.Credit(1, "alice", 3, Win)
	if err := b.Verify(); err != nil {
		t.Fatal(err)
	}
	entries := b.Entries()
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}

	tampered := b.Entries()
	tampered[3].Delta = -20
	if err := verify(tampered); err == nil {
		t.Fatal("tampered delta not detected")
	}
	tampered = b.Entries()
	tampered[2].PrevHash = tampered[0].Hash
	if err := verify(tampered); err == nil {
		t.Fatal("broken link not detected")
	}
	if err := verify(nil); err == nil {
		t.Fatal("empty ledger must not verify")
	}
}

func TestPlayers(t *testing.T) {
	b := NewBankroll()
	b.Replenish(1, "carol", 5)
	b.Replenish(1, "alice", 5)
	got := b.Players()
	if len(got) != 2 || got[0] != "alice" || got[1] != "carol" {
		t.Fatalf("unexpected players %v", got)
	}
}
