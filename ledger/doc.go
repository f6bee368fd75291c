// Package ledger keeps the chip balance of every player across rounds.
//
// Every movement of chips is appended to a hash-chained log of entries, so
// the history of a table can be audited with Verify: each entry stores the
// hash of the previous one and its own hash over its content.
//
// A Bankroll is safe for concurrent use; the event loop writes it while the
// presentation layer may read balances at any time.
package ledger
