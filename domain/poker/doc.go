// Package poker implements the betting side of a Texas Hold'em table whose
// cards are dealt by the mental poker protocol of package deck.
//
// # Core Types
//
// Engine: applies start, bet and fold events to the rounds of a table. Every
// peer runs its own Engine and feeds it the same events in the same order
// per sender, so every peer reaches the same state without a referee.
//
// Round: the state of one hand: seat order, commitments, folded, all-in and
// satisfied players, the stage and the known cards.
//
// Card: a playing card with suit and rank, convertible to and from the deck
// codes 1-52.
//
// Notice: what the engine tells the presentation layer (players, board,
// hole cards, bets, folds, pot, whose turn, funds and the winner).
//
// # Game Flow
//
// A round goes PRE_FLOP → FLOP → TURN → RIVER → CONCLUDED. Seat 0 posts the
// small blind, seat 1 the big blind and seat 2 (modulo the seat count) acts
// first. A street ends when every player still able to act has matched the
// highest commitment; the board is then revealed and the next street starts.
// When at most one player can still act, the remaining board is revealed at
// once and the hand goes to showdown.
//
// # Pots
//
// At showdown players are grouped in tiers of equal hand strength. Tiers are
// paid strongest first; within a tier each member collects, from every
// contributor, at most what the member committed, so side pots form without
// being tracked explicitly. Illegal actions are ignored with a warning.
package poker
