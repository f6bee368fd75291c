// Package deck runs the mental poker protocol that shuffles and deals a
// 52-card deck among peers that do not trust each other.
//
// # Roles
//
// Every round the players in seats 0 and 1 hold the two protocol roles. They
// jointly encrypt and shuffle the deck with a commutative cipher and then
// re-key every slot individually, so that one card can be revealed by
// releasing a per-slot key share from each role without exposing any other
// card. Everybody else only observes.
//
// # Protocol
//
//  1. start: the round's roles are announced.
//  2. deck/step1: the first role encrypts and shuffles the canonical deck.
//  3. deck/step2: the second role encrypts and shuffles it again.
//  4. deck/step3: the first role seals every slot individually.
//  5. deck/finalized: the second role does the same; the result is the
//     round's sealed deck.
//
// Deal sends both roles' shares for a slot privately to one recipient; Show
// publishes them. A peer holding both shares and the sealed deck recovers
// the card code.
//
// # Ordering
//
// Each step is gated on the fields it needs being known, not on arrival
// order: messages for a round that has not started yet are kept against a
// lazily created round record.
//
// # Slot layout
//
// Slots 0 to 4 are the board (flop 0, 1, 2; turn 3; river 4). Slots 5+2k and
// 6+2k are the hole cards of seat k.
package deck
