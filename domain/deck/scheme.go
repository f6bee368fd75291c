package deck

import "errors"

// Sealed is a deck of encrypted cards as exchanged on the wire.
type Sealed [][]byte

// ErrKeyMismatch is returned when key material does not fit a deck: wrong
// parameters, wrong shares or a ciphertext that does not decode to a card.
var ErrKeyMismatch = errors.New("key material does not match")

// Role is the key holder side of the commutative cipher.
type Role interface {
	// Params returns what the second role needs to build a compatible key.
	Params() ([]byte, error)
	// EncryptAndShuffle encrypts every card under the role's shared key and
	// permutes the deck.
	EncryptAndShuffle(deck Sealed) (Sealed, error)
	// SealIndividually removes the shared key and applies a distinct key to
	// every slot.
	SealIndividually(deck Sealed) (Sealed, error)
	// IndividualKey is the role's decryption share for one slot. It is only
	// available after SealIndividually.
	IndividualKey(slot int) ([]byte, error)
}

// Scheme creates roles and opens cards.
type Scheme interface {
	NewRole(first bool, cardCount, keyBits int, peerParams []byte) (Role, error)
	// CanonicalDeck encodes card codes 1..cardCount in order.
	CanonicalDeck(cardCount int) (Sealed, error)
	// CombineAndDecrypt applies the first share then the second and returns
	// the card code.
	CombineAndDecrypt(firstShare, secondShare, ciphertext []byte) (int, error)
}
