package deck

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"
)

var suite suites.Suite = suites.MustFind("Ed25519")

// Kyber is the commutative cipher over the Ed25519 group: a card is a point
// and encrypting it means multiplying it by a secret scalar.
type Kyber struct{}

type kyberParams struct {
	Suite     string `json:"suite"`
	CardCount int    `json:"cardCount"`
	KeyBits   int    `json:"keyBits,omitempty"`
}

type kyberRole struct {
	first      bool
	cardCount  int
	keyBits    int
	shared     kyber.Scalar
	individual []kyber.Scalar
}

// NewRole creates a role. keyBits is carried in the parameters so both roles
// agree on it, but the key size is fixed by the group.
func (Kyber) NewRole(first bool, cardCount, keyBits int, peerParams []byte) (Role, error) {
	if cardCount <= 0 || cardCount > 255 {
		return nil, fmt.Errorf("card count %d out of range", cardCount)
	}
	if !first {
		var p kyberParams
		if err := json.Unmarshal(peerParams, &p); err != nil {
			return nil, errors.Join(ErrKeyMismatch, err)
		}
		if p.Suite != suite.String() || p.CardCount != cardCount {
			return nil, fmt.Errorf("%w: peer uses %s with %d cards", ErrKeyMismatch, p.Suite, p.CardCount)
		}
		keyBits = p.KeyBits
	}
	return &kyberRole{
		first:     first,
		cardCount: cardCount,
		keyBits:   keyBits,
		shared:    suite.Scalar().Pick(suite.RandomStream()),
	}, nil
}

func (Kyber) CanonicalDeck(cardCount int) (Sealed, error) {
	cards := make([]kyber.Point, cardCount)
	for i := range cards {
		cards[i] = suite.Point().Embed([]byte{byte(i + 1)}, suite.RandomStream())
	}
	return encodePoints(cards)
}

func (Kyber) CombineAndDecrypt(firstShare, secondShare, ciphertext []byte) (int, error) {
	first, err := decodeScalar(firstShare)
	if err != nil {
		return 0, err
	}
	second, err := decodeScalar(secondShare)
	if err != nil {
		return 0, err
	}
	card := suite.Point()
	if err := card.UnmarshalBinary(ciphertext); err != nil {
		return 0, fmt.Errorf("decoding ciphertext: %w", err)
	}
	card.Mul(first, card)
	card.Mul(second, card)
	data, err := card.Data()
	if err != nil || len(data) != 1 || data[0] == 0 {
		return 0, ErrKeyMismatch
	}
	return int(data[0]), nil
}

func (r *kyberRole) Params() ([]byte, error) {
	return json.Marshal(kyberParams{Suite: suite.String(), CardCount: r.cardCount, KeyBits: r.keyBits})
}

func (r *kyberRole) EncryptAndShuffle(deck Sealed) (Sealed, error) {
	cards, err := r.decode(deck)
	if err != nil {
		return nil, err
	}
	perm, err := permutation(len(cards))
	if err != nil {
		return nil, err
	}
	shuffled := make([]kyber.Point, len(cards))
	for i := range cards {
		shuffled[i] = suite.Point().Mul(r.shared, cards[perm[i]])
	}
	return encodePoints(shuffled)
}

func (r *kyberRole) SealIndividually(deck Sealed) (Sealed, error) {
	cards, err := r.decode(deck)
	if err != nil {
		return nil, err
	}
	inverse := suite.Scalar().Inv(r.shared)
	r.individual = make([]kyber.Scalar, len(cards))
	sealed := make([]kyber.Point, len(cards))
	for i, c := range cards {
		k := suite.Scalar().Pick(suite.RandomStream())
		r.individual[i] = k
		sealed[i] = suite.Point().Mul(k, suite.Point().Mul(inverse, c))
	}
	return encodePoints(sealed)
}

func (r *kyberRole) IndividualKey(slot int) ([]byte, error) {
	if r.individual == nil {
		return nil, errors.New("deck is not sealed yet")
	}
	if slot < 0 || slot >= len(r.individual) {
		return nil, fmt.Errorf("slot %d out of range", slot)
	}
	return suite.Scalar().Inv(r.individual[slot]).MarshalBinary()
}

func (r *kyberRole) decode(deck Sealed) ([]kyber.Point, error) {
	if len(deck) != r.cardCount {
		return nil, fmt.Errorf("deck has %d cards, expected %d", len(deck), r.cardCount)
	}
	return decodePoints(deck)
}

func encodePoints(points []kyber.Point) (Sealed, error) {
	deck := make(Sealed, len(points))
	for i, p := range points {
		b, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		deck[i] = b
	}
	return deck, nil
}

func decodePoints(deck Sealed) ([]kyber.Point, error) {
	points := make([]kyber.Point, len(deck))
	for i, b := range deck {
		points[i] = suite.Point()
		if err := points[i].UnmarshalBinary(b); err != nil {
			return nil, fmt.Errorf("decoding card %d: %w", i, err)
		}
	}
	return points, nil
}

func decodeScalar(b []byte) (kyber.Scalar, error) {
	s := suite.Scalar()
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, errors.Join(ErrKeyMismatch, err)
	}
	return s, nil
}
