package relay

import (
	"crypto/sha256"
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/encrypt/ecies"
	"go.dedis.ch/kyber/v4/suites"
)

var suite suites.Suite = suites.MustFind("Ed25519")

// KeyPair is the envelope key of a peer.
type KeyPair struct {
	private kyber.Scalar
	Public  kyber.Point
}

func NewKeyPair() KeyPair {
	private := suite.Scalar().Pick(suite.RandomStream())
	return KeyPair{
		private: private,
		Public:  suite.Point().Mul(private, nil),
	}
}

// Open decrypts a ciphertext produced by Seal for this key pair.
func (k KeyPair) Open(ciphertext []byte) ([]byte, error) {
	return ecies.Decrypt(suite, k.private, ciphertext, sha256.New)
}

// Seal encrypts message so that only the owner of public can read it.
func Seal(public kyber.Point, message []byte) ([]byte, error) {
	return ecies.Encrypt(suite, public, message, sha256.New)
}

func ParsePublicKey(b []byte) (kyber.Point, error) {
	p := suite.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return p, nil
}
