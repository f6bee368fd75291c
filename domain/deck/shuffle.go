package deck

import (
	cryptorand "crypto/rand"
	"math/rand/v2"
)

// permutation returns a uniformly random permutation of [0, n) drawn from a
// generator seeded by the operating system.
func permutation(n int) ([]int, error) {
	var seed [32]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		return nil, err
	}
	return rand.New(rand.NewChaCha8(seed)).Perm(n), nil
}
