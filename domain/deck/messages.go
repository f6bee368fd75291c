package deck

import "github.com/luca-patrignani/mental-poker-holdem/relay"

const (
	TypeStart     = "start"
	TypeStep1     = "deck/step1"
	TypeStep2     = "deck/step2"
	TypeStep3     = "deck/step3"
	TypeFinalized = "deck/finalized"
	TypeDecrypt   = "card/decrypt"
)

// IsMessage reports whether a payload type belongs to this protocol.
func IsMessage(payloadType string) bool {
	switch payloadType {
	case TypeStart, TypeStep1, TypeStep2, TypeStep3, TypeFinalized, TypeDecrypt:
		return true
	}
	return false
}

type RoleName string

const (
	First  RoleName = "first"
	Second RoleName = "second"
)

type Roles struct {
	First  relay.PeerID `json:"first"`
	Second relay.PeerID `json:"second"`
}

func (r Roles) of(p relay.PeerID) (RoleName, bool) {
	switch p {
	case r.First:
		return First, true
	case r.Second:
		return Second, true
	}
	return "", false
}

func (r Roles) holder(name RoleName) relay.PeerID {
	if name == First {
		return r.First
	}
	return r.Second
}

type Start struct {
	Type    string `json:"type"`
	Round   int    `json:"round"`
	Roles   Roles  `json:"roleAssignment"`
	KeyBits int    `json:"keyBits,omitempty"`
}

// Step carries the deck between the two roles.
type Step struct {
	Type   string `json:"type"`
	Round  int    `json:"round"`
	Deck   Sealed `json:"deck"`
	Params []byte `json:"publicKeyParams,omitempty"`
}

type Decrypt struct {
	Type  string   `json:"type"`
	Round int      `json:"round"`
	Slot  int      `json:"slot"`
	Role  RoleName `json:"role"`
	Key   []byte   `json:"decryptionKey"`
}
