package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PeerID is the opaque handle the signaling layer assigns to a peer.
type PeerID string

// Kind tells whether an Event goes to everybody or to a single recipient.
type Kind string

const (
	Public  Kind = "public"
	Private Kind = "private"
)

// Event is the wire envelope exchanged between peers.
type Event struct {
	Kind      Kind            `json:"type"`
	Sender    PeerID          `json:"sender"`
	Recipient PeerID          `json:"recipient,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Control payload types. They are consumed by the relay itself, except for
// TypeMembers which is also delivered locally as a roster change.
const (
	TypeMembers   = "_members"
	TypePublicKey = "_publicKey"
	TypeEncrypted = "_encrypted"
)

// Members carries the hub-authoritative roster.
type Members struct {
	Type   string   `json:"type"`
	Roster []PeerID `json:"roster"`
}

// PublicKeyAnnounce publishes the sender's envelope key.
type PublicKeyAnnounce struct {
	Type      string `json:"type"`
	Sender    PeerID `json:"sender"`
	PublicKey []byte `json:"publicKey"`
}

// EncryptedEnvelope wraps a guest-to-guest private Event.
type EncryptedEnvelope struct {
	Type       string `json:"type"`
	Sender     PeerID `json:"sender"`
	Recipient  PeerID `json:"recipient"`
	Ciphertext []byte `json:"ciphertext"`
}

var ErrMissingType = errors.New("payload has no type")

// PayloadType returns the variant tag of a payload.
func PayloadType(payload json.RawMessage) (string, error) {
	var tagged struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &tagged); err != nil {
		return "", fmt.Errorf("decoding payload type: %w", err)
	}
	if tagged.Type == "" {
		return "", ErrMissingType
	}
	return tagged.Type, nil
}

// IsControl reports whether a payload type is reserved to the relay.
func IsControl(payloadType string) bool {
	return strings.HasPrefix(payloadType, "_")
}

// Roster extracts the member list from a TypeMembers event.
func Roster(ev Event) ([]PeerID, error) {
	var m Members
	if err := json.Unmarshal(ev.Payload, &m); err != nil {
		return nil, fmt.Errorf("decoding members: %w", err)
	}
	if m.Type != TypeMembers {
		return nil, fmt.Errorf("payload %q is not a member list", m.Type)
	}
	return m.Roster, nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return raw, nil
}
