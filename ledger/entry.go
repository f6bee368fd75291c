package ledger

// Reason tells why chips moved.
type Reason string

const (
	Genesis Reason = "genesis"
	Borrow  Reason = "borrow"
	Blind   Reason = "blind"
	Bet     Reason = "bet"
	Win     Reason = "win"
	Refund  Reason = "refund"
)

// Entry is one movement of chips in the log.
type Entry struct {
	Index     int    `json:"index"`
	Timestamp int64  `json:"timestamp"`
	PrevHash  string `json:"prev_hash"`
	Hash      string `json:"hash"`
	Round     int    `json:"round"`
	Player    string `json:"player"`
	Reason    Reason `json:"reason"`
	Delta     int    `json:"delta"`
	Balance   int    `json:"balance"`
}
