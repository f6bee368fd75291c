package deck

const (
	CardCount = 52
	BoardSize = 5
	// MaxSeats is how many players the deck can deal hole cards to.
	MaxSeats = (CardCount - BoardSize) / 2
)

var (
	FlopSlots = []int{0, 1, 2}
	TurnSlot  = 3
	RiverSlot = 4
)

func BoardSlots() []int {
	return []int{0, 1, 2, 3, 4}
}

// HoleSlots returns the two slots dealt to seat.
func HoleSlots(seat int) [2]int {
	return [2]int{BoardSize + 2*seat, BoardSize + 2*seat + 1}
}

// SeatOfSlot is the inverse of HoleSlots. ok is false for board slots.
func SeatOfSlot(slot int) (seat int, ok bool) {
	if slot < BoardSize || slot >= CardCount {
		return 0, false
	}
	return (slot - BoardSize) / 2, true
}
