package shelf

import (
	"strconv"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

func validSlot(slot int) error {
	if slot < 0 || slot >= Slots {
		return ferrors.Rejected(ferrors.ReasonInvalidSlot, "Invalid slot: "+itoa(slot)).
			WithContext("slot", slot).
			Build()
	}
	return nil
}

// validPermutation requires a bijection over the shelf slots.
func validPermutation(p []int) error {
	if len(p) != Slots {
		return ferrors.Rejected(ferrors.ReasonInvalidPermutation, "Order must list exactly 6 slots").
			WithContext("length", len(p)).
			Build()
	}
	var seen [Slots]bool
	for _, src := range p {
		if src < 0 || src >= Slots || seen[src] {
			return ferrors.Rejected(ferrors.ReasonInvalidPermutation, "Order must use each slot once").
				WithContext("order", p).
				Build()
		}
		seen[src] = true
	}
	return nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
