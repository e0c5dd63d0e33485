package inventory

import (
	"strings"

	"git.home.luguber.info/inful/shelfkeeper/internal/book"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// AnySlot asks Add for the lowest empty slot.
const AnySlot = -1

// mutation changes one container and returns the affected book.
type mutation func(be backend, size int) (book.Book, error)

func requireBook(be backend, slot int) (book.Book, error) {
	b, ok, err := be.read(slot)
	if err != nil {
		return book.Book{}, err
	}
	if !ok {
		return book.Book{}, ferrors.Rejected(ferrors.ReasonSlotEmpty, "No book in that slot").
			WithContext("slot", slot).
			Build()
	}
	return b, nil
}

func editMutation(slot int, c book.Content) mutation {
	return func(be backend, _ int) (book.Book, error) {
		current, err := requireBook(be, slot)
		if err != nil {
			return book.Book{}, err
		}
		c.Title = keepExisting(c.Title, current.Title)
		c.Author = keepExisting(c.Author, current.Author)
		b := book.New(slot, current.Kind, c)
		return b, be.write(b)
	}
}

// keepExisting returns current when requested is blank or the title placeholder.
func keepExisting(requested, current string) string {
	trimmed := strings.TrimSpace(requested)
	if trimmed == "" || strings.EqualFold(trimmed, book.PlaceholderTitle) {
		return current
	}
	return requested
}

func addMutation(slot int, c book.Content) mutation {
	return func(be backend, size int) (book.Book, error) {
		chosen := slot
		if slot == AnySlot {
			chosen = -1
			for i := range size {
				taken, err := be.occupied(i)
				if err != nil {
					return book.Book{}, err
				}
				if !taken {
					chosen = i
					break
				}
			}
			if chosen < 0 {
				return book.Book{}, ferrors.Rejected(ferrors.ReasonInventoryFull, "Inventory is full").Build()
			}
		} else {
			taken, err := be.occupied(slot)
			if err != nil {
				return book.Book{}, err
			}
			if taken {
				return book.Book{}, ferrors.Rejected(ferrors.ReasonSlotOccupied, "Slot is already occupied").
					WithContext("slot", slot).
					Build()
			}
		}
		b := book.New(chosen, book.KindDraft, c)
		return b, be.write(b)
	}
}

func deleteMutation(slot int) mutation {
	return func(be backend, _ int) (book.Book, error) {
		current, err := requireBook(be, slot)
		if err != nil {
			return book.Book{}, err
		}
		return current, be.clear(slot)
	}
}

func convertMutation(slot int, from, to book.Kind) mutation {
	return func(be backend, _ int) (book.Book, error) {
		current, err := requireBook(be, slot)
		if err != nil {
			return book.Book{}, err
		}
		if current.Kind != from {
			return book.Book{}, ferrors.Rejected(ferrors.ReasonWrongKind, "Book is already "+current.Kind.String()).Build()
		}
		b := book.New(slot, to, current.Content())
		return b, be.write(b)
	}
}

// listBooks decodes every book in [0, size).
func listBooks(be backend, size int) ([]book.Book, error) {
	var out []book.Book
	for i := range size {
		b, ok, err := be.read(i)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, b)
		}
	}
	return out, nil
}
