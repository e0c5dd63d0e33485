package inventory

import (
	"git.home.luguber.info/inful/shelfkeeper/internal/book"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/ownerfile"
)

// backend abstracts one owner container over the live and serialized forms.
type backend interface {
	occupied(slot int) (bool, error)
	read(slot int) (book.Book, bool, error)
	write(b book.Book) error
	clear(slot int) error
}

// liveBackend is a connected owner's container. It must be used on the mutation loop.
type liveBackend struct {
	inv host.Inventory
}

func (l liveBackend) occupied(slot int) (bool, error) {
	return !l.inv.Item(slot).IsEmpty(), nil
}

func (l liveBackend) read(slot int) (book.Book, bool, error) {
	b, ok := book.DecodeItem(slot, l.inv.Item(slot))
	return b, ok, nil
}

func (l liveBackend) write(b book.Book) error {
	l.inv.SetItem(b.Slot, book.EncodeItem(b))
	return nil
}

func (l liveBackend) clear(slot int) error {
	l.inv.SetItem(slot, nil)
	return nil
}

// fileBackend is one item list of a decoded owner file.
type fileBackend struct {
	doc  *ownerfile.Document
	list ownerfile.List
}

func (f fileBackend) occupied(slot int) (bool, error) {
	_, found, err := f.doc.Find(f.list, slot)
	return found, err
}

func (f fileBackend) read(slot int) (book.Book, bool, error) {
	it, found, err := f.doc.Find(f.list, slot)
	if err != nil || !found {
		return book.Book{}, false, err
	}
	b, ok := book.DecodeTag(it)
	return b, ok, nil
}

func (f fileBackend) write(b book.Book) error {
	it, found, err := f.doc.Find(f.list, b.Slot)
	if err != nil {
		return err
	}
	if !found {
		it, err = book.NewTag(b)
		if err != nil {
			return err
		}
		return f.doc.Put(f.list, it)
	}
	if err := book.EncodeTag(b, it); err != nil {
		return err
	}
	return f.doc.Put(f.list, it)
}

func (f fileBackend) clear(slot int) error {
	_, err := f.doc.Remove(f.list, slot)
	return err
}

func listOf(c host.Container) ownerfile.List {
	if c == host.Secondary {
		return ownerfile.ListEnder
	}
	return ownerfile.ListInventory
}
