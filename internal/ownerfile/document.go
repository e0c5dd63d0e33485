package ownerfile

import (
	"bytes"
	"io"
	"slices"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// List names the two item lists of an owner document.
type List string

const (
	ListInventory List = "Inventory"
	ListEnder     List = "EnderItems"
)

// Document is a decoded owner file.
type Document struct {
	name string
	root map[string]nbt.RawMessage
}

// New returns an empty document, used when an owner has no file yet.
func New() *Document {
	return &Document{root: make(map[string]nbt.RawMessage)}
}

// Decode parses a gzip-compressed owner file. Uncompressed input is accepted as well.
func Decode(data []byte) (*Document, error) {
	var r io.Reader = bytes.NewReader(data)
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "open owner file stream").Build()
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	doc := &Document{root: make(map[string]nbt.RawMessage)}
	name, err := nbt.NewDecoder(r).Decode(&doc.root)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "decode owner file").Build()
	}
	doc.name = name
	return doc, nil
}

// Encode renders the document in the gzip-compressed form the host reads.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := nbt.NewEncoder(gz).Encode(d.root, d.name); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "encode owner file").Build()
	}
	if err := gz.Close(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "compress owner file").Build()
	}
	return buf.Bytes(), nil
}

// Items returns the entries of list. A missing list is empty.
func (d *Document) Items(list List) ([]Item, error) {
	msg, ok := d.root[string(list)]
	if !ok || len(msg.Data) == 0 {
		return nil, nil
	}
	var items []Item
	if err := msg.Unmarshal(&items); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "decode item list").
			WithContext("list", string(list)).
			Build()
	}
	return items, nil
}

// SetItems replaces list with items, ordered by slot.
func (d *Document) SetItems(list List, items []Item) error {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Item) int {
		sa, _ := a.Slot()
		sb, _ := b.Slot()
		return sa - sb
	})
	if sorted == nil {
		sorted = []Item{}
	}
	msg, err := raw(sorted)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "encode item list").
			WithContext("list", string(list)).
			Build()
	}
	d.root[string(list)] = msg
	return nil
}

// Find returns the entry occupying slot in list.
func (d *Document) Find(list List, slot int) (Item, bool, error) {
	items, err := d.Items(list)
	if err != nil {
		return nil, false, err
	}
	for _, it := range items {
		if s, ok := it.Slot(); ok && s == slot {
			return it, true, nil
		}
	}
	return nil, false, nil
}

// Put stores it in list, replacing whatever occupied the same slot.
func (d *Document) Put(list List, it Item) error {
	slot, ok := it.Slot()
	if !ok {
		return ferrors.InternalError("item has no slot").Build()
	}
	items, err := d.Items(list)
	if err != nil {
		return err
	}
	items = slices.DeleteFunc(items, func(other Item) bool {
		s, ok := other.Slot()
		return ok && s == slot
	})
	return d.SetItems(list, append(items, it))
}

// Remove deletes the entry occupying slot and reports whether one existed.
func (d *Document) Remove(list List, slot int) (bool, error) {
	items, err := d.Items(list)
	if err != nil {
		return false, err
	}
	kept := slices.DeleteFunc(slices.Clone(items), func(it Item) bool {
		s, ok := it.Slot()
		return ok && s == slot
	})
	if len(kept) == len(items) {
		return false, nil
	}
	return true, d.SetItems(list, kept)
}

// Occupied returns the set of slot indices holding any entry.
func (d *Document) Occupied(list List) (map[int]bool, error) {
	items, err := d.Items(list)
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(items))
	for _, it := range items {
		if s, ok := it.Slot(); ok {
			out[s] = true
		}
	}
	return out, nil
}

// raw converts v into an NBT payload that can be stored in a compound.
func raw(v any) (nbt.RawMessage, error) {
	data, err := nbt.Marshal(v)
	if err != nil {
		return nbt.RawMessage{}, err
	}
	var msg nbt.RawMessage
	if err := nbt.Unmarshal(data, &msg); err != nil {
		return nbt.RawMessage{}, err
	}
	return msg, nil
}
