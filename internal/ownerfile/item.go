package ownerfile

import (
	"github.com/Tnze/go-mc/nbt"
)

const (
	keySlot       = "Slot"
	keyID         = "id"
	keyCount      = "count"
	keyComponents = "components"
)

// Item is one entry of an owner item list.
type Item map[string]nbt.RawMessage

// NewItem returns a single item of id placed at slot.
func NewItem(slot int, id string) (Item, error) {
	it := make(Item, 3)
	if err := it.set(keySlot, int8(slot)); err != nil {
		return nil, err
	}
	if err := it.set(keyID, id); err != nil {
		return nil, err
	}
	if err := it.set(keyCount, int32(1)); err != nil {
		return nil, err
	}
	return it, nil
}

// Slot returns the slot index of the entry.
func (it Item) Slot() (int, bool) {
	msg, ok := it[keySlot]
	if !ok {
		return 0, false
	}
	var slot int8
	if err := msg.Unmarshal(&slot); err != nil {
		return 0, false
	}
	return int(slot), true
}

// ID returns the namespaced item id, or "" when absent.
func (it Item) ID() string {
	msg, ok := it[keyID]
	if !ok {
		return ""
	}
	var id string
	if err := msg.Unmarshal(&id); err != nil {
		return ""
	}
	return id
}

// SetID changes the item type, keeping slot, count and components.
func (it Item) SetID(id string) error {
	return it.set(keyID, id)
}

// Components returns the component map. A missing map is empty.
func (it Item) Components() (Components, error) {
	msg, ok := it[keyComponents]
	if !ok {
		return make(Components), nil
	}
	c := make(Components)
	if err := msg.Unmarshal(&c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetComponents stores c, dropping the map entirely when it is empty.
func (it Item) SetComponents(c Components) error {
	if len(c) == 0 {
		delete(it, keyComponents)
		return nil
	}
	return it.set(keyComponents, map[string]nbt.RawMessage(c))
}

func (it Item) set(key string, v any) error {
	msg, err := raw(v)
	if err != nil {
		return err
	}
	it[key] = msg
	return nil
}
