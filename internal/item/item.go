// Package item models the live, in-memory item stacks the host runtime hands
// to shelfkeeper. It carries only the state book handling needs.
package item

import "slices"

// Material identifies an item type by its namespaced id.
type Material string

const (
	Air          Material = "minecraft:air"
	WritableBook Material = "minecraft:writable_book"
	WrittenBook  Material = "minecraft:written_book"
	Paper        Material = "minecraft:paper"
)

// IsBook reports whether m is one of the two book materials.
func (m Material) IsBook() bool {
	return m == WritableBook || m == WrittenBook
}

// Generation is the copy generation of a written book.
type Generation int

const (
	GenerationOriginal Generation = iota
	GenerationCopyOfOriginal
	GenerationCopyOfCopy
	GenerationTattered
)

// Meta is the mutable metadata of a stack.
type Meta struct {
	DisplayName     string
	Lore            []string
	Title           string
	Author          string
	Pages           []string
	Generation      Generation
	CustomModelData int
}

// Clone returns a deep copy of m.
func (m *Meta) Clone() *Meta {
	if m == nil {
		return nil
	}
	c := *m
	c.Lore = slices.Clone(m.Lore)
	c.Pages = slices.Clone(m.Pages)
	return &c
}

// Stack is one occupied slot. A nil *Stack or a stack of Air is an empty slot.
type Stack struct {
	Material Material
	Amount   int
	Meta     *Meta
}

// New returns a single item of material m with empty metadata.
func New(m Material) *Stack {
	return &Stack{Material: m, Amount: 1, Meta: &Meta{}}
}

// IsEmpty reports whether s represents an empty slot.
func (s *Stack) IsEmpty() bool {
	return s == nil || s.Material == Air || s.Material == "" || s.Amount <= 0
}

// IsBook reports whether s holds a book of either kind.
func (s *Stack) IsBook() bool {
	return !s.IsEmpty() && s.Material.IsBook()
}

// Clone returns a deep copy of s.
func (s *Stack) Clone() *Stack {
	if s == nil {
		return nil
	}
	c := *s
	c.Meta = s.Meta.Clone()
	return &c
}

// Bare returns a fresh stack of the same material without metadata.
func (s *Stack) Bare() *Stack {
	if s.IsEmpty() {
		return nil
	}
	return New(s.Material)
}

// EnsureMeta returns s.Meta, allocating it when absent.
func (s *Stack) EnsureMeta() *Meta {
	if s.Meta == nil {
		s.Meta = &Meta{}
	}
	return s.Meta
}
