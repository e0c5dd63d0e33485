package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStackEmptiness(t *testing.T) {
	var nilStack *Stack
	assert.True(t, nilStack.IsEmpty())
	assert.True(t, New(Air).IsEmpty())
	assert.True(t, (&Stack{Material: Paper}).IsEmpty())
	assert.False(t, New(Paper).IsEmpty())

	assert.True(t, New(WritableBook).IsBook())
	assert.True(t, New(WrittenBook).IsBook())
	assert.False(t, New(Paper).IsBook())
	assert.False(t, nilStack.IsBook())
}

func TestCloneIsDeep(t *testing.T) {
	s := New(WrittenBook)
	s.Meta.Pages = []string{"one"}
	s.Meta.Lore = []string{"by A", "Original"}

	c := s.Clone()
	c.Meta.Pages[0] = "changed"
	c.Meta.Lore = append(c.Meta.Lore, "extra")

	assert.Equal(t, "one", s.Meta.Pages[0])
	assert.Len(t, s.Meta.Lore, 2)
}

func TestBareDropsMeta(t *testing.T) {
	s := New(WrittenBook)
	s.Meta.Title = "T"

	bare := s.Bare()
	assert.Equal(t, WrittenBook, bare.Material)
	assert.Empty(t, bare.Meta.Title)
	assert.Nil(t, New(Air).Bare())
}
