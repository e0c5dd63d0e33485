// Package book holds the canonical book model shared by shelves and owner
// containers, and the codecs that map it onto both storage backends.
//
// Sealed books carry title and author natively. Draft books have no such
// fields, so the title travels in the display name and the author in a
// two-line lore block ("by <author>", "Original"). Sealed books written with
// a missing title or author get placeholder values plus a marker so the
// placeholders can be hidden again on read.
package book

import (
	"slices"
	"strings"

	"git.home.luguber.info/inful/shelfkeeper/internal/item"
)

const (
	// EmptyPage stands in for the pages of a book that has none.
	EmptyPage = "(This book is empty)"

	PlaceholderTitle  = "Untitled"
	PlaceholderAuthor = "Unknown"

	// placeholderMarker is the custom model data value that flags placeholders.
	placeholderMarker = 1

	authorPrefix   = "by "
	originalMarker = "Original"
)

// Kind discriminates the two book materials.
type Kind int

const (
	KindSealed Kind = iota
	KindDraft
)

func (k Kind) String() string {
	switch k {
	case KindSealed:
		return "sealed"
	case KindDraft:
		return "draft"
	default:
		return "unknown"
	}
}

// Material returns the live material for k.
func (k Kind) Material() item.Material {
	switch k {
	case KindDraft:
		return item.WritableBook
	case KindSealed:
		return item.WrittenBook
	default:
		return item.WrittenBook
	}
}

// KindOf maps an item material to a book kind.
func KindOf(m item.Material) (Kind, bool) {
	switch m {
	case item.WritableBook:
		return KindDraft, true
	case item.WrittenBook:
		return KindSealed, true
	default:
		return KindSealed, false
	}
}

// KindOfID maps a namespaced item id to a book kind.
func KindOfID(id string) (Kind, bool) {
	return KindOf(item.Material(id))
}

// Source records which backend a book was read from.
type Source int

const (
	SourceLive Source = iota
	SourceSerialized
)

func (s Source) String() string {
	if s == SourceSerialized {
		return "serialized"
	}
	return "live"
}

// Content is the caller-supplied part of a book.
type Content struct {
	Title  string
	Author string
	Pages  []string
}

// IsEmpty reports whether c carries nothing worth writing.
func (c Content) IsEmpty() bool {
	return c.Title == "" && c.Author == "" && len(storedPages(c.Pages)) == 0
}

// Book is one book in a slot. Pages is never empty.
type Book struct {
	Slot   int
	Title  string
	Author string
	Pages  []string
	Kind   Kind
	Source Source
}

// New builds a book of kind k in slot from c.
func New(slot int, k Kind, c Content) Book {
	return Book{
		Slot:   slot,
		Title:  c.Title,
		Author: c.Author,
		Pages:  normalizePages(c.Pages),
		Kind:   k,
	}
}

// Content returns the caller-facing fields of b.
func (b Book) Content() Content {
	return Content{Title: b.Title, Author: b.Author, Pages: slices.Clone(b.Pages)}
}

// HasContent reports whether b has a title, an author or real pages.
func (b Book) HasContent() bool {
	return !b.Content().IsEmpty()
}

// IsEmptyBook reports whether pages hold only the empty-book sentinel.
func IsEmptyBook(pages []string) bool {
	return len(storedPages(pages)) == 0
}

// normalizePages substitutes the sentinel for an empty page list.
func normalizePages(pages []string) []string {
	if len(pages) == 0 {
		return []string{EmptyPage}
	}
	return slices.Clone(pages)
}

// storedPages is the inverse of normalizePages: what actually gets written.
func storedPages(pages []string) []string {
	if len(pages) == 0 || (len(pages) == 1 && pages[0] == EmptyPage) {
		return nil
	}
	return slices.Clone(pages)
}

// virtualLore renders the draft author block, or nil for no author.
func virtualLore(author string) []string {
	if author == "" {
		return nil
	}
	return []string{authorPrefix + author, originalMarker}
}

// virtualAuthor recovers the author from a draft lore block.
func virtualAuthor(lore []string) (string, bool) {
	if len(lore) != 2 || lore[1] != originalMarker {
		return "", false
	}
	return virtualAuthorLine(lore[0])
}

func virtualAuthorLine(line string) (string, bool) {
	return strings.CutPrefix(line, authorPrefix)
}

// containsMarker is the looser check the signing hook applies to the second lore line.
func containsMarker(line string) bool {
	return strings.Contains(line, originalMarker)
}

// sealedFields applies placeholders to empty sealed fields.
func sealedFields(title, author string) (string, string, bool) {
	placeholder := false
	if title == "" {
		title = PlaceholderTitle
		placeholder = true
	}
	if author == "" {
		author = PlaceholderAuthor
		placeholder = true
	}
	return title, author, placeholder
}

// unsealFields hides placeholders written by sealedFields.
func unsealFields(title, author string, marker int) (string, string) {
	if marker != placeholderMarker {
		return title, author
	}
	if strings.EqualFold(title, PlaceholderTitle) {
		title = ""
	}
	if strings.EqualFold(author, PlaceholderAuthor) {
		author = ""
	}
	return title, author
}
