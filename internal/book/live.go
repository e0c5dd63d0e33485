package book

import (
	"git.home.luguber.info/inful/shelfkeeper/internal/item"
)

// EncodeItem renders b as a fresh live stack.
func EncodeItem(b Book) *item.Stack {
	s := item.New(b.Kind.Material())
	meta := s.Meta
	meta.Pages = storedPages(b.Pages)

	switch b.Kind {
	case KindDraft:
		meta.DisplayName = b.Title
		meta.Lore = virtualLore(b.Author)
	case KindSealed:
		title, author, placeholder := sealedFields(b.Title, b.Author)
		meta.Title = title
		meta.Author = author
		meta.Generation = item.GenerationOriginal
		if placeholder {
			meta.CustomModelData = placeholderMarker
		}
	}
	return s
}

// DecodeItem reads the book held by s. It reports false when s is not a book.
// Unrecognized presentation fields decode as empty strings.
func DecodeItem(slot int, s *item.Stack) (Book, bool) {
	if !s.IsBook() {
		return Book{}, false
	}
	kind, _ := KindOf(s.Material)
	b := Book{Slot: slot, Kind: kind, Source: SourceLive}

	meta := s.Meta
	if meta == nil {
		meta = &item.Meta{}
	}
	b.Pages = normalizePages(meta.Pages)

	switch kind {
	case KindDraft:
		b.Title = meta.DisplayName
		b.Author, _ = virtualAuthor(meta.Lore)
	case KindSealed:
		b.Title, b.Author = unsealFields(meta.Title, meta.Author, meta.CustomModelData)
	}
	return b, true
}

// ApplySigning moves the virtual title and author of a draft onto the sealed
// metadata the host is about to store when that draft gets signed. It reports
// whether previous carried virtual metadata.
func ApplySigning(previous, signed *item.Meta) bool {
	if previous == nil || signed == nil {
		return false
	}
	if len(previous.Lore) != 2 || !containsMarker(previous.Lore[1]) {
		return false
	}

	if author, ok := virtualAuthorLine(previous.Lore[0]); ok && author != "" {
		signed.Author = author
	}
	if previous.DisplayName != "" {
		signed.Title = previous.DisplayName
	}
	signed.DisplayName = ""
	signed.Lore = nil
	return true
}
