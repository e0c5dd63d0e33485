package book

import (
	"git.home.luguber.info/inful/shelfkeeper/internal/item"
	"git.home.luguber.info/inful/shelfkeeper/internal/ownerfile"
)

// EncodeTag writes b into the owner file entry it, replacing the item type
// and every book-related component.
func EncodeTag(b Book, it ownerfile.Item) error {
	if err := it.SetID(string(b.Kind.Material())); err != nil {
		return err
	}
	c, err := it.Components()
	if err != nil {
		return err
	}

	c.Delete(ownerfile.KeyWritableContent)
	c.Delete(ownerfile.KeyWrittenContent)
	c.Delete(ownerfile.KeyCustomName)
	c.Delete(ownerfile.KeyLore)
	c.Delete(ownerfile.KeyCustomModelData)

	pages := ownerfile.Pages(storedPages(b.Pages))
	switch b.Kind {
	case KindDraft:
		if err := c.SetWritableContent(ownerfile.WritableContent{Pages: pages}); err != nil {
			return err
		}
		if b.Title != "" {
			if err := c.SetCustomName(b.Title); err != nil {
				return err
			}
		}
		if lore := virtualLore(b.Author); lore != nil {
			if err := c.SetLore(lore); err != nil {
				return err
			}
		}
	case KindSealed:
		title, author, placeholder := sealedFields(b.Title, b.Author)
		err := c.SetWrittenContent(ownerfile.WrittenContent{
			Title:      ownerfile.Page{Raw: title},
			Author:     author,
			Generation: int32(item.GenerationOriginal),
			Pages:      pages,
		})
		if err != nil {
			return err
		}
		if placeholder {
			if err := c.SetCustomModelData(placeholderMarker); err != nil {
				return err
			}
		}
	}
	return it.SetComponents(c)
}

// DecodeTag reads the book stored in the owner file entry it.
func DecodeTag(it ownerfile.Item) (Book, bool) {
	kind, ok := KindOfID(it.ID())
	if !ok {
		return Book{}, false
	}
	slot, ok := it.Slot()
	if !ok {
		return Book{}, false
	}
	b := Book{Slot: slot, Kind: kind, Source: SourceSerialized}

	c, err := it.Components()
	if err != nil {
		b.Pages = normalizePages(nil)
		return b, true
	}

	switch kind {
	case KindDraft:
		content, _ := c.WritableContent()
		b.Pages = normalizePages(ownerfile.PageTexts(content.Pages))
		b.Title, _ = c.CustomName()
		b.Author, _ = virtualAuthor(c.Lore())
	case KindSealed:
		content, _ := c.WrittenContent()
		b.Pages = normalizePages(ownerfile.PageTexts(content.Pages))
		b.Title, b.Author = unsealFields(content.Title.Raw, content.Author, c.CustomModelData())
	}
	return b, true
}

// NewTag returns an owner file entry holding b at its slot.
func NewTag(b Book) (ownerfile.Item, error) {
	it, err := ownerfile.NewItem(b.Slot, string(b.Kind.Material()))
	if err != nil {
		return nil, err
	}
	if err := EncodeTag(b, it); err != nil {
		return nil, err
	}
	return it, nil
}
