package ownerfile

import (
	"strings"

	"github.com/Tnze/go-mc/nbt"
	jsoniter "github.com/json-iterator/go"
)

// Component keys understood by shelfkeeper.
const (
	KeyWritableContent = "minecraft:writable_book_content"
	KeyWrittenContent  = "minecraft:written_book_content"
	KeyCustomName      = "minecraft:custom_name"
	KeyLore            = "minecraft:lore"
	KeyCustomModelData = "minecraft:custom_model_data"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Components is the data component map of an item entry.
type Components map[string]nbt.RawMessage

// Page is one filterable page string.
type Page struct {
	Raw string `nbt:"raw"`
}

// WritableContent is the page list of a draft book.
type WritableContent struct {
	Pages []Page `nbt:"pages"`
}

// WrittenContent is the native content of a sealed book.
type WrittenContent struct {
	Title      Page   `nbt:"title"`
	Author     string `nbt:"author"`
	Generation int32  `nbt:"generation"`
	Pages      []Page `nbt:"pages"`
}

// textComponent is the JSON chat component used for names and lore lines.
type textComponent struct {
	Text   string `json:"text"`
	Color  string `json:"color,omitempty"`
	Italic *bool  `json:"italic,omitempty"`
}

// PageTexts flattens pages to their raw strings.
func PageTexts(pages []Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Raw)
	}
	return out
}

// Pages wraps raw page strings.
func Pages(texts []string) []Page {
	out := make([]Page, 0, len(texts))
	for _, t := range texts {
		out = append(out, Page{Raw: t})
	}
	return out
}

// Has reports whether the component key is present.
func (c Components) Has(key string) bool {
	_, ok := c[key]
	return ok
}

// Delete removes the component key.
func (c Components) Delete(key string) {
	delete(c, key)
}

// WritableContent returns the draft page list.
func (c Components) WritableContent() (WritableContent, bool) {
	var out WritableContent
	msg, ok := c[KeyWritableContent]
	if !ok || msg.Unmarshal(&out) != nil {
		return WritableContent{}, false
	}
	return out, true
}

// SetWritableContent stores the draft page list.
func (c Components) SetWritableContent(v WritableContent) error {
	if v.Pages == nil {
		v.Pages = []Page{}
	}
	return c.set(KeyWritableContent, v)
}

// WrittenContent returns the sealed book content.
func (c Components) WrittenContent() (WrittenContent, bool) {
	var out WrittenContent
	msg, ok := c[KeyWrittenContent]
	if !ok || msg.Unmarshal(&out) != nil {
		return WrittenContent{}, false
	}
	return out, true
}

// SetWrittenContent stores the sealed book content.
func (c Components) SetWrittenContent(v WrittenContent) error {
	if v.Pages == nil {
		v.Pages = []Page{}
	}
	return c.set(KeyWrittenContent, v)
}

// CustomName returns the plain text of the display name.
func (c Components) CustomName() (string, bool) {
	msg, ok := c[KeyCustomName]
	if !ok {
		return "", false
	}
	return plainText(msg)
}

// SetCustomName stores name as a JSON text component.
func (c Components) SetCustomName(name string) error {
	italic := false
	encoded, err := json.MarshalToString(textComponent{Text: name, Italic: &italic})
	if err != nil {
		return err
	}
	return c.set(KeyCustomName, encoded)
}

// Lore returns the plain text of every lore line.
func (c Components) Lore() []string {
	msg, ok := c[KeyLore]
	if !ok {
		return nil
	}
	var lines []nbt.RawMessage
	if err := msg.Unmarshal(&lines); err != nil {
		return nil
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		text, _ := plainText(line)
		out = append(out, text)
	}
	return out
}

// SetLore stores each line as a gray, non-italic JSON text component.
func (c Components) SetLore(lines []string) error {
	italic := false
	encoded := make([]string, 0, len(lines))
	for _, line := range lines {
		s, err := json.MarshalToString(textComponent{Text: line, Color: "gray", Italic: &italic})
		if err != nil {
			return err
		}
		encoded = append(encoded, s)
	}
	return c.set(KeyLore, encoded)
}

// CustomModelData returns the model data value, or 0 when absent.
func (c Components) CustomModelData() int {
	msg, ok := c[KeyCustomModelData]
	if !ok {
		return 0
	}
	var v int32
	if err := msg.Unmarshal(&v); err != nil {
		return 0
	}
	return int(v)
}

// SetCustomModelData stores v.
func (c Components) SetCustomModelData(v int) error {
	return c.set(KeyCustomModelData, int32(v))
}

func (c Components) set(key string, v any) error {
	msg, err := raw(v)
	if err != nil {
		return err
	}
	c[key] = msg
	return nil
}

// plainText extracts the text of a name or lore entry. The entry may be a
// JSON component string, a bare string, or a compound with a "text" field.
func plainText(msg nbt.RawMessage) (string, bool) {
	switch msg.Type {
	case nbt.TagString:
		var s string
		if err := msg.Unmarshal(&s); err != nil {
			return "", false
		}
		return textFromJSON(s), true
	case nbt.TagCompound:
		var compound struct {
			Text string `nbt:"text"`
		}
		if err := msg.Unmarshal(&compound); err != nil {
			return "", false
		}
		return textFromJSON(compound.Text), true
	default:
		return "", false
	}
}

func textFromJSON(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		var tc textComponent
		if err := json.UnmarshalFromString(trimmed, &tc); err == nil {
			return tc.Text
		}
	}
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.UnmarshalFromString(trimmed, &str); err == nil {
			return str
		}
	}
	return s
}
