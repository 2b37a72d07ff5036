// Package mdbook speaks the mdbook preprocessor protocol: mdbook writes a
// JSON array [context, book] to stdin and reads the processed book back from
// stdout.
package mdbook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgallion1/mdtrace/internal/config"
)

// PreprocessorName is the key of this preprocessor's table in book.toml.
const PreprocessorName = "trace"

// Context is the first element of the preprocessor input.
type Context struct {
	Root          string        `json:"root"`
	Config        ContextConfig `json:"config"`
	Renderer      string        `json:"renderer"`
	MdbookVersion string        `json:"mdbook_version"`
}

// ContextConfig is the parsed book.toml as mdbook passes it along.
type ContextConfig struct {
	Book struct {
		Title string `json:"title"`
		Src   string `json:"src"`
	} `json:"book"`
	Preprocessor map[string]json.RawMessage `json:"preprocessor"`
}

// TraceConfig decodes the [preprocessor.trace] table, or returns the
// defaults when there is none.
func (c *Context) TraceConfig() (config.Config, error) {
	raw, ok := c.Config.Preprocessor[PreprocessorName]
	if !ok {
		return config.Default(), nil
	}
	cfg, err := config.DecodeJSON(raw)
	if err != nil {
		return config.Config{}, fmt.Errorf("preprocessor.%s: %w", PreprocessorName, err)
	}
	return cfg, nil
}

// Book is mdbook's serialized book.
type Book struct {
	Sections      []BookItem      `json:"sections"`
	NonExhaustive json.RawMessage `json:"__non_exhaustive"`
}

// BookItem is one of a chapter, a separator or a part title.
type BookItem struct {
	Chapter   *Chapter
	Separator bool
	PartTitle string
}

// Chapter is mdbook's chapter. A null number marks a prefix or suffix
// chapter; a null path marks a draft.
type Chapter struct {
	Name        string     `json:"name"`
	Content     string     `json:"content"`
	Number      []int      `json:"number"`
	SubItems    []BookItem `json:"sub_items"`
	Path        *string    `json:"path"`
	SourcePath  *string    `json:"source_path"`
	ParentNames []string   `json:"parent_names"`
}

func (it BookItem) MarshalJSON() ([]byte, error) {
	switch {
	case it.Chapter != nil:
		return json.Marshal(struct {
			Chapter *Chapter `json:"Chapter"`
		}{it.Chapter})
	case it.Separator:
		return []byte(`"Separator"`), nil
	default:
		return json.Marshal(struct {
			PartTitle string `json:"PartTitle"`
		}{it.PartTitle})
	}
}

func (it *BookItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != "Separator" {
			return fmt.Errorf("unknown book item %q", s)
		}
		*it = BookItem{Separator: true}
		return nil
	}

	var v struct {
		Chapter   *Chapter `json:"Chapter"`
		PartTitle *string  `json:"PartTitle"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode book item: %w", err)
	}
	switch {
	case v.Chapter != nil:
		*it = BookItem{Chapter: v.Chapter}
	case v.PartTitle != nil:
		*it = BookItem{PartTitle: *v.PartTitle}
	default:
		return fmt.Errorf("unknown book item %s", data)
	}
	return nil
}

// ParseInput reads the [context, book] pair mdbook writes to a preprocessor.
func ParseInput(r io.Reader) (*Context, *Book, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("decode preprocessor input: %w", err)
	}
	if len(raw) != 2 {
		return nil, nil, fmt.Errorf("decode preprocessor input: expected [context, book], got %d elements", len(raw))
	}

	var ctx Context
	if err := json.Unmarshal(raw[0], &ctx); err != nil {
		return nil, nil, fmt.Errorf("decode preprocessor context: %w", err)
	}
	var b Book
	if err := json.Unmarshal(raw[1], &b); err != nil {
		return nil, nil, fmt.Errorf("decode book: %w", err)
	}
	return &ctx, &b, nil
}

// WriteBook writes the processed book for mdbook.
func WriteBook(w io.Writer, b *Book) error {
	if b.NonExhaustive == nil {
		b.NonExhaustive = json.RawMessage("null")
	}
	return json.NewEncoder(w).Encode(b)
}
