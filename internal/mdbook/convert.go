package mdbook

import "github.com/dgallion1/mdtrace/internal/book"

// ToBook converts the mdbook book into the chapter tree. Separators and
// part titles carry no pages and are dropped; chapters on either side of
// them stay siblings.
func ToBook(title string, b *Book) *book.Book {
	return &book.Book{Title: title, Chapters: toChapters(b.Sections, false)}
}

func toChapters(items []BookItem, unnumbered bool) []*book.Chapter {
	var out []*book.Chapter
	for _, it := range items {
		if it.Chapter == nil {
			continue
		}
		c := it.Chapter
		ch := &book.Chapter{
			Name:       c.Name,
			Content:    c.Content,
			Unnumbered: unnumbered || c.Number == nil,
		}
		if c.Path != nil {
			ch.Path = *c.Path
		}
		ch.Children = toChapters(c.SubItems, ch.Unnumbered)
		out = append(out, ch)
	}
	return out
}

// Apply copies the content of the processed tree back into b. processed
// must come from ToBook(b) and keep its shape.
func Apply(b *Book, processed *book.Book) {
	chapters := processed.All()
	i := 0
	var walk func(items []BookItem)
	walk = func(items []BookItem) {
		for _, it := range items {
			if it.Chapter == nil {
				continue
			}
			if i < len(chapters) {
				it.Chapter.Content = chapters[i].Content
			}
			i++
			walk(it.Chapter.SubItems)
		}
	}
	walk(b.Sections)
}
