package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Parser converts a target document into sections.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// ForFile returns the parser for a target document's extension.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported target document type: %s", ext)
	}
}

// ParseFile opens path and parses it with the parser for its extension.
func ParseFile(path string) (*Document, error) {
	p, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // target sources are configured by the book author
	if err != nil {
		return nil, fmt.Errorf("open target document: %w", err)
	}
	defer f.Close()

	doc, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func trimExt(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// spool copies r into a temporary file for libraries that need random
// access. The caller must call cleanup.
func spool(r io.Reader, pattern string) (f *os.File, size int64, cleanup func(), err error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup = func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	size, err = io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("seek temp file: %w", err)
	}
	return tmp, size, cleanup, nil
}
