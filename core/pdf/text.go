// Package pdf reads text out of PDF files and splits book text into
// chapters.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// ErrNoText is returned for PDFs without an extractable text layer
// (scanned images, encrypted files).
var ErrNoText = errors.New("pdf has no extractable text")

// Document is the text content of a PDF.
type Document struct {
	Title  string // from the PDF info dictionary, may be empty
	Author string
	Pages  []string
}

// Text joins the page texts with blank lines.
func (d *Document) Text() string {
	return strings.Join(d.Pages, "\n\n")
}

// ExtractText reads the PDF at path.
func ExtractText(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}
	return ReadText(f, st.Size())
}

// ExtractBytes reads a PDF held in memory.
func ExtractBytes(data []byte) (*Document, error) {
	return ReadText(bytes.NewReader(data), int64(len(data)))
}

// ReadText extracts the plain text of every page. The underlying parser
// panics on some malformed files; those panics become errors.
func ReadText(r io.ReaderAt, size int64) (doc *Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("malformed pdf: %v", p)
		}
	}()

	reader, err := lpdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	doc = &Document{}
	info := reader.Trailer().Key("Info")
	doc.Title = strings.TrimSpace(info.Key("Title").Text())
	doc.Author = strings.TrimSpace(info.Key("Author").Text())

	fonts := make(map[string]*lpdf.Font)
	hasText := false
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) != "" {
			hasText = true
		}
		doc.Pages = append(doc.Pages, text)
	}
	if !hasText {
		return nil, ErrNoText
	}
	return doc, nil
}

// TitleFromPath derives a readable title from a file name.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}
