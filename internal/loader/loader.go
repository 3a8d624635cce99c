// Package loader turns uploaded files into plain text for indexing.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for files the loader cannot read.
var ErrUnsupported = errors.New("unsupported document")

// pageSeparator joins the text of consecutive PDF pages.
const pageSeparator = "\n\n"

// Extensions lists the accepted file extensions.
var Extensions = []string{".pdf", ".txt"}

// Supported reports whether filename has an accepted extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load extracts the text of a file. The format is chosen by the file
// extension; anything other than .txt and .pdf fails with ErrUnsupported.
func Load(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return loadText(data)
	case ".pdf":
		return loadPDF(data)
	default:
		return "", fmt.Errorf("%w: %q has extension %q, want one of %s",
			ErrUnsupported, filename, filepath.Ext(filename), strings.Join(Extensions, ", "))
	}
}

func loadText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text file is not valid UTF-8", ErrUnsupported)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func loadPDF(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed PDF: %v", ErrUnsupported, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: opening PDF: %v", ErrUnsupported, err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, pageSeparator), nil
}
