// Package docreader extracts text from uploaded case documents. PDFs get
// per-page extraction with page markers; anything else is treated as plain
// text.
package docreader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is the extracted content of one source file.
type Document struct {
	SourceFile string `json:"source_file"`
	Text       string `json:"full_text_content"`
}

// Extract reads path and returns its text content. The format is chosen by
// file extension.
func Extract(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	default:
		return extractPlainText(path)
	}
}

func extractPDF(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		fmt.Fprintf(&sb, "\n--- PAGE %d ---\n", i)
		sb.WriteString(text)
	}

	return &Document{SourceFile: path, Text: strings.TrimSpace(sb.String())}, nil
}

func extractPlainText(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return &Document{SourceFile: path, Text: strings.TrimSpace(string(b))}, nil
}
