// Package extract provides plain-text extraction from corpus document formats.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor converts document files into plain text for chunking.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Markdown and plain text are returned as-is (UTF-8 validated); PDF, DOCX,
// ODT, RTF, XLSX, PPTX, ODP, and ODS are converted from their binary formats.
// Files with unknown extensions are treated as plain text so a malformed or
// mislabeled file never aborts an indexing run on its own.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on ext (with leading dot).
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx", ".odt", ".rtf":
		return extractRichText(content)
	case ".xlsx":
		return extractSpreadsheet(content)
	case ".pptx":
		return extractPresentation(content)
	case ".odp", ".ods":
		return extractOpenDocument(content)
	default:
		return extractPlain(content)
	}
}
