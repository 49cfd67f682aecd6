package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractRichText converts DOCX, ODT, and RTF bytes to plain text.
// Format detection is content-based, so a mislabeled extension still works.
func extractRichText(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
