package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// slideText matches the <a:t> text nodes of Office Open XML slides.
var slideText = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// extractPresentation flattens a PPTX deck into space-separated slide text.
// PPTX is a zip holding one ppt/slides/slideN.xml per slide.
func extractPresentation(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open presentation: %w", err)
	}
	var b strings.Builder
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		xml, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("read slide %s: %w", f.Name, err)
		}
		appendMatches(&b, slideText.FindAllSubmatch(xml, -1))
	}
	return strings.TrimSpace(b.String()), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// appendMatches writes the first capture group of each match, space-separated,
// skipping empty text nodes.
func appendMatches(b *strings.Builder, matches [][][]byte) {
	for _, m := range matches {
		text := strings.TrimSpace(string(m[1]))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
}
