package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// odTextNodes are the OpenDocument elements that carry visible text. text:h
// only appears in presentations; matching it against a spreadsheet is a no-op.
var odTextNodes = []*regexp.Regexp{
	regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`),
	regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`),
	regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`),
}

// extractOpenDocument pulls the visible text out of an ODP or ODS file. Both
// are zips with the document body in content.xml. ODT goes through the
// richtext path instead.
func extractOpenDocument(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open document archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "content.xml" {
			continue
		}
		xml, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("read content.xml: %w", err)
		}
		var b strings.Builder
		for _, re := range odTextNodes {
			appendMatches(&b, re.FindAllSubmatch(xml, -1))
		}
		return strings.TrimSpace(b.String()), nil
	}
	return "", fmt.Errorf("document archive has no content.xml")
}
