package files

import (
	"bytes"
	"errors"
	"strings"

	pdf "rsc.io/pdf"
)

// ExtractPDFText reads the text layer of the PDF at filePath and returns
// up to maxChars characters. Intake uploads can be large scans of prior
// records; the cap keeps the extracted history from blowing up prompt
// context later. If maxChars <= 0 a default is used.
func ExtractPDFText(filePath string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = 8000
	}

	r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		var prev pdf.Text
		for _, t := range p.Content().Text {
			// Re-insert spaces lost between positioned glyph runs.
			if prev.S != "" && t.X-prev.X > prev.W*1.5 {
				buf.WriteByte(' ')
			}
			buf.WriteString(t.S)
			prev = t
		}
		buf.WriteString("\n\n")
		if buf.Len() >= maxChars {
			break
		}
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		// Scanned PDFs have no text layer; the caller decides whether
		// to reject the upload or keep the typed history only.
		return "", errors.New("pdf has no extractable text")
	}
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return text, nil
}
