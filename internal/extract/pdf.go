package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfDecoder concatenates each page's plain text in page order, one newline between pages.
type pdfDecoder struct{}

func (pdfDecoder) Decode(r io.ReaderAt, size int64) (string, error) {
	pr, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf strings.Builder
	numPages := pr.NumPage()
	for i := 1; i <= numPages; i++ {
		page := pr.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		buf.WriteString(text)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}
