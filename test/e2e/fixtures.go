package e2e

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"

	"github.com/hyperjump/textract/internal/export"
	"github.com/hyperjump/textract/internal/models"
)

// SupportedFileExtensions is the list of file extensions used in E2E file-based tests.
// Covers each decoder: plain text and source code, DOCX, HTML, and PDF.
var SupportedFileExtensions = []string{
	".txt", ".md", ".py", ".java", ".docx", ".html", ".pdf",
}

// pdfLineWidth keeps fixture lines well under the export layout's truncation width.
const pdfLineWidth = 80

// WriteMinimalFile returns the bytes of a minimal file of the given extension holding text.
// For plain types the content is the raw text; source files carry it in a docstring or block comment.
func WriteMinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".txt", ".md":
		return []byte(text), nil
	case ".py":
		return []byte("\"\"\"\n" + text + "\n\"\"\"\nprint('ok')\n"), nil
	case ".java":
		return []byte("/*\n" + text + "\n*/\nclass Fixture {}\n"), nil
	case ".docx":
		return minimalDocx(text)
	case ".html":
		return minimalHTML(text), nil
	case ".pdf":
		return minimalPDF(text)
	default:
		return nil, fmt.Errorf("no fixture for %s", ext)
	}
}

func minimalDocx(text string) ([]byte, error) {
	var body strings.Builder
	for _, line := range strings.Split(text, "\n") {
		body.WriteString("<w:p><w:r><w:t>")
		if err := xml.EscapeText(&body, []byte(line)); err != nil {
			return nil, err
		}
		body.WriteString("</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		return nil, err
	}
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`
	if _, err := fw.Write([]byte(doc)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minimalHTML(text string) []byte {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><style>body { color: red; }</style></head><body>")
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		b.WriteString("<p>" + html.EscapeString(line) + "</p>")
	}
	b.WriteString("<script>var hidden = 1;</script></body></html>")
	return []byte(b.String())
}

// minimalPDF renders text through the PDF exporter. Each line ends in a space so words
// on adjacent lines stay separate when the page text is read back.
func minimalPDF(text string) ([]byte, error) {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		if cur.Len()+len(word) > pdfLineWidth {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		cur.WriteString(word)
		cur.WriteByte(' ')
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	var buf bytes.Buffer
	entry := models.Entry{Label: "fixture", Content: strings.Join(lines, "\n")}
	if err := export.NewExporter().WriteTo(&buf, export.FormatPDF, []models.Entry{entry}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
