package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// docxDecoder joins the text of the body's top-level paragraphs with newlines.
// Tables, text boxes, headers, footers, and images are not part of the output.
type docxDecoder struct{}

func (docxDecoder) Decode(r io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("not a zip: %w", err)
	}

	// Find main document path from [Content_Types].xml, fall back to default
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	f := findZipFile(zr, docPath)
	if f == nil {
		return "", fmt.Errorf("%s not found", docPath)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", f.Name, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	f := findZipFile(zr, contentTypesPath)
	if f == nil {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return ""
	}
	content := buf.String()
	// Try both attribute orders
	if matches := partNameRe.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	if matches := partNameRe2.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	return ""
}

// docxParagraphs streams WordprocessingML and returns one string per <w:p> that is a
// direct child of <w:body>, in document order. Empty paragraphs yield empty strings.
// Within a paragraph, runs (directly or through a hyperlink) contribute <w:t> text,
// <w:tab> as a tab, and <w:br>/<w:cr> as a newline.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		stack      []string
		current    strings.Builder
		pIndex     = -1 // stack index of the open body paragraph
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			stack = append(stack, name)
			switch {
			case name == "p" && parent == "body":
				pIndex = len(stack) - 1
				current.Reset()
			case pIndex < 0 || !inParagraphRun(stack, pIndex):
			case name == "t":
				inText = true
			case name == "tab":
				current.WriteByte('\t')
			case name == "br", name == "cr":
				current.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			if t.Name.Local == "t" {
				inText = false
			}
			if len(stack)-1 == pIndex {
				paragraphs = append(paragraphs, current.String())
				pIndex = -1
			}
			stack = stack[:len(stack)-1]
		}
	}
	return paragraphs, nil
}

// inParagraphRun reports whether the element on top of stack is a direct child of a run
// belonging to the paragraph at stack[pIndex], either directly or through a hyperlink.
func inParagraphRun(stack []string, pIndex int) bool {
	n := len(stack)
	if n-2 <= pIndex || stack[n-2] != "r" {
		return false
	}
	between := stack[pIndex+1 : n-2]
	return len(between) == 0 || (len(between) == 1 && between[0] == "hyperlink")
}
