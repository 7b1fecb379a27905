package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// hiddenSelector matches elements whose text is never rendered.
const hiddenSelector = "script, style, noscript, template"

// htmlDecoder parses the document into a DOM and joins its text nodes with newlines.
type htmlDecoder struct {
	policy HTMLPolicy
}

func (d htmlDecoder) Decode(r io.ReaderAt, size int64) (string, error) {
	content, err := readAll(r, size)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(content) {
		return "", ErrInvalidUTF8
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}
	if !d.policy.IncludeHidden {
		doc.Find(hiddenSelector).Remove()
	}
	var lines []string
	for _, n := range doc.Nodes {
		collectTextNodes(n, &lines)
	}
	return strings.Join(lines, "\n"), nil
}

// collectTextNodes appends the trimmed, non-blank text nodes under n in document order.
func collectTextNodes(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*lines = append(*lines, text)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectTextNodes(c, lines)
	}
}
