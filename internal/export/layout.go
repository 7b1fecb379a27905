package export

import (
	"fmt"
	"strings"

	"github.com/hyperjump/textract/pkg/utils"
)

// Layout is the manual pagination geometry of a PDF export, in points with the origin
// at the bottom-left of the page. Lines are never wrapped; each is cut to MaxChars runes.
type Layout struct {
	PageWidth  float64 `yaml:"page_width"`
	PageHeight float64 `yaml:"page_height"`
	Top        float64 `yaml:"top"`
	Bottom     float64 `yaml:"bottom"`
	Left       float64 `yaml:"left"`
	LineHeight float64 `yaml:"line_height"`
	MaxChars   int     `yaml:"max_chars"`
	FontFamily string  `yaml:"font_family"`
	FontSize   float64 `yaml:"font_size"`
}

// DefaultLayout is a US letter page, Helvetica 12, 15pt lines from y=750 down to y=50.
func DefaultLayout() Layout {
	return Layout{
		PageWidth:  612,
		PageHeight: 792,
		Top:        750,
		Bottom:     50,
		Left:       30,
		LineHeight: 15,
		MaxChars:   100,
		FontFamily: "Helvetica",
		FontSize:   12,
	}
}

// Validate reports geometry that cannot paginate.
func (l Layout) Validate() error {
	switch {
	case l.PageWidth <= 0 || l.PageHeight <= 0:
		return fmt.Errorf("invalid page size %.0fx%.0f", l.PageWidth, l.PageHeight)
	case l.LineHeight <= 0:
		return fmt.Errorf("line height must be positive, got %v", l.LineHeight)
	case l.Top <= l.Bottom || l.Top > l.PageHeight:
		return fmt.Errorf("top %v must be above bottom %v and within the page", l.Top, l.Bottom)
	case l.MaxChars <= 0:
		return fmt.Errorf("max chars must be positive, got %d", l.MaxChars)
	}
	return nil
}

// LinesPerPage is the number of lines drawn on a full page.
func (l Layout) LinesPerPage() int {
	return int((l.Top-l.Bottom)/l.LineHeight) + 1
}

// Line is one drawn line and the cursor height it was drawn at.
type Line struct {
	Y    float64
	Text string
}

// Page is the ordered lines of one PDF page.
type Page struct {
	Lines []Line
}

// Paginate splits content on newlines and assigns each line a page and cursor height.
// Before a line is drawn, a cursor below Bottom starts a new page at Top; after each
// line the cursor moves down by LineHeight. Every Line.Y is therefore >= Bottom.
// Empty lines after the last non-empty one never start a page of their own.
func Paginate(content string, l Layout) []Page {
	raws := strings.Split(content, "\n")
	last := len(raws) - 1
	for last >= 0 && raws[last] == "" {
		last--
	}
	pages := []Page{{}}
	y := l.Top
	for i, raw := range raws {
		if y < l.Bottom {
			if i > last {
				break
			}
			pages = append(pages, Page{})
			y = l.Top
		}
		cur := &pages[len(pages)-1]
		cur.Lines = append(cur.Lines, Line{Y: y, Text: utils.TruncateRunes(raw, l.MaxChars)})
		y -= l.LineHeight
	}
	return pages
}
