package export

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// renderPDF draws pages with a core font. fpdf measures y from the top of the page,
// so each cursor height is flipped before drawing.
func renderPDF(w io.Writer, pages []Page, l Layout) error {
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: l.PageWidth, Ht: l.PageHeight},
	})
	doc.SetAutoPageBreak(false, 0)
	doc.SetFont(l.FontFamily, "", l.FontSize)
	// Core fonts are cp1252; runes outside it are substituted.
	tr := doc.UnicodeTranslatorFromDescriptor("")
	for _, page := range pages {
		doc.AddPage()
		for _, line := range page.Lines {
			if line.Text == "" {
				continue
			}
			doc.Text(l.Left, l.PageHeight-line.Y, tr(line.Text))
		}
	}
	return doc.Output(w)
}
