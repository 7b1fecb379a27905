package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/textract/internal/models"
	"github.com/ledongthuc/pdf"
)

func TestDefaultLayout_LinesPerPage(t *testing.T) {
	l := DefaultLayout()
	if err := l.Validate(); err != nil {
		t.Fatalf("default layout invalid: %v", err)
	}
	// 750, 735, ..., 60 are drawn; 45 is below the bottom margin.
	if got := l.LinesPerPage(); got != 47 {
		t.Errorf("LinesPerPage() = %d, want 47", got)
	}
}

func TestPaginate_cursorNeverBelowBottom(t *testing.T) {
	l := DefaultLayout()
	lines := make([]string, 200)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	pages := Paginate(strings.Join(lines, "\n"), l)
	if len(pages) != 5 {
		t.Fatalf("got %d pages, want 5", len(pages))
	}
	total := 0
	for p, page := range pages {
		if len(page.Lines) == 0 {
			t.Fatalf("page %d is empty", p)
		}
		if page.Lines[0].Y != l.Top {
			t.Errorf("page %d starts at %v, want %v", p, page.Lines[0].Y, l.Top)
		}
		for _, line := range page.Lines {
			if line.Y < l.Bottom {
				t.Errorf("page %d line %q drawn at %v below bottom %v", p, line.Text, line.Y, l.Bottom)
			}
		}
		total += len(page.Lines)
	}
	if total != 200 {
		t.Errorf("drew %d lines, want 200", total)
	}
	if got := pages[1].Lines[0].Text; got != "line 47" {
		t.Errorf("second page starts with %q, want line 47", got)
	}
}

func TestPaginate_truncatesLongLines(t *testing.T) {
	l := DefaultLayout()
	long := strings.Repeat("é", 150)
	pages := Paginate(long+"\nshort", l)
	got := pages[0].Lines[0].Text
	if n := len([]rune(got)); n != l.MaxChars {
		t.Errorf("truncated line has %d runes, want %d", n, l.MaxChars)
	}
	if pages[0].Lines[1].Text != "short" {
		t.Errorf("short line changed: %q", pages[0].Lines[1].Text)
	}
}

func TestPaginate_singlePageFits(t *testing.T) {
	l := DefaultLayout()
	content := strings.Repeat("x\n", l.LinesPerPage()-1) + "x"
	if pages := Paginate(content, l); len(pages) != 1 {
		t.Errorf("got %d pages for exactly one page of lines", len(pages))
	}
	if pages := Paginate(content+"\nover", l); len(pages) != 2 {
		t.Errorf("got %d pages for one line over capacity", len(pages))
	}
}

func TestPaginate_trailingBlankLinesDoNotAddPage(t *testing.T) {
	l := DefaultLayout()
	// The last content line fills page one; Assemble always appends two newlines.
	content := Assemble([]models.Entry{{Label: "full.txt", Content: strings.Repeat("x\n", l.LinesPerPage()-2) + "x"}})
	pages := Paginate(content, l)
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if got := pages[0].Lines[len(pages[0].Lines)-1].Text; got != "x" {
		t.Errorf("last drawn line = %q, want x", got)
	}

	// A blank line between content lines still moves content to the next page.
	pages = Paginate(strings.Repeat("x\n", l.LinesPerPage())+"\nend", l)
	if len(pages) != 2 || pages[1].Lines[len(pages[1].Lines)-1].Text != "end" {
		t.Errorf("interior blank line lost content across pages: %d pages", len(pages))
	}
}

func TestExport_pdfMultiPage(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.pdf")
	var body strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&body, "row%03d\n", i)
	}
	entries := []models.Entry{{Label: "long.txt", Content: body.String()}}
	x := NewExporter()
	if err := x.Export(FormatPDF, entries, dest); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, r, err := pdf.Open(dest)
	if err != nil {
		t.Fatalf("open exported PDF: %v", err)
	}
	defer f.Close()
	wantPages := len(Paginate(Assemble(entries), x.Layout()))
	if wantPages < 2 {
		t.Fatalf("fixture should need more than one page, got %d", wantPages)
	}
	if r.NumPage() != wantPages {
		t.Errorf("NumPage() = %d, want %d", r.NumPage(), wantPages)
	}
	first, err := r.Page(1).GetPlainText(nil)
	if err != nil {
		t.Fatalf("page 1 text: %v", err)
	}
	if !strings.Contains(first, "long.txt") || !strings.Contains(first, "row000") {
		t.Errorf("page 1 text missing header or first row: %q", first)
	}
	last, err := r.Page(r.NumPage()).GetPlainText(nil)
	if err != nil {
		t.Fatalf("last page text: %v", err)
	}
	if !strings.Contains(last, "row119") {
		t.Errorf("last page missing final row: %q", last)
	}
}

func TestWriteTo_pdfHeader(t *testing.T) {
	var buf bytes.Buffer
	entries := []models.Entry{{Label: "a.txt", Content: "hi"}}
	if err := NewExporter().WriteTo(&buf, FormatPDF, entries); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:8])
	}
}
