package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/textract/internal/export"
	"github.com/hyperjump/textract/internal/extract"
	"github.com/hyperjump/textract/internal/keyword"
	"github.com/hyperjump/textract/internal/models"
	"github.com/hyperjump/textract/internal/session"
	"github.com/ledongthuc/pdf"
)

const e2eSearchLimit = 30

// writeCorpus writes every corpus document as a file, cycling through the supported
// extensions, and returns the paths in corpus order plus a name to label map.
func writeCorpus(t *testing.T, dir string, corpus *Corpus) ([]string, map[string]string) {
	t.Helper()
	paths := make([]string, 0, len(corpus.Documents))
	labels := make(map[string]string, len(corpus.Documents))
	for i, d := range corpus.Documents {
		ext := SupportedFileExtensions[i%len(SupportedFileExtensions)]
		fileBytes, err := WriteMinimalFile(ext, d.Text())
		if err != nil {
			t.Fatalf("write minimal file %s%s: %v", d.Name, ext, err)
		}
		path := filepath.Join(dir, d.Name+ext)
		if err := os.WriteFile(path, fileBytes, 0644); err != nil {
			t.Fatalf("write file %s: %v", path, err)
		}
		paths = append(paths, path)
		labels[d.Name] = d.Name + ext
	}
	return paths, labels
}

func newSearchSession(t *testing.T) *session.Session {
	t.Helper()
	kwIndex, err := keyword.NewBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kwIndex.Close() })
	return session.New(extract.NewExtractor(), session.WithIndex(kwIndex))
}

// TestE2E_ExtractAndExport selects files of every supported type, then checks the
// assembled preview and both export formats.
func TestE2E_ExtractAndExport(t *testing.T) {
	dir := t.TempDir()
	docDir := filepath.Join(dir, "docs")
	if err := os.MkdirAll(docDir, 0755); err != nil {
		t.Fatal(err)
	}
	corpus := BuildCorpus()
	paths, _ := writeCorpus(t, docDir, corpus)

	// An unsupported file and a broken PDF ride along with the corpus.
	exe := filepath.Join(docDir, "tool.exe")
	broken := filepath.Join(docDir, "broken.pdf")
	if err := os.WriteFile(exe, []byte("MZ"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(broken, []byte("not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	sess := session.New(extract.NewExtractor())
	res, err := sess.Add(ctx, append(append([]string{}, paths...), exe, broken))
	if err != nil {
		t.Fatal(err)
	}
	if res.Extracted != len(paths) || res.Failed != 1 || len(res.Skipped) != 1 {
		t.Fatalf("unexpected add result: extracted=%d failed=%d skipped=%v notices=%v",
			res.Extracted, res.Failed, res.Skipped, res.Notices)
	}

	entries := sess.Entries()
	if len(entries) != len(paths) {
		t.Fatalf("expected %d entries, got %d", len(paths), len(entries))
	}
	for i, e := range entries {
		if e.Label != filepath.Base(paths[i]) {
			t.Errorf("entry %d label = %q, want %q (selection order)", i, e.Label, filepath.Base(paths[i]))
		}
		words := strings.Fields(corpus.Documents[i].Content)
		if normalized := strings.Join(strings.Fields(e.Content), " "); !strings.Contains(normalized, strings.Join(words, " ")) {
			t.Errorf("entry %s missing content, got %q", e.Label, normalized)
		}
	}

	textOut := filepath.Join(dir, "out.txt")
	if err := sess.Export(export.FormatText, textOut); err != nil {
		t.Fatalf("text export: %v", err)
	}
	data, err := os.ReadFile(textOut)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sess.Preview() {
		t.Error("text export differs from preview")
	}
	if strings.Contains(string(data), "broken.pdf") || strings.Contains(string(data), "tool.exe") {
		t.Error("failed or skipped files must not be exported")
	}

	pdfOut := filepath.Join(dir, "out.pdf")
	if err := sess.Export(export.FormatPDF, pdfOut); err != nil {
		t.Fatalf("PDF export: %v", err)
	}
	f, r, err := pdf.Open(pdfOut)
	if err != nil {
		t.Fatalf("open exported PDF: %v", err)
	}
	defer f.Close()
	preview := sess.Preview()
	lines := len(strings.Split(strings.TrimRight(preview, "\n"), "\n"))
	perPage := export.DefaultLayout().LinesPerPage()
	if want := (lines + perPage - 1) / perPage; r.NumPage() != want {
		t.Errorf("NumPage = %d, want %d for %d content lines", r.NumPage(), want, lines)
	}

	// The exported PDF is itself a supported input.
	reread, err := extract.NewExtractor().Extract(pdfOut)
	if err != nil {
		t.Fatalf("re-extract exported PDF: %v", err)
	}
	if !strings.Contains(reread, entries[0].Label) {
		t.Errorf("re-extracted PDF missing first label %q", entries[0].Label)
	}
}

// TestE2E_FileSearch extracts the corpus files and runs every query test case.
func TestE2E_FileSearch(t *testing.T) {
	dir := t.TempDir()
	corpus := BuildCorpus()
	paths, labels := writeCorpus(t, dir, corpus)

	ctx := context.Background()
	sess := newSearchSession(t)
	res, err := sess.Add(ctx, paths)
	if err != nil {
		t.Fatal(err)
	}
	if res.Extracted != len(paths) {
		t.Fatalf("expected %d files extracted, got %d (notices: %v)", len(paths), res.Extracted, res.Notices)
	}
	t.Logf("extracted %d files; running %d query test cases", res.Extracted, len(corpus.TestCases))

	for _, tc := range corpus.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			found, err := sess.Search(ctx, tc.Query, e2eSearchLimit, false)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			expected := make([]string, 0, len(tc.ExpectedNames))
			for _, name := range tc.ExpectedNames {
				expected = append(expected, labels[name])
			}
			got := hitLabels(found.Hits)
			if !containsAny(got, expected) {
				t.Errorf("query %q: expected at least one of %v in results, got %v", tc.Query, expected, got)
			}
		})
	}
}

// TestE2E_RemoveDropsFromSearchAndExport checks that a removed file disappears everywhere.
func TestE2E_RemoveDropsFromSearchAndExport(t *testing.T) {
	dir := t.TempDir()
	corpus := BuildCorpus()
	paths, labels := writeCorpus(t, dir, corpus)

	ctx := context.Background()
	sess := newSearchSession(t)
	if _, err := sess.Add(ctx, paths); err != nil {
		t.Fatal(err)
	}
	tc := corpus.TestCases[0]
	target := labels[tc.ExpectedNames[0]]
	if !sess.Remove(ctx, filepath.Join(dir, target)) {
		t.Fatalf("Remove(%s) = false", target)
	}
	found, err := sess.Search(ctx, tc.Query, e2eSearchLimit, false)
	if err != nil {
		t.Fatal(err)
	}
	if containsAny(hitLabels(found.Hits), []string{target}) {
		t.Errorf("removed file %s still returned for %q", target, tc.Query)
	}
	if strings.Contains(sess.Preview(), "--- "+target+" ---") {
		t.Errorf("removed file %s still in preview", target)
	}
}

func hitLabels(hits []models.SearchHit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Label)
	}
	return out
}

func containsAny(got []string, expected []string) bool {
	set := make(map[string]bool)
	for _, id := range got {
		set[id] = true
	}
	for _, id := range expected {
		if set[id] {
			return true
		}
	}
	return false
}
