// Package export serializes extracted entries into a plain-text file or a paginated PDF.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/textract/internal/models"
)

// Format is an export target.
type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
)

// ErrNothingToExport is returned when there are no entries. It is informational, not a failure.
var ErrNothingToExport = errors.New("no text to save")

// ExportError is an I/O or encoding failure of one export attempt.
type ExportError struct {
	Format      Format
	Destination string
	Err         error
}

func (e *ExportError) Error() string {
	if e.Destination == "" {
		return fmt.Sprintf("export %s: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("export %s to %s: %v", e.Format, e.Destination, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ParseFormat accepts "text", "txt", and "pdf" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt":
		return FormatText, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown export format %q; use text or pdf", s)
	}
}

// FormatFromPath infers the format from a destination's extension; ".pdf" is PDF, anything else text.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return FormatPDF
	}
	return FormatText
}

// ContentType returns the MIME type of the rendered output.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// Extension returns the conventional file extension, including the dot.
func (f Format) Extension() string {
	if f == FormatPDF {
		return ".pdf"
	}
	return ".txt"
}

// Assemble concatenates entries in order, each as "--- label ---", its content, and a blank line.
func Assemble(entries []models.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("--- ")
		b.WriteString(e.Label)
		b.WriteString(" ---\n")
		b.WriteString(e.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Exporter renders entries with a fixed PDF layout. It holds configuration only.
type Exporter struct {
	layout Layout
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLayout sets the PDF page layout.
func WithLayout(l Layout) Option {
	return func(x *Exporter) { x.layout = l }
}

// NewExporter returns an Exporter using DefaultLayout unless overridden.
func NewExporter(opts ...Option) *Exporter {
	x := &Exporter{layout: DefaultLayout()}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Layout returns the PDF layout in use.
func (x *Exporter) Layout() Layout { return x.layout }

// Export writes entries to destination, overwriting any existing file. The output is
// written to a temporary file in the same directory and renamed into place, so a failed
// export leaves no partial file behind. Failures are returned as *ExportError.
func (x *Exporter) Export(format Format, entries []models.Entry, destination string) error {
	if len(entries) == 0 {
		return ErrNothingToExport
	}
	err := writeFileAtomic(destination, func(w io.Writer) error {
		return x.render(w, format, entries)
	})
	if err != nil {
		return &ExportError{Format: format, Destination: destination, Err: err}
	}
	return nil
}

// WriteTo renders entries to w.
func (x *Exporter) WriteTo(w io.Writer, format Format, entries []models.Entry) error {
	if len(entries) == 0 {
		return ErrNothingToExport
	}
	if err := x.render(w, format, entries); err != nil {
		return &ExportError{Format: format, Err: err}
	}
	return nil
}

func (x *Exporter) render(w io.Writer, format Format, entries []models.Entry) error {
	content := Assemble(entries)
	switch format {
	case FormatText:
		_, err := io.WriteString(w, content)
		return err
	case FormatPDF:
		if err := x.layout.Validate(); err != nil {
			return err
		}
		return renderPDF(w, Paginate(content, x.layout), x.layout)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// writeFileAtomic replaces path through a temp file in the same directory.
// A symlink at path is followed so the link survives and its target is replaced.
// An existing file keeps its permission bits; one without the owner write bit is refused.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	target, mode, err := resolveDestination(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func resolveDestination(path string) (string, fs.FileMode, error) {
	target := path
	if info, err := os.Lstat(path); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", 0, err
		}
		if err != nil {
			// Dangling link: create the file it points at.
			if resolved, err = os.Readlink(path); err != nil {
				return "", 0, err
			}
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(filepath.Dir(path), resolved)
			}
		}
		target = resolved
	}
	info, err := os.Stat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return target, 0644, nil
	case err != nil:
		return "", 0, err
	case !info.Mode().IsRegular():
		return "", 0, fmt.Errorf("%s is not a regular file", target)
	case info.Mode().Perm()&0200 == 0:
		return "", 0, &fs.PathError{Op: "open", Path: target, Err: fs.ErrPermission}
	}
	return target, info.Mode().Perm(), nil
}
