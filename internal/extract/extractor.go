// Package extract provides text extraction from plain text, PDF, DOCX, and HTML documents.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const defaultMaxFileSize int64 = 100 * 1024 * 1024

var (
	// ErrUnsupportedFormat is returned for paths whose extension is not in the supported set.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrNoText is returned when a decoder succeeds but produces no text.
	ErrNoText = errors.New("no text extracted")
	// ErrInvalidUTF8 is returned when a text-like file is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("content is not valid UTF-8")
)

// ExtractionError is a decoding failure for a supported file.
type ExtractionError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("extract (%s): %v", e.Format, e.Err)
	}
	return fmt.Sprintf("extract %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Decoder produces text from a document's bytes. Implementations must not retain r.
type Decoder interface {
	Decode(r io.ReaderAt, size int64) (string, error)
}

// HTMLPolicy controls which HTML text nodes count as content.
type HTMLPolicy struct {
	// IncludeHidden keeps text inside script, style, noscript, and template elements.
	IncludeHidden bool
}

// Extractor extracts plain text from document files. It holds no per-call state.
type Extractor struct {
	decoders    map[Format]Decoder
	maxFileSize int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTMLPolicy sets the HTML visible-text policy.
func WithHTMLPolicy(p HTMLPolicy) Option {
	return func(e *Extractor) { e.decoders[FormatHTML] = htmlDecoder{policy: p} }
}

// WithMaxFileSize rejects files larger than n bytes. n <= 0 keeps the default (100 MiB).
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxFileSize = n
		}
	}
}

// NewExtractor returns an Extractor with one decoder per Format.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		decoders: map[Format]Decoder{
			FormatPlain: plainDecoder{},
			FormatPDF:   pdfDecoder{},
			FormatDOCX:  docxDecoder{},
			FormatHTML:  htmlDecoder{},
		},
		maxFileSize: defaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract opens the file at path, decodes it by extension, and returns its text.
// The file handle is released before Extract returns. Unsupported extensions return
// ErrUnsupportedFormat; any other failure is an *ExtractionError.
func (e *Extractor) Extract(path string) (string, error) {
	format, ok := FormatFor(path)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Format: format, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &ExtractionError{Path: path, Format: format, Err: err}
	}
	if err := e.checkSize(info.Size()); err != nil {
		return "", &ExtractionError{Path: path, Format: format, Err: err}
	}
	text, err := e.decode(format, f, info.Size())
	if err != nil {
		return "", &ExtractionError{Path: path, Format: format, Err: err}
	}
	return text, nil
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). The size limit applies as for Extract.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	format, ok := extensionFormats[strings.ToLower(ext)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := e.checkSize(int64(len(content))); err != nil {
		return "", &ExtractionError{Format: format, Err: err}
	}
	text, err := e.decode(format, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", &ExtractionError{Format: format, Err: err}
	}
	return text, nil
}

func (e *Extractor) checkSize(size int64) error {
	if size > e.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", size, e.maxFileSize)
	}
	return nil
}

func (e *Extractor) decode(format Format, r io.ReaderAt, size int64) (text string, err error) {
	dec, ok := e.decoders[format]
	if !ok {
		return "", ErrUnsupportedFormat
	}
	// Third-party decoders panic on some malformed input.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("decoder panic: %v", rec)
		}
	}()
	text, err = dec.Decode(r, size)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func readAll(r io.ReaderAt, size int64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(size))
	if _, err := buf.ReadFrom(io.NewSectionReader(r, 0, size)); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return buf.Bytes(), nil
}
