package extract

import (
	"path/filepath"
	"sort"
	"strings"
)

// Format identifies one of the closed set of document types the extractor decodes.
type Format string

const (
	// FormatPlain is UTF-8 text: prose, markdown, and source code.
	FormatPlain Format = "plain"
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatHTML  Format = "html"
)

// extensionFormats is the fixed supported set. Keys are lower-case with the leading dot.
var extensionFormats = map[string]Format{
	".txt":  FormatPlain,
	".md":   FormatPlain,
	".java": FormatPlain,
	".py":   FormatPlain,
	".cpp":  FormatPlain,
	".cc":   FormatPlain,
	".y":    FormatPlain,
	".l":    FormatPlain,
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".html": FormatHTML,
}

// FormatFor returns the format for path based on its lower-cased extension.
// ok is false when the extension is not in the supported set.
func FormatFor(path string) (format Format, ok bool) {
	format, ok = extensionFormats[strings.ToLower(filepath.Ext(path))]
	return format, ok
}

// Supported reports whether path has a supported extension.
func Supported(path string) bool {
	_, ok := FormatFor(path)
	return ok
}

// SupportedExtensions returns the supported extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionFormats))
	for ext := range extensionFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
