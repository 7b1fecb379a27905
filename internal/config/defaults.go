package config

import "github.com/hyperjump/textract/internal/export"

const (
	// DefaultMaxFileSize is the largest input file extracted, in bytes.
	DefaultMaxFileSize = 100 << 20
	// DefaultLabelBoost weights label matches over content matches.
	DefaultLabelBoost = 2.0
	// DefaultFuzziness is the edit distance tolerated by fuzzy search.
	DefaultFuzziness = 2
	// DefaultSuggestMaxDistance is the edit distance allowed for "did you mean".
	DefaultSuggestMaxDistance = 2
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Extract.MaxFileSize == 0 {
		cfg.Extract.MaxFileSize = DefaultMaxFileSize
	}

	if cfg.Search.LabelBoost == 0 {
		cfg.Search.LabelBoost = DefaultLabelBoost
	}
	if cfg.Search.Fuzziness == 0 {
		cfg.Search.Fuzziness = DefaultFuzziness
	}
	if cfg.Search.SuggestMaxDistance == 0 {
		cfg.Search.SuggestMaxDistance = DefaultSuggestMaxDistance
	}

	def := export.DefaultLayout()
	l := &cfg.Export
	if l.PageWidth == 0 {
		l.PageWidth = def.PageWidth
	}
	if l.PageHeight == 0 {
		l.PageHeight = def.PageHeight
	}
	if l.Top == 0 {
		l.Top = def.Top
	}
	if l.Bottom == 0 {
		l.Bottom = def.Bottom
	}
	if l.Left == 0 {
		l.Left = def.Left
	}
	if l.LineHeight == 0 {
		l.LineHeight = def.LineHeight
	}
	if l.MaxChars == 0 {
		l.MaxChars = def.MaxChars
	}
	if l.FontFamily == "" {
		l.FontFamily = def.FontFamily
	}
	if l.FontSize == 0 {
		l.FontSize = def.FontSize
	}

	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
