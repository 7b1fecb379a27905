// Package main is the textract CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/textract/internal/cli"
	"github.com/hyperjump/textract/internal/config"
	"github.com/hyperjump/textract/internal/export"
	"github.com/hyperjump/textract/internal/extract"
	"github.com/hyperjump/textract/internal/keyword"
	"github.com/hyperjump/textract/internal/server"
	"github.com/hyperjump/textract/internal/session"
	"github.com/hyperjump/textract/internal/watcher"
	"github.com/hyperjump/textract/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/textract/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory is preferred if it exists, and a missing default file yields the
// built-in defaults. An explicit path must exist.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	if cwd, err := os.Getwd(); err == nil {
		fallback := filepath.Join(cwd, config.DefaultPath)
		if _, statErr := os.Stat(fallback); statErr == nil {
			cfg, loadErr := config.Load(fallback)
			if loadErr != nil {
				return nil, "", loadErr
			}
			return cfg, fallback, nil
		}
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	command, rest := args[0], args[1:]
	switch command {
	case "extract":
		return runExtract(rest, stdout, stderr)
	case "export":
		return runExport(rest, stdout, stderr)
	case "search":
		return runSearch(rest, stdout, stderr)
	case "serve", "server":
		return runServe(rest, nil, stderr)
	case "watch":
		return runWatch(rest, stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "textract version %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `textract - extract, preview, and export text from documents

Usage:
  textract extract [--config path] [--output text|json] <files...>
  textract export  [--config path] --out <path> [--format text|pdf] <files...>
  textract search  [--config path] [--fuzzy] [--limit n] [--output text|json] --query <q> <files...>
  textract serve   [--config path] [--debug]
  textract watch   [--config path] [--debug] <dirs...>
  textract version
  textract help

Supported extensions: %s
`, strings.Join(extract.SupportedExtensions(), " "))
}

// reorderArgs moves flags (and their values) ahead of positional arguments so that
// flag.Parse sees them wherever they appear, keeping positional order intact.
// Go's flag package stops at the first non-flag argument, so "textract export a.txt --out x"
// would otherwise leave --out unparsed. Arguments after "--" stay positional.
func reorderArgs(fs *flag.FlagSet, args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if f := fs.Lookup(name); f != nil && !isBoolFlag(f) && i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return append(flags, positional...)
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// environment holds what every one-shot command needs.
type environment struct {
	cfg       *config.Config
	cfgPath   string
	logger    *zap.Logger
	extractor *extract.Extractor
	exporter  *export.Exporter
}

func newEnvironment(configPath string, debug bool, longRunning bool) (*environment, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || debug
	var logger *zap.Logger
	if longRunning {
		logger, err = utils.NewLogger(debugMode)
	} else {
		logger, err = utils.NewCLILogger(debugMode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if err := cfg.Export.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export layout in %s: %w", resolved, err)
	}
	return &environment{
		cfg:     cfg,
		cfgPath: resolved,
		logger:  logger,
		extractor: extract.NewExtractor(
			extract.WithMaxFileSize(cfg.Extract.MaxFileSize),
			extract.WithHTMLPolicy(extract.HTMLPolicy{IncludeHidden: cfg.Extract.HTMLIncludeHidden}),
		),
		exporter: export.NewExporter(export.WithLayout(cfg.Export)),
	}, nil
}

func (e *environment) newSession(opts ...session.Option) *session.Session {
	opts = append([]session.Option{
		session.WithLogger(e.logger),
		session.WithExporter(e.exporter),
		session.WithSearchOptions(keyword.SearchOptions{
			LabelBoost: e.cfg.Search.LabelBoost,
			Fuzziness:  e.cfg.Search.Fuzziness,
		}),
		session.WithSuggestMaxDistance(e.cfg.Search.SuggestMaxDistance),
	}, opts...)
	return session.New(e.extractor, opts...)
}

func runExtract(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: textract extract [flags] <files...>")
		return 1
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	env, err := newEnvironment(*configPath, *debug, false)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer env.logger.Sync()

	sess := env.newSession()
	res, err := sess.Add(context.Background(), fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Extraction interrupted: %v\n", err)
		return 1
	}
	report := &cli.ExtractionReport{
		Session:    sess.ID(),
		Entries:    sess.Entries(),
		Notices:    res.Notices,
		Skipped:    res.Skipped,
		Duplicates: res.Duplicates,
	}
	if err := cli.WriteExtraction(stdout, report, format); err != nil {
		fmt.Fprintf(stderr, "Output failed: %v\n", err)
		return 1
	}
	if format == cli.OutputText {
		cli.WriteNotices(stderr, res.Notices)
	}
	return 0
}

func runExport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	out := fs.String("out", "", "destination file (required)")
	formatName := fs.String("format", "", "export format: text or pdf (default: from --out extension)")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return 2
	}
	if *out == "" || fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: textract export --out <path> [--format text|pdf] <files...>")
		return 1
	}
	format := export.FormatFromPath(*out)
	if *formatName != "" {
		f, err := export.ParseFormat(*formatName)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		format = f
	}
	env, err := newEnvironment(*configPath, *debug, false)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer env.logger.Sync()

	sess := env.newSession()
	res, err := sess.Add(context.Background(), fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Extraction interrupted: %v\n", err)
		return 1
	}
	cli.WriteNotices(stderr, res.Notices)

	err = sess.Export(format, *out)
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		fmt.Fprintln(stdout, "No text to save.")
		return 0
	case err != nil:
		fmt.Fprintf(stderr, "Failed to save file: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "File saved successfully.")
	return 0
}

func runSearch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	query := fs.String("query", "", "text to find in the extracted files (required)")
	limit := fs.Int("limit", 10, "maximum number of results")
	fuzzy := fs.Bool("fuzzy", false, "enable typo-tolerant matching")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return 2
	}
	if strings.TrimSpace(*query) == "" || fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: textract search --query <q> [flags] <files...>")
		return 1
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	env, err := newEnvironment(*configPath, false, false)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer env.logger.Sync()

	idx, err := keyword.NewBleveIndex()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create index: %v\n", err)
		return 1
	}
	defer idx.Close()

	ctx := context.Background()
	sess := env.newSession(session.WithIndex(idx))
	res, err := sess.Add(ctx, fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Extraction interrupted: %v\n", err)
		return 1
	}
	cli.WriteNotices(stderr, res.Notices)

	found, err := sess.Search(ctx, *query, *limit, *fuzzy)
	if err != nil {
		fmt.Fprintf(stderr, "Search failed: %v\n", err)
		return 1
	}
	if err := cli.WriteSearchResults(stdout, found, format); err != nil {
		fmt.Fprintf(stderr, "Output failed: %v\n", err)
		return 1
	}
	return 0
}

func runWatch(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	// Flags are parsed again by runServe; only the directories are taken here.
	fs.String("config", defaultConfigPath, "config file path")
	fs.Bool("debug", false, "enable debug logging")
	reordered := reorderArgs(fs, args)
	if err := fs.Parse(reordered); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: textract watch [flags] <dirs...>")
		return 1
	}
	flagArgs := reordered[:len(reordered)-fs.NArg()]
	return runServe(flagArgs, fs.Args(), stderr)
}

// runServe runs the HTTP API until SIGINT or SIGTERM. extraDirs are watched in
// addition to the configured inbox directories.
func runServe(args []string, extraDirs []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, extraction, etc.)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	env, err := newEnvironment(*configPath, *debug, true)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := env.logger
	defer logger.Sync()
	cfg := env.cfg
	logger.Info("config loaded",
		zap.String("config_path", env.cfgPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	idx, err := keyword.NewBleveIndex()
	if err != nil {
		logger.Error("Failed to create index", zap.Error(err))
		return 1
	}
	defer idx.Close()
	sess := env.newSession(session.WithIndex(idx))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dirs := append(append([]string(nil), cfg.Watch.Directories...), extraDirs...)
	watchSvc := newInbox(ctx, sess, dirs, cfg.Watch.RecursiveOrDefault(), logger)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Error("Failed to start watcher", zap.Error(err))
		return 1
	}
	defer watchSvc.Stop()
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(sess, &cfg.Server, logger, watchSvc, env.cfgPath, cfg)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
		return 1
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	return 0
}

// newInbox returns a watcher that feeds files under dirs into sess: written files
// are (re)extracted and removed files leave the selection.
func newInbox(ctx context.Context, sess *session.Session, dirs []string, recursive bool, logger *zap.Logger, opts ...watcher.Option) *watcher.Watcher {
	opts = append([]watcher.Option{watcher.WithLogger(logger)}, opts...)
	return watcher.NewWatcher(
		dirs,
		recursive,
		func(path string) {
			res, err := sess.Refresh(ctx, path)
			if err != nil {
				logger.Warn("watch refresh failed", zap.String("path", path), zap.Error(err))
				return
			}
			for _, n := range res.Notices {
				logger.Warn(n.Message, zap.String("file", n.File))
			}
		},
		func(path string) {
			if sess.Remove(ctx, path) {
				logger.Info("file left inbox", zap.String("path", path))
			}
		},
		opts...,
	)
}
