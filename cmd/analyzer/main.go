package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v2"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/service"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath  string
	dicts       []string
	stop        []string
	sensitive   []string
	redundant   []string
	top         int
	format      string
	inputFormat string
	out         string
	glob        string
	maxBytes    int64
	jobs        int
	logLevel    string
	noColor     bool
	singleChar  bool
	foldWidth   bool
}

// outcome is the result of one input, kept in input order.
type outcome struct {
	source string
	res    *service.Result
	err    error
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	fs.StringVarP(&o.configPath, "config", "c", "", "Config file; dictionary flags override it")
	fs.StringSliceVar(&o.dicts, "dict", nil, "Dictionary files (word and frequency per line)")
	fs.StringSliceVar(&o.stop, "stop", nil, "Stop-word lists")
	fs.StringSliceVar(&o.sensitive, "sensitive", nil, "Sensitive-word lists")
	fs.StringSliceVar(&o.redundant, "redundant", nil, "Redundant-word lists")
	fs.IntVarP(&o.top, "top", "n", 0, "Entries per word list (default from config)")
	fs.StringVarP(&o.format, "format", "f", "text", "Output format: text, json")
	fs.StringVar(&o.inputFormat, "input-format", "", "Force the document format: text, markdown, html, pdf, docx")
	fs.StringVarP(&o.out, "out", "o", "", "Write output to a file instead of stdout")
	fs.StringVar(&o.glob, "glob", "*", "File name pattern used when walking directories")
	fs.Int64Var(&o.maxBytes, "max-bytes", 0, "Largest accepted document in bytes (default from config)")
	fs.IntVarP(&o.jobs, "jobs", "j", runtime.NumCPU(), "Documents analyzed in parallel")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fs.BoolVar(&o.noColor, "no-color", false, "Disable ANSI colors")
	fs.BoolVar(&o.singleChar, "single-char", false, "Count single-character words as terms")
	fs.BoolVar(&o.foldWidth, "fold-width", false, "Fold full-width ASCII to half width before analysis")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: analyzer [flags] [files or directories...]\n\n"+
			"Analyze documents against word dictionaries and print a report per document.\n"+
			"Directories are walked recursively; with no arguments the document is read from stdin.\n\n"+
			"Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if o.format != "text" && o.format != "json" {
		fmt.Fprintf(stderr, "analyzer: unknown output format %q\n", o.format)
		return 2
	}

	logger.SetupWriter(stderr, o.logLevel, "text")

	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "analyzer: %v\n", err)
		return 2
	}
	applyFlags(fs, &o, &cfg.Analyzer)

	var forced ingest.Format
	if o.inputFormat != "" {
		if forced, err = ingest.ParseFormat(o.inputFormat); err != nil {
			fmt.Fprintf(stderr, "analyzer: %v\n", err)
			return 2
		}
	}

	svc := service.New(cfg.Analyzer, service.Deps{Registry: lexicon.NewRegistry()})
	snap, err := svc.LoadDictionaries(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "analyzer: loading dictionaries: %v\n", err)
		return 1
	}
	if snap.Stats.Missing > 0 {
		fmt.Fprintf(stderr, "analyzer: %d dictionary file(s) not found\n", snap.Stats.Missing)
	}

	var results []outcome
	if fs.NArg() == 0 {
		results = []outcome{analyzeStdin(ctx, svc, stdin, forced, o.top)}
	} else {
		files, walked, err := resolveInputs(fs.Args(), o.glob)
		if err != nil {
			fmt.Fprintf(stderr, "analyzer: %v\n", err)
			return 2
		}
		var bar *progressbar.ProgressBar
		if walked && len(files) > 1 {
			bar = progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(stderr),
				progressbar.OptionSetDescription("analyzing"),
			)
		}
		results = analyzeFiles(ctx, svc, files, forced, o.top, o.jobs, bar)
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(stderr)
		}
	}

	w := stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			fmt.Fprintf(stderr, "analyzer: %v\n", err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if o.noColor || o.out != "" {
		color.NoColor = true
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(stderr, "%s %s: %v\n", errorColor("error"), r.source, r.err)
			continue
		}
		if o.format == "json" {
			if _, err := fmt.Fprintf(w, "%s\n", r.res.Body); err != nil {
				fmt.Fprintf(stderr, "analyzer: %v\n", err)
				return 1
			}
			continue
		}
		writeSummary(w, r.source, r.res)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(fs *flag.FlagSet, o *options, cfg *config.AnalyzerConfig) {
	if fs.Changed("dict") {
		cfg.Dictionaries = o.dicts
	}
	if fs.Changed("stop") {
		cfg.StopWords = o.stop
	}
	if fs.Changed("sensitive") {
		cfg.SensitiveWords = o.sensitive
	}
	if fs.Changed("redundant") {
		cfg.RedundantWords = o.redundant
	}
	if fs.Changed("max-bytes") && o.maxBytes > 0 {
		cfg.MaxDocumentBytes = o.maxBytes
	}
	if fs.Changed("single-char") {
		cfg.SingleCharTerms = o.singleChar
	}
	if fs.Changed("fold-width") {
		cfg.FoldWidth = o.foldWidth
	}
}

func analyzeStdin(ctx context.Context, svc *service.Analyzer, stdin io.Reader, format ingest.Format, top int) outcome {
	out := outcome{source: "<stdin>"}
	content, err := io.ReadAll(stdin)
	if err != nil {
		out.err = fmt.Errorf("reading stdin: %w", err)
		return out
	}
	if format == "" {
		format = ingest.FormatText
	}
	out.res, out.err = svc.Analyze(ctx, service.Document{
		Source:  out.source,
		Format:  format,
		Content: content,
		TopN:    top,
	})
	return out
}

// analyzeFiles analyzes files concurrently. A failing file is reported in
// its outcome and does not stop the others.
func analyzeFiles(ctx context.Context, svc *service.Analyzer, files []string, format ingest.Format, top, jobs int, bar *progressbar.ProgressBar) []outcome {
	results := make([]outcome, len(files))
	if jobs < 1 {
		jobs = 1
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			results[i] = analyzeFile(ctx, svc, path, format, top)
			if bar != nil {
				mu.Lock()
				_ = bar.Add(1)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func analyzeFile(ctx context.Context, svc *service.Analyzer, path string, format ingest.Format, top int) outcome {
	out := outcome{source: path}
	content, err := os.ReadFile(path)
	if err != nil {
		out.err = err
		return out
	}
	if format == "" {
		format = ingest.FormatForFile(path)
	}
	out.res, out.err = svc.Analyze(ctx, service.Document{
		Source:  path,
		Format:  format,
		Content: content,
		TopN:    top,
	})
	return out
}
