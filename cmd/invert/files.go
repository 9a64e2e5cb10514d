package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-invert/config"
	"github.com/nvr-ai/go-invert/office/ooxml"
	"github.com/nvr-ai/go-invert/pipeline"
)

// fileOptions control how documents are processed.
type fileOptions struct {
	// all inverts every picture of a Word document instead of only the first.
	all bool
	// inplace overwrites the input instead of writing FILE.inverted.EXT.
	inplace bool
}

// fileReport summarizes the runs made against one document.
type fileReport struct {
	Path      string
	Output    string
	Kind      pipeline.Kind
	Processed int
	Skipped   int
	Message   string
	Err       error
}

func (r fileReport) ok() bool { return r.Err == nil && r.Kind.OK() }

func filesCommand(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("invert", flag.ContinueOnError)
	var (
		common  commonFlags
		opts    fileOptions
		workers int
	)
	common.register(fs)
	fs.BoolVar(&opts.all, "all", false, "Invert every picture of a Word document, not only the first")
	fs.BoolVar(&opts.inplace, "inplace", false, "Overwrite the input files")
	fs.IntVar(&workers, "workers", 0, "Documents processed at once (default from config)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: invert [flags] FILE.docx|FILE.pptx...\n       invert serve [flags]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cfg, logger, err := common.load()
	if err != nil {
		return fail("%v", err)
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	reports := invertFiles(ctx, cfg, logger, opts, fs.Args())
	printReports(os.Stdout, reports)
	for _, r := range reports {
		if !r.ok() {
			return exitFailure
		}
	}
	return 0
}

// invertFiles processes documents concurrently, at most cfg.Workers at a time.
// A failing document does not stop the others.
func invertFiles(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts fileOptions, paths []string) []fileReport {
	reports := make([]fileReport, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			reports[i] = invertFile(gctx, cfg, logger.With("file", path), opts, path)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func invertFile(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts fileOptions, path string) fileReport {
	report := fileReport{Path: path}

	pkg, err := ooxml.Open(path)
	if err != nil {
		report.Err = err
		return report
	}

	pcfg := cfg.PipelineConfig()
	pcfg.Logger = logger
	orch, err := pipeline.New(pkg.Host(), pcfg)
	if err != nil {
		report.Err = err
		return report
	}

	// Word runs replace one inline picture at a time; -all selects each in turn.
	var selections [][]int
	switch {
	case pkg.Type() == ooxml.TypeDocx && opts.all:
		for i := range pkg.Media() {
			selections = append(selections, []int{i})
		}
	default:
		selections = [][]int{nil}
	}
	if len(selections) == 0 {
		selections = [][]int{nil}
	}

	var (
		messages []string
		failed   int
		firstBad pipeline.Kind
	)
	for _, sel := range selections {
		if err := ctx.Err(); err != nil {
			report.Err = err
			return report
		}
		if err := pkg.Select(sel...); err != nil {
			report.Err = err
			return report
		}
		res := orch.Run(ctx, pipeline.Trigger{Source: pipeline.SourceSelection})
		report.Processed += res.Processed
		report.Skipped += res.Skipped
		messages = append(messages, res.Message)
		if !res.OK() {
			if failed == 0 {
				firstBad = res.Kind
			}
			failed++
		}
	}
	switch {
	case report.Processed == 0:
		report.Kind = firstBad
	case failed == 0 && report.Skipped == 0:
		report.Kind = pipeline.Success
	default:
		report.Kind = pipeline.PartialSuccess
	}
	report.Message = strings.Join(messages, "\n")

	if pkg.Replaced() == 0 {
		return report
	}
	report.Output = outputPath(path, opts.inplace)
	if err := pkg.WriteFile(report.Output); err != nil {
		report.Err = err
	}
	return report
}

func outputPath(path string, inplace bool) string {
	if inplace {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".inverted" + ext
}

func printReports(w io.Writer, reports []fileReport) {
	for _, r := range reports {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "%s: error: %v\n", r.Path, r.Err)
		case r.Output != "":
			fmt.Fprintf(w, "%s: %s, %d inverted, %d skipped -> %s\n", r.Path, r.Kind, r.Processed, r.Skipped, r.Output)
		default:
			fmt.Fprintf(w, "%s: %s\n  %s\n", r.Path, r.Kind, strings.ReplaceAll(r.Message, "\n", "\n  "))
		}
	}
}
