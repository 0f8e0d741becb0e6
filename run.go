package pdfocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Process exit codes
const (
	ExitOK           = 0 // every file produced a transcript
	ExitPrecondition = 1 // OCR engine unavailable, or the input path could not be resolved
	ExitPartial      = 2 // at least one file failed and at least one succeeded
	ExitFailed       = 3 // no file succeeded
)

// Outcome is the result of processing one PDF
type Outcome struct {
	File          string
	Output        string // empty when nothing was written
	Err           error
	Pages         int
	Images        int
	ImageFailures []*ImageError
}

func (o *Outcome) OK() bool {
	return o.Err == nil
}

// Report aggregates the outcomes of a run
type Report struct {
	Outcomes []*Outcome
}

func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

func (r *Report) ImageFailures() int {
	n := 0
	for _, o := range r.Outcomes {
		n += len(o.ImageFailures)
	}
	return n
}

func (r *Report) ExitCode() int {
	switch {
	case r.Failed() == 0:
		return ExitOK
	case r.Succeeded() == 0:
		return ExitFailed
	default:
		return ExitPartial
	}
}

func (r *Report) String() string {
	return fmt.Sprintf("%d succeeded, %d failed, %d image failures", r.Succeeded(), r.Failed(), r.ImageFailures())
}

// Runner extracts every PDF of an Input and writes the transcripts.
type Runner struct {
	Extractor *Extractor
	OutputDir string // empty means next to each PDF
	Logger    *slog.Logger
}

// Run processes the files of in sequentially. A failing file never stops the
// run; only cancellation of ctx does.
func (r *Runner) Run(ctx context.Context, in Input) *Report {
	log := orNop(r.Logger)
	report := &Report{}

	if r.OutputDir != "" {
		if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
			for _, f := range in.Files {
				report.Outcomes = append(report.Outcomes, &Outcome{File: f, Err: fmt.Errorf("create output directory: %w", err)})
			}
			log.Error("Could not create output directory", "dir", r.OutputDir, "error", err)
			return report
		}
	}
	if in.Mode == ModeDirectory {
		log.Info("Processing directory", "dir", in.Dir, "files", len(in.Files), "output", r.outputDirFor(in))
	}

	for _, f := range in.Files {
		if ctx.Err() != nil {
			break
		}
		report.Outcomes = append(report.Outcomes, r.processFile(ctx, f))
	}
	return report
}

func (r *Runner) outputDirFor(in Input) string {
	if r.OutputDir != "" {
		return r.OutputDir
	}
	return in.Dir
}

func (r *Runner) processFile(ctx context.Context, file string) *Outcome {
	log := orNop(r.Logger)
	out := &Outcome{File: file}

	res, err := r.Extractor.Extract(ctx, file)
	if err != nil {
		out.Err = err
		log.Error("Could not process PDF", "file", file, "error", err)
		return out
	}
	out.Pages = res.Pages
	out.Images = res.Images
	out.ImageFailures = res.ImageFailures
	if res.Text == "" {
		out.Err = fmt.Errorf("%s: %w", filepath.Base(file), ErrEmptyDocument)
		log.Warn("Nothing to write", "file", file)
		return out
	}

	dst := OutputPath(file, r.OutputDir)
	if err := WriteText(res.Text, dst); err != nil {
		out.Err = err
		log.Error("Could not save transcript", "file", file, "error", err)
		return out
	}
	out.Output = dst
	log.Info("Transcript saved", "output", dst)
	return out
}
