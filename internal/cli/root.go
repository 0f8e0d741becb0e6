package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/bmharper/pdfocr"
	"github.com/bmharper/pdfocr/internal/config"
	"github.com/spf13/cobra"
)

var Version = "dev"

// ocrEngine is what the CLI needs from the OCR backend
type ocrEngine interface {
	pdfocr.Recognizer
	Check(ctx context.Context) error
	Close() error
}

// Replaced in tests, so that no Tesseract or MuPDF is needed
var (
	newEngine = func(lang string) (ocrEngine, error) { return pdfocr.NewTesseract(lang) }
	openFunc  = pdfocr.OpenDocument
)

var (
	flagConfig     string
	flagLang       string
	flagOutputDir  string
	flagStraighten bool
	flagMaxAngle   float64
	flagVerbose    bool
	flagJSONLog    bool
)

// exitError carries a process exit code through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pdfocr <input_path>",
		Short: "Extract the text of PDF files, including OCR of embedded images",
		Long: "Extract the text of a PDF file, or of every PDF in a directory, combining the digital\n" +
			"text layer with OCR of embedded images. Each PDF produces a .txt transcript.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0], stdout, stderr)
		},
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "pdfocr %s (tesseract %s)\n", Version, pdfocr.TesseractVersion())
		},
	}
	rootCmd.AddCommand(versionCmd)

	f := rootCmd.Flags()
	f.StringVarP(&flagConfig, "config", "c", "", "TOML config file (default "+config.DefaultPath+" if present)")
	f.StringVarP(&flagLang, "lang", "l", pdfocr.DefaultLanguage, "Tesseract OCR language, eg spa, eng, spa+eng")
	f.StringVarP(&flagOutputDir, "output-dir", "o", "", "Directory for transcripts (default: next to each PDF)")
	f.BoolVar(&flagStraighten, "straighten", false, "Deskew and rotate images upright before OCR")
	f.Float64Var(&flagMaxAngle, "max-angle", pdfocr.DefaultMaxAngle, "Maximum skew angle in degrees for --straighten")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	f.BoolVar(&flagJSONLog, "json-log", false, "Log as JSON")
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return pdfocr.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return pdfocr.ExitPrecondition
}

// loadConfig merges the config file, environment and explicitly set flags
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	f := cmd.Flags()
	if f.Changed("lang") {
		cfg.Lang = flagLang
	}
	if f.Changed("output-dir") {
		cfg.OutputDir = flagOutputDir
	}
	if f.Changed("straighten") {
		cfg.Straighten = flagStraighten
	}
	if f.Changed("max-angle") {
		cfg.MaxAngle = flagMaxAngle
	}
	if f.Changed("verbose") {
		cfg.Verbose = flagVerbose
	}
	if f.Changed("json-log") {
		cfg.JSONLog = flagJSONLog
	}
	return cfg, cfg.Validate()
}

func runExtract(cmd *cobra.Command, inputPath string, stdout, stderr io.Writer) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return &exitError{code: pdfocr.ExitPrecondition, err: err}
	}
	log := newLogger(stderr, cfg.Verbose, cfg.JSONLog)

	// Fail before touching any file if OCR cannot work
	engine, err := newEngine(cfg.Lang)
	if err != nil {
		return &exitError{code: pdfocr.ExitPrecondition, err: fmt.Errorf("%w: %v. Install Tesseract and the '%s' language data", pdfocr.ErrOCRUnavailable, err, cfg.Lang)}
	}
	defer engine.Close()
	if err := engine.Check(ctx); err != nil {
		return &exitError{code: pdfocr.ExitPrecondition, err: fmt.Errorf("%w. Install Tesseract and the '%s' language data", err, cfg.Lang)}
	}

	in, err := pdfocr.Resolve(inputPath)
	if err != nil {
		return &exitError{code: pdfocr.ExitPrecondition, err: err}
	}

	extractor := &pdfocr.Extractor{
		Open:   openFunc(log),
		OCR:    engine,
		Logger: log,
	}
	if cfg.Straighten {
		s, err := pdfocr.NewStraightener(cfg.MaxAngle)
		if err != nil {
			return &exitError{code: pdfocr.ExitPrecondition, err: err}
		}
		extractor.Straighten = s
	}
	runner := &pdfocr.Runner{
		Extractor: extractor,
		OutputDir: cfg.OutputDir,
		Logger:    log,
	}

	report := runner.Run(ctx, in)
	printSummary(stdout, report)
	if code := report.ExitCode(); code != pdfocr.ExitOK {
		return &exitError{code: code}
	}
	if err := ctx.Err(); err != nil {
		return &exitError{code: pdfocr.ExitPartial, err: err}
	}
	return nil
}

func printSummary(w io.Writer, report *pdfocr.Report) {
	for _, o := range report.Outcomes {
		switch {
		case !o.OK():
			fmt.Fprintf(w, "FAIL  %s: %v\n", o.File, o.Err)
		case len(o.ImageFailures) > 0:
			fmt.Fprintf(w, "OK    %s -> %s (%d pages, %d/%d images failed)\n", o.File, o.Output, o.Pages, len(o.ImageFailures), o.Images)
		default:
			fmt.Fprintf(w, "OK    %s -> %s (%d pages)\n", o.File, o.Output, o.Pages)
		}
	}
	fmt.Fprintf(w, "Done: %s\n", report)
}

func newLogger(w io.Writer, verbose, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
