package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/silhouette-tools/internal/config"
	"github.com/ironsheep/silhouette-tools/internal/pipeline"
	"github.com/ironsheep/silhouette-tools/internal/segment"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and --help before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("silhouette-report %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage(os.Stdout, newFlagSet(&options{}))
			return
		}
	}

	os.Exit(run(os.Args[1:]))
}

// options mirrors the command-line flags.
type options struct {
	configPath  string
	input       string
	low         int
	high        int
	pdf         string
	pngDir      string
	workers     int
	segmenter   string
	rembgURL    string
	rembgCmd    string
	edgeBackend string
	logLevel    string
	human       bool
}

func newFlagSet(o *options) *flag.FlagSet {
	d := config.Default()
	fs := flag.NewFlagSet("silhouette-report", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&o.input, "input", d.InputDir, "directory of images to process")
	fs.IntVar(&o.low, "low", d.LowThreshold, "Canny low threshold")
	fs.IntVar(&o.high, "high", d.HighThreshold, "Canny high threshold")
	fs.StringVar(&o.pdf, "pdf", d.OutputPDF, "output PDF document")
	fs.StringVar(&o.pngDir, "png-dir", d.OutputPNGDir, "output directory for per-image PNG files")
	fs.IntVar(&o.workers, "workers", d.Workers, "images analysed in parallel")
	fs.StringVar(&o.segmenter, "segmenter", d.Segmentation.Backend, "background removal backend: http or command")
	fs.StringVar(&o.rembgURL, "rembg-url", d.Segmentation.URL, "rembg server base URL")
	fs.StringVar(&o.rembgCmd, "rembg-cmd", d.Segmentation.Command, "rembg executable")
	fs.StringVar(&o.edgeBackend, "edge-backend", d.EdgeBackend, "edge detector: native or opencv")
	fs.StringVar(&o.logLevel, "log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.BoolVar(&o.human, "human", false, "human-readable console logs instead of JSON")
	fs.Usage = func() { printUsage(fs.Output(), fs) }
	return fs
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "silhouette-report - silhouette centroid report for a directory of images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: silhouette-report -input <dir> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags override the configuration file, which overrides built-in defaults.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  SILHOUETTE_LOG_LEVEL=debug    Default log level")
}

// run executes one batch and returns the process exit status.
func run(args []string) int {
	var opts options
	fs := newFlagSet(&opts)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if lvl := os.Getenv("SILHOUETTE_LOG_LEVEL"); lvl != "" {
		cfg.Log.Level = lvl
	}
	applyFlags(fs, &opts, cfg)

	log, err := newLogger(os.Stderr, cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log.Debug().
		Str("version", Version).
		Str("built", BuildTime).
		Str("commit", GitCommit).
		Msg("silhouette-report starting")

	remover, err := segment.NewRemover(cfg.Segmentation)
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return 1
	}
	p, err := pipeline.New(cfg, segment.NewAdapter(remover), log)
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := p.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("batch failed")
		return 1
	}

	fmt.Fprintf(os.Stderr, "PDF saved to %s\n", summary.Document)
	fmt.Fprintf(os.Stderr, "PNG files saved to %s\n", summary.RasterDir)
	return 0
}

// applyFlags copies every flag given on the command line into cfg, so flags
// win over the configuration file while unset flags leave it alone.
func applyFlags(fs *flag.FlagSet, o *options, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputDir = o.input
		case "low":
			cfg.LowThreshold = o.low
		case "high":
			cfg.HighThreshold = o.high
		case "pdf":
			cfg.OutputPDF = o.pdf
		case "png-dir":
			cfg.OutputPNGDir = o.pngDir
		case "workers":
			cfg.Workers = o.workers
		case "segmenter":
			cfg.Segmentation.Backend = o.segmenter
		case "rembg-url":
			cfg.Segmentation.URL = o.rembgURL
		case "rembg-cmd":
			cfg.Segmentation.Command = o.rembgCmd
		case "edge-backend":
			cfg.EdgeBackend = o.edgeBackend
		case "log-level":
			cfg.Log.Level = o.logLevel
		case "human":
			cfg.Log.Human = o.human
		}
	})
}

// newLogger builds the zerolog logger described by cfg.
func newLogger(w io.Writer, cfg config.Log) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Human {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
