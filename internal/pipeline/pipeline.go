// Package pipeline runs the silhouette centroid batch.
//
// Every entry of the input directory goes through the same stages:
//
//	load -> original edges -> adjust -> segment -> edges -> centroid -> render -> persist
//
// A failure in any stage, including a panic, skips that item only; the rest
// of the batch continues and the document is always finalised. The only
// batch-level failures are an unreadable or empty input directory, output
// that cannot be created, and a document that cannot be written.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/silhouette-tools/internal/config"
	"github.com/ironsheep/silhouette-tools/internal/imaging"
	"github.com/ironsheep/silhouette-tools/internal/report"
)

// Stage names a step of the per-item pipeline.
type Stage string

const (
	StageLoad          Stage = "load"
	StageOriginalEdges Stage = "original_edges"
	StageAdjust        Stage = "adjust"
	StageSegment       Stage = "segment"
	StageEdges         Stage = "edges"
	StageCentroid      Stage = "centroid"
	StageRender        Stage = "render"
	StagePersist       Stage = "persist"
)

// StageError is the error recorded for a skipped item.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Segmenter removes the background of an image. *segment.Adapter
// implements it.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) (*image.NRGBA, error)
}

// Outcome is the result of analysing one item.
type Outcome struct {
	Item     Item
	Centroid imaging.Centroid
	Size     image.Point
	Figure   *report.Figure

	// Err is a *StageError when the item failed.
	Err error
}

// Pipeline holds everything a batch needs. Build one with New.
type Pipeline struct {
	cfg       config.Config
	policy    imaging.SaturationPolicy
	detector  imaging.EdgeDetector
	segmenter Segmenter
	renderer  *report.Renderer
	log       zerolog.Logger
}

// New validates cfg and prepares a pipeline around the given segmenter.
func New(cfg *config.Config, seg Segmenter, log zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, fmt.Errorf("%w: no segmenter", config.ErrInvalid)
	}

	channels, err := imaging.ParseChannels(cfg.Saturation.Decrease)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	detector, err := imaging.NewEdgeDetector(cfg.EdgeBackend, cfg.SmoothingKernel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	mc, err := config.ParseHexColor(cfg.Marker.Color)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	return &Pipeline{
		cfg: *cfg,
		policy: imaging.SaturationPolicy{
			Increase: cfg.Saturation.Increase,
			Decrease: channels,
		},
		detector:  detector,
		segmenter: seg,
		renderer: report.NewRenderer(
			cfg.Figure.Width,
			cfg.Figure.Height,
			cfg.Marker.Radius,
			color.NRGBA{R: mc.R, G: mc.G, B: mc.B, A: mc.A},
		),
		log: log,
	}, nil
}

// Run processes the whole batch.
//
// Items are analysed cfg.Workers at a time; pages and rasters are written in
// enumeration order regardless. When ctx is done no further items are
// started, the document is still finalised, and the returned error wraps
// ctx.Err(). If the document fails no further items are persisted and the
// error matches report.ErrDocumentFailed. The Summary is non-nil whenever
// output was created.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	items, err := Enumerate(p.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	p.log.Info().
		Int("count", len(items)).
		Str("input", p.cfg.InputDir).
		Msg("images found")

	if err := os.MkdirAll(p.cfg.OutputPNGDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create raster directory: %w", err)
	}
	doc, err := report.OpenDocument(p.cfg.OutputPDF, p.cfg.Figure.Width, p.cfg.Figure.Height, p.cfg.Figure.DPI)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	summary := &Summary{
		Total:     len(items),
		Document:  doc.Path(),
		RasterDir: p.cfg.OutputPNGDir,
	}

	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	var fatal error
batch:
	for start := 0; start < len(items); start += workers {
		if ctx.Err() != nil {
			break
		}
		end := min(start+workers, len(items))
		for _, out := range p.analyseWindow(ctx, items[start:end], workers) {
			if fatal = p.persist(doc, out, summary); fatal != nil {
				break batch
			}
		}
	}
	// Also covers a cancellation that arrived during the last window.
	summary.Cancelled = ctx.Err() != nil

	if err := doc.Close(); err != nil {
		return summary, err
	}
	if fatal != nil {
		return summary, fatal
	}
	summary.Pages = doc.Pages()
	summary.finish()

	p.log.Info().
		Str("document", summary.Document).
		Str("raster_dir", summary.RasterDir).
		Int("processed", len(summary.Processed)).
		Int("skipped", len(summary.Skipped)).
		Int("fallbacks", summary.Fallbacks).
		Float64("offset_mean", summary.OffsetMean).
		Float64("offset_stddev", summary.OffsetStdDev).
		Msg("batch complete")

	if summary.Cancelled {
		return summary, fmt.Errorf("batch interrupted: %w", ctx.Err())
	}
	return summary, nil
}

// analyseWindow runs Process for each item concurrently and returns the
// outcomes in item order.
func (p *Pipeline) analyseWindow(ctx context.Context, items []Item, limit int) []Outcome {
	outcomes := make([]Outcome, len(items))
	if len(items) == 1 {
		outcomes[0] = p.Process(ctx, items[0])
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			outcomes[i] = p.Process(ctx, item)
			return nil
		})
	}
	g.Wait()
	return outcomes
}

// Process runs every stage up to and including render for one item.
//
// Panics raised by a stage are recovered and reported as that stage's
// error, so one bad item cannot bring the batch down.
func (p *Pipeline) Process(ctx context.Context, item Item) (out Outcome) {
	out.Item = item
	stage := StageLoad
	defer func() {
		if r := recover(); r != nil {
			out.Figure = nil
			out.Err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	p.log.Debug().
		Int("ordinal", item.Ordinal).
		Str("path", item.Path).
		Msg("processing image")

	original, err := imaging.Load(item.Path)
	if err != nil {
		out.Err = &StageError{Stage: stage, Err: err}
		return out
	}
	out.Size = original.Bounds().Size()

	stage = StageOriginalEdges
	originalEdges := p.detector.DetectEdges(original, p.cfg.LowThreshold, p.cfg.HighThreshold)

	stage = StageAdjust
	adjusted := imaging.AdjustSaturation(original, p.policy)

	stage = StageSegment
	segmented, err := p.segmenter.Segment(ctx, adjusted)
	if err != nil {
		out.Err = &StageError{Stage: stage, Err: err}
		return out
	}

	stage = StageEdges
	segmentedEdges := p.detector.DetectEdges(segmented, p.cfg.LowThreshold, p.cfg.HighThreshold)

	stage = StageCentroid
	out.Centroid = imaging.EstimateCentroid(segmentedEdges)

	stage = StageRender
	out.Figure = p.renderer.Compose(report.Panels{
		Ordinal:        item.Ordinal,
		Original:       original,
		OriginalEdges:  originalEdges,
		Segmented:      segmented,
		SegmentedEdges: segmentedEdges,
		Centroid:       out.Centroid,
	})

	ev := p.log.Info().
		Int("ordinal", item.Ordinal).
		Int("x", out.Centroid.X).
		Int("y", out.Centroid.Y)
	if out.Centroid.Fallback {
		ev = ev.Bool("fallback", true)
	}
	ev.Msg("centroid")

	return out
}

// persist writes an analysed item, or records it as skipped. The raster is
// written first and removed again if the page cannot be added, so every
// processed ordinal has both outputs.
//
// The returned error is non-nil only when the document itself has failed and
// the batch cannot continue.
func (p *Pipeline) persist(doc *report.Document, out Outcome, summary *Summary) error {
	if out.Err == nil {
		path, err := report.WriteRaster(p.cfg.OutputPNGDir, out.Figure)
		if err == nil {
			if err = doc.AddFigure(out.Figure); err != nil {
				os.Remove(path)
				if errors.Is(err, report.ErrDocumentFailed) {
					return err
				}
			}
		}
		if err != nil {
			out.Err = &StageError{Stage: StagePersist, Err: err}
		}
	}

	if out.Err != nil {
		skip := Skip{Ordinal: out.Item.Ordinal, Path: out.Item.Path, Err: out.Err}
		var se *StageError
		if errors.As(out.Err, &se) {
			skip.Stage = se.Stage
		}
		summary.Skipped = append(summary.Skipped, skip)
		p.log.Warn().
			Int("ordinal", skip.Ordinal).
			Str("path", skip.Path).
			Str("stage", string(skip.Stage)).
			Err(out.Err).
			Msg("skipping image")
		return nil
	}

	summary.Processed = append(summary.Processed, out.Item.Ordinal)
	summary.addCentroid(out.Centroid, out.Size)
	return nil
}
