// Package pipeline runs a full glyphpack build: load the input sprite, render
// every glyph, stage the assets and write the output sprite.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/provide-io/glyphpack/internal/staging"
	"github.com/provide-io/glyphpack/pkg/archive"
	"github.com/provide-io/glyphpack/pkg/config"
	"github.com/provide-io/glyphpack/pkg/glyph"
	"github.com/provide-io/glyphpack/pkg/render"
)

var tracer = otel.Tracer("github.com/provide-io/glyphpack/pkg/pipeline")

// Summary describes a finished build.
type Summary struct {
	Mode         config.Mode
	Input        string
	Output       string
	Fonts        int
	Glyphs       int
	Stored       int
	Deduplicated int
	Size         int64
	// StagingDir is set when the staging directory was kept.
	StagingDir string
	Elapsed    time.Duration
}

// Run builds cfg.Output from cfg.Input. Either the output archive is written
// completely or it is left untouched and an error is returned.
func Run(ctx context.Context, cfg config.Config, logger hclog.Logger) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	renderer, err := render.New(cfg, logger.Named("render"))
	if err != nil {
		return nil, err
	}
	return run(ctx, cfg, renderer, logger)
}

func run(ctx context.Context, cfg config.Config, renderer glyph.Renderer, logger hclog.Logger) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("glyphpack.mode", string(cfg.Mode)),
		attribute.String("glyphpack.output", cfg.Output),
	)

	summary, err := build(ctx, cfg, renderer, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		logger.Error("❌ Build failed", "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("glyphpack.glyphs", summary.Glyphs))
	return summary, nil
}

func build(ctx context.Context, cfg config.Config, renderer glyph.Renderer, logger hclog.Logger) (*Summary, error) {
	start := time.Now()
	jobs := glyph.Plan(cfg)
	logger.Info("📦 Building sprite",
		"mode", cfg.Mode,
		"input", cfg.Input,
		"output", cfg.Output,
		"fonts", len(cfg.Fonts),
		"glyphs", len(jobs),
		"workers", cfg.Render.Workers)

	// Reading the input first means a bad archive fails before any rendering.
	manifest, err := archive.Load(cfg.Input)
	if err != nil {
		return nil, err
	}
	logger.Debug("📖 Input sprite loaded", "name", manifest.Get("name").String())

	lock, err := archive.AcquireLock(cfg.Output, logger.Named("lock"))
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	dir, err := openStaging(cfg, logger.Named("staging"))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := dir.Cleanup(cfg.KeepStaging); err != nil {
			logger.Warn("⚠️ Failed to clean up staging directory", "path", dir.Path(), "error", err)
		}
	}()

	gen := glyph.NewGenerator(renderer, dir, glyph.GeneratorOptions{
		Canvas:           cfg.Canvas(),
		BitmapResolution: cfg.Raster.BitmapResolution,
		Timeout:          cfg.Render.Timeout.Std(),
		Retries:          cfg.Render.Retries,
	}, logger.Named("generator"))

	descriptors, err := generate(ctx, gen, jobs, cfg.Render.Workers, logger)
	if err != nil {
		return nil, err
	}

	res, err := archive.Assemble(manifest, descriptors, archive.Options{
		StagingDir: dir.Path(),
		Output:     cfg.Output,
		Perms:      cfg.OutputPerms.Perm(),
		Verify:     cfg.Verify,
	}, logger.Named("archive"))
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Mode:         cfg.Mode,
		Input:        cfg.Input,
		Output:       res.Path,
		Fonts:        len(cfg.Fonts),
		Glyphs:       res.Glyphs,
		Stored:       res.Stored,
		Deduplicated: res.Deduplicated,
		Size:         res.Size,
		Elapsed:      time.Since(start),
	}
	if cfg.KeepStaging || cfg.StagingDir != "" {
		summary.StagingDir = dir.Path()
	}

	logger.Info("✅ Build complete",
		"output", summary.Output,
		"glyphs", summary.Glyphs,
		"size", humanize.Bytes(uint64(summary.Size)),
		"elapsed", summary.Elapsed.Round(time.Millisecond))
	return summary, nil
}

func openStaging(cfg config.Config, logger hclog.Logger) (*staging.Dir, error) {
	if cfg.StagingDir != "" {
		return staging.Open(cfg.StagingDir, logger)
	}
	return staging.New("", logger)
}

// generate drains a stream over jobs, logging as each font completes.
func generate(ctx context.Context, p glyph.Producer, jobs []glyph.Job, workers int, logger hclog.Logger) ([]glyph.Descriptor, error) {
	stream := glyph.NewStream(ctx, p, jobs, workers)
	defer stream.Close()

	descriptors := make([]glyph.Descriptor, 0, len(jobs))
	for stream.Next() {
		i := len(descriptors)
		descriptors = append(descriptors, stream.Descriptor())
		if i+1 == len(jobs) || jobs[i+1].Font.ID != jobs[i].Font.ID {
			logger.Debug("🖋️ Font rendered", "font", jobs[i].Font.ID, "done", i+1, "total", len(jobs))
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("failed to generate glyphs: %w", err)
	}
	return descriptors, nil
}
