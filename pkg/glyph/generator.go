package glyph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/provide-io/glyphpack/pkg/config"
	gperrors "github.com/provide-io/glyphpack/pkg/errors"
)

var tracer = otel.Tracer("github.com/provide-io/glyphpack/pkg/glyph")

// Request asks a Renderer for one character in one font.
type Request struct {
	Font      config.Font
	Character rune
}

// Renderer produces the image bytes for a single glyph.
type Renderer interface {
	Render(ctx context.Context, req Request) ([]byte, error)
	Format() Format
}

// Store persists rendered bytes under their content-addressed file name.
type Store interface {
	Put(name string, data []byte) error
}

// GeneratorOptions tunes a Generator.
type GeneratorOptions struct {
	Canvas config.Canvas
	// BitmapResolution is recorded on PNG descriptors; ignored for SVG.
	BitmapResolution int
	// Timeout bounds each render attempt; zero means no limit.
	Timeout time.Duration
	// Retries is the number of extra attempts after a failed render.
	Retries int
	// RetryInterval is the first backoff delay; later delays grow exponentially.
	RetryInterval time.Duration
}

// Generator renders, hashes and stages glyphs.
// It holds no per-glyph state and is safe for concurrent use if its Renderer
// and Store are.
type Generator struct {
	renderer Renderer
	store    Store
	opts     GeneratorOptions
	logger   hclog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(renderer Renderer, store Store, opts GeneratorOptions, logger hclog.Logger) *Generator {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 250 * time.Millisecond
	}
	return &Generator{
		renderer: renderer,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

// Generate renders job, stages the bytes as {digest}.{ext} and returns the
// descriptor. Render failures are retried with backoff before being reported
// as gperrors.ErrRenderFailure.
func (g *Generator) Generate(ctx context.Context, job Job) (Descriptor, error) {
	ctx, span := tracer.Start(ctx, "glyph.Generate", trace.WithAttributes(
		attribute.String("glyph.font", job.Font.ID),
		attribute.String("glyph.name", job.Name),
	))
	defer span.End()

	desc, err := g.generate(ctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return Descriptor{}, err
	}
	span.SetAttributes(attribute.String("glyph.digest", desc.AssetID))
	return desc, nil
}

func (g *Generator) generate(ctx context.Context, job Job) (Descriptor, error) {
	data, err := g.render(ctx, job)
	if err != nil {
		return Descriptor{}, &gperrors.GlyphError{
			Op:        "render",
			Font:      job.Font.ID,
			Character: string(job.Character),
			Name:      job.Name,
			Err:       err,
		}
	}

	format := g.renderer.Format()
	digest := Digest(data)
	md5ext := MD5Ext(digest, format)

	if err := g.store.Put(md5ext, data); err != nil {
		return Descriptor{}, &gperrors.GlyphError{
			Op:        "stage",
			Font:      job.Font.ID,
			Character: string(job.Character),
			Name:      job.Name,
			Digest:    digest,
			Err:       err,
		}
	}

	desc := Descriptor{
		AssetID:         digest,
		Name:            job.Name,
		MD5Ext:          md5ext,
		DataFormat:      format,
		RotationCenterX: g.opts.Canvas.Width / 2,
		RotationCenterY: g.opts.Canvas.Height / 2,
	}
	if format == FormatPNG {
		desc.BitmapResolution = g.opts.BitmapResolution
	}

	g.logger.Trace("🖋️ Glyph generated", "name", job.Name, "md5ext", md5ext, "size", len(data))
	return desc, nil
}

func (g *Generator) render(ctx context.Context, job Job) ([]byte, error) {
	req := Request{Font: job.RenderFont, Character: job.Character}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.opts.RetryInterval

	attempt := func() ([]byte, error) {
		attemptCtx := ctx
		if g.opts.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
			defer cancel()
		}

		data, err := g.renderer.Render(attemptCtx, req)
		if err == nil && len(data) == 0 {
			err = fmt.Errorf("%w: renderer produced no output", gperrors.ErrRenderFailure)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: timed out after %s", gperrors.ErrRenderFailure, g.opts.Timeout)
			}
			return nil, err
		}
		return data, nil
	}

	data, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(g.opts.Retries)+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			g.logger.Warn("🔁 Render failed, retrying", "name", job.Name, "font", job.Font.ID, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, gperrors.ErrRenderFailure) {
			err = fmt.Errorf("%w: %w", gperrors.ErrRenderFailure, err)
		}
		return nil, err
	}
	return data, nil
}
