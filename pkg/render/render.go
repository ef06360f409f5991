// Package render provides the glyph.Renderer implementations: an external
// ImageMagick process and an in-process drawer for PNG, and SVG templating
// for vector output.
package render

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/glyphpack/pkg/config"
	gperrors "github.com/provide-io/glyphpack/pkg/errors"
	"github.com/provide-io/glyphpack/pkg/glyph"
)

// New returns the renderer selected by cfg.
func New(cfg config.Config, logger hclog.Logger) (glyph.Renderer, error) {
	switch cfg.Mode {
	case config.ModeVector:
		return NewVector(cfg.Vector), nil
	case config.ModeRaster:
		switch cfg.Raster.Renderer {
		case config.RendererProcess:
			return NewProcess(cfg.Raster.Command, cfg.Raster.Canvas, logger.Named("process"))
		case config.RendererBuiltin:
			return NewBuiltin(cfg.Raster.Canvas, cfg.Raster.PointSize, logger.Named("builtin")), nil
		}
		return nil, fmt.Errorf("%w: unknown raster renderer %q", gperrors.ErrInvalidConfig, cfg.Raster.Renderer)
	}
	return nil, fmt.Errorf("%w: unknown mode %q", gperrors.ErrInvalidConfig, cfg.Mode)
}
