package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/provide-io/glyphpack/pkg/config"
	gperrors "github.com/provide-io/glyphpack/pkg/errors"
	"github.com/provide-io/glyphpack/pkg/glyph"
)

// BuiltinFont selects the embedded Go Regular font instead of a file.
const BuiltinFont = "builtin:goregular"

// Builtin renders PNG glyphs in-process: one character, black, centred on a
// transparent canvas. Output is deterministic for a given font file.
type Builtin struct {
	canvas    config.Canvas
	pointSize float64
	logger    hclog.Logger

	mu    sync.Mutex
	fonts map[string]*opentype.Font
}

// NewBuiltin creates a Builtin renderer.
func NewBuiltin(canvas config.Canvas, pointSize float64, logger hclog.Logger) *Builtin {
	if pointSize <= 0 {
		pointSize = float64(canvas.Height) * 5 / 8
	}
	return &Builtin{
		canvas:    canvas,
		pointSize: pointSize,
		logger:    logger,
		fonts:     make(map[string]*opentype.Font),
	}
}

// Format implements glyph.Renderer.
func (b *Builtin) Format() glyph.Format {
	return glyph.FormatPNG
}

// Render implements glyph.Renderer.
func (b *Builtin) Render(ctx context.Context, req glyph.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	otf, err := b.font(req.Font.Path)
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    b.pointSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create face: %v", gperrors.ErrRenderFailure, err)
	}
	defer face.Close()

	text := string(req.Character)
	metrics := face.Metrics()
	advance := font.MeasureString(face, text)

	// Centre the advance box horizontally and the ascent+descent box vertically.
	x := (fixed.I(b.canvas.Width) - advance) / 2
	y := (fixed.I(b.canvas.Height) + metrics.Ascent - metrics.Descent) / 2

	img := image.NewNRGBA(image.Rect(0, 0, b.canvas.Width, b.canvas.Height))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	d.DrawString(text)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", gperrors.ErrRenderFailure, err)
	}
	return buf.Bytes(), nil
}

// font returns the parsed font for path, loading it on first use.
func (b *Builtin) font(path string) (*opentype.Font, error) {
	if path == "" {
		path = BuiltinFont
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if f, ok := b.fonts[path]; ok {
		return f, nil
	}

	var data []byte
	if path == BuiltinFont {
		data = goregular.TTF
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read font: %v", gperrors.ErrRenderFailure, err)
		}
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse font %s: %v", gperrors.ErrRenderFailure, path, err)
	}
	b.fonts[path] = f
	b.logger.Debug("🔤 Font loaded", "path", path, "glyphs", f.NumGlyphs())
	return f, nil
}
