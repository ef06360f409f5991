package render

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/provide-io/glyphpack/pkg/config"
	"github.com/provide-io/glyphpack/pkg/glyph"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// svgTemplate keeps to the SVG subset the Scratch editor accepts verbatim.
// The text is centred horizontally; the baseline sits at a fixed fraction
// of the height to leave room for descenders.
const svgTemplate = `<svg version="1.1" xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0,0,%d,%d">
  <text x="%s" y="%s" font-size="%s" xml:space="preserve" fill="#000000" fill-rule="nonzero" stroke="none" stroke-width="1" stroke-linecap="butt" stroke-linejoin="miter" stroke-miterlimit="10" stroke-dasharray="" stroke-dashoffset="0" font-family="%s" font-weight="normal" text-anchor="middle" style="mix-blend-mode: normal">%s</text>
</svg>
`

// EscapeXML escapes the characters that cannot appear literally in a text node.
func EscapeXML(r rune) string {
	return textEscaper.Replace(string(r))
}

// Vector renders SVG glyphs that ask the player to draw the character with
// its own copy of the font, so no external process is involved.
type Vector struct {
	cfg config.VectorConfig
}

// NewVector creates a Vector renderer.
func NewVector(cfg config.VectorConfig) *Vector {
	return &Vector{cfg: cfg}
}

// Format implements glyph.Renderer.
func (v *Vector) Format() glyph.Format {
	return glyph.FormatSVG
}

// Render implements glyph.Renderer.
func (v *Vector) Render(ctx context.Context, req glyph.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := v.cfg.Canvas.Width, v.cfg.Canvas.Height
	doc := fmt.Sprintf(svgTemplate,
		w, h, w, h,
		formatFloat(float64(w)/2),
		formatFloat(float64(h)*v.cfg.Baseline),
		formatFloat(v.cfg.FontSize),
		attrEscaper.Replace(req.Font.Family),
		EscapeXML(req.Character),
	)
	return []byte(doc), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
