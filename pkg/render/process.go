package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/glyphpack/pkg/config"
	gperrors "github.com/provide-io/glyphpack/pkg/errors"
	"github.com/provide-io/glyphpack/pkg/glyph"
)

// maxStderr caps how much renderer stderr is quoted in an error.
const maxStderr = 512

// Label returns the ImageMagick label directive that draws r.
// Space and backslash would otherwise be eaten by the label parser.
func Label(r rune) string {
	switch r {
	case ' ':
		return `label:\ `
	case '\\':
		return `label:\\`
	}
	return "label:" + string(r)
}

// Process renders PNG glyphs by running an ImageMagick-compatible command:
//
//	convert -font PATH -size WxH -background none -gravity center LABEL png:-
//
// and reading the image from stdout.
type Process struct {
	argv   []string
	canvas config.Canvas
	logger hclog.Logger
}

// NewProcess creates a Process renderer for the given command line.
func NewProcess(command string, canvas config.Canvas, logger hclog.Logger) (*Process, error) {
	argv, err := splitCommand(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gperrors.ErrInvalidConfig, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: renderer command is empty", gperrors.ErrInvalidConfig)
	}
	return &Process{argv: argv, canvas: canvas, logger: logger}, nil
}

// Format implements glyph.Renderer.
func (p *Process) Format() glyph.Format {
	return glyph.FormatPNG
}

// Args returns the full argv used to render req.
func (p *Process) Args(req glyph.Request) []string {
	args := append([]string(nil), p.argv...)
	return append(args,
		"-font", req.Font.Path,
		"-size", strconv.Itoa(p.canvas.Width)+"x"+strconv.Itoa(p.canvas.Height),
		"-background", "none",
		"-gravity", "center",
		Label(req.Character),
		"png:-",
	)
}

// Render implements glyph.Renderer.
func (p *Process) Render(ctx context.Context, req glyph.Request) ([]byte, error) {
	argv := p.Args(req)
	p.logger.Trace("🚀 Running renderer", "command", quoteCommand(argv))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s exited with code %d: %s",
				gperrors.ErrRenderFailure, argv[0], exitErr.ExitCode(), trimStderr(stderr.String()))
		}
		return nil, fmt.Errorf("%w: %s: %v", gperrors.ErrRenderFailure, argv[0], err)
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: %s produced no output: %s",
			gperrors.ErrRenderFailure, argv[0], trimStderr(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[:maxStderr] + "..."
	}
	if s == "" {
		return "(no stderr)"
	}
	return s
}
