// Package config describes what glyphpack renders and where it puts the results.
//
// A Config is built once (defaults, then an optional JSON file, then GLYPHPACK_*
// environment variables, then CLI flags) and passed by value into every
// component. Nothing in the pipeline mutates it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"

	gperrors "github.com/provide-io/glyphpack/pkg/errors"
)

// Mode selects the kind of glyph asset produced.
type Mode string

const (
	ModeRaster Mode = "raster"
	ModeVector Mode = "vector"
)

// Renderer selects the raster backend.
type Renderer string

const (
	// RendererProcess shells out to an ImageMagick-compatible command.
	RendererProcess Renderer = "process"
	// RendererBuiltin draws in-process with golang.org/x/image.
	RendererBuiltin Renderer = "builtin"
)

// DefaultCharacters is the character set rendered for every font.
const DefaultCharacters = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"`~!@#$€£%^&*()-_=+[{]}\\|;:'\"<,>.?/ "

// ReplacementCharacter is rendered once per font as its "replaceable" glyph.
const ReplacementCharacter = '\uFFFD'

var fontIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Font is one configured typeface. Path is used by raster renderers,
// Family by the vector renderer.
type Font struct {
	ID     string `json:"id"`
	Path   string `json:"path,omitempty"`
	Family string `json:"family,omitempty"`
}

// Canvas is a fixed output size in pixels.
type Canvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RasterConfig holds settings for PNG output.
type RasterConfig struct {
	Canvas           Canvas   `json:"canvas"`
	BitmapResolution int      `json:"bitmap_resolution" env:"BITMAP_RESOLUTION"`
	ReplacementFont  string   `json:"replacement_font" env:"REPLACEMENT_FONT"`
	Renderer         Renderer `json:"renderer" env:"RENDERER"`
	Command          string   `json:"command" env:"COMMAND"`
	PointSize        float64  `json:"point_size" env:"POINT_SIZE"`
}

// VectorConfig holds settings for SVG output.
type VectorConfig struct {
	Canvas   Canvas  `json:"canvas"`
	FontSize float64 `json:"font_size" env:"FONT_SIZE"`
	// Baseline is the text baseline as a fraction of the canvas height.
	Baseline float64 `json:"baseline" env:"BASELINE"`
}

// RenderConfig bounds each renderer call.
type RenderConfig struct {
	Workers int      `json:"workers" env:"WORKERS"`
	Timeout Duration `json:"timeout" env:"TIMEOUT"`
	Retries int      `json:"retries" env:"RETRIES"`
}

// Duration is a time.Duration written as "30s" in JSON and the environment.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the full, immutable configuration of a run.
type Config struct {
	Mode       Mode   `json:"mode" env:"MODE"`
	Fonts      []Font `json:"fonts"`
	Characters string `json:"characters" env:"CHARACTERS"`

	Raster RasterConfig `json:"raster" envPrefix:"RASTER_"`
	Vector VectorConfig `json:"vector" envPrefix:"VECTOR_"`
	Render RenderConfig `json:"render" envPrefix:"RENDER_"`

	Input       string   `json:"input" env:"INPUT"`
	Output      string   `json:"output" env:"OUTPUT"`
	OutputPerms FileMode `json:"output_perms" env:"OUTPUT_PERMS"`
	StagingDir  string   `json:"staging_dir" env:"STAGING_DIR"`
	KeepStaging bool     `json:"keep_staging" env:"KEEP_STAGING"`
	// Verify re-reads the assembled archive before it replaces the output.
	Verify bool `json:"verify" env:"VERIFY"`

	// LowercaseNames folds uppercase-letter glyph names ("sans-upper-A") to
	// lowercase before packaging. Off by default.
	LowercaseNames bool `json:"lowercase_names" env:"LOWERCASE_NAMES"`
}

// RasterFonts are the fonts used for PNG output.
func RasterFonts() []Font {
	return []Font{
		{ID: "sans", Path: "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"},
		{ID: "mono", Path: "/usr/share/fonts/truetype/ttf-bitstream-vera/VeraMono.ttf"},
		{ID: "decor", Path: "/usr/share/fonts/truetype/aenigma/hillock.ttf"},
		{ID: "scrawl", Path: "/usr/share/fonts/truetype/aenigma/aescrawl.ttf"},
	}
}

// VectorFonts are the Scratch font families used for SVG output.
func VectorFonts() []Font {
	return []Font{
		{ID: "handwriting", Family: "Handwriting"},
		{ID: "sans-serif", Family: "Sans Serif"},
		{ID: "serif", Family: "Serif"},
		{ID: "curly", Family: "Curly"},
		{ID: "marker", Family: "Marker"},
		{ID: "pixel", Family: "Pixel"},
	}
}

// Default returns the configuration for the given mode.
func Default(mode Mode) Config {
	cfg := Config{
		Mode:       mode,
		Characters: DefaultCharacters,
		Raster: RasterConfig{
			// 4x a 60x80 logical glyph; Scratch shows bitmaps at half resolution.
			Canvas:           Canvas{Width: 60 * 4, Height: 80 * 4},
			BitmapResolution: 2,
			ReplacementFont:  "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			Renderer:         RendererProcess,
			Command:          "convert",
			PointSize:        200,
		},
		Vector: VectorConfig{
			Canvas:   Canvas{Width: 40, Height: 50},
			FontSize: 40,
			Baseline: 0.75,
		},
		Render: RenderConfig{
			Workers: runtime.NumCPU(),
			Timeout: Duration(30 * time.Second),
			Retries: 1,
		},
		Input:       "input/Printer.sprite3",
		Output:      "output/Printer.sprite3",
		OutputPerms: DefaultOutputPerms,
		Verify:      true,
	}
	if mode == ModeRaster {
		cfg.Fonts = RasterFonts()
	} else {
		cfg.Fonts = VectorFonts()
	}
	return cfg
}

// Load builds a Config from defaults, an optional JSON file and the environment.
// The mode is taken from GLYPHPACK_MODE or the file when set, else vector.
func Load(path string) (Config, error) {
	cfg, err := Read(path, "")
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Read is Load without validation, for callers that apply further overrides.
// A non-empty override mode wins over the file and the environment and selects
// the defaults the file is applied on top of.
func Read(path string, override Mode) (Config, error) {
	mode := ModeVector
	if m := os.Getenv("GLYPHPACK_MODE"); m != "" {
		mode = Mode(m)
	}

	var data []byte
	fontsSet := false
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		var probe struct {
			Mode  Mode             `json:"mode"`
			Fonts *json.RawMessage `json:"fonts"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", gperrors.ErrInvalidConfig, path, err)
		}
		if probe.Mode != "" && os.Getenv("GLYPHPACK_MODE") == "" {
			mode = probe.Mode
		}
		fontsSet = probe.Fonts != nil
	}
	if override != "" {
		mode = override
	}

	cfg := Default(mode)
	if fontsSet {
		// A file's font list replaces the defaults; decoding onto them would
		// merge elements by index.
		cfg.Fonts = nil
	}
	if data != nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", gperrors.ErrInvalidConfig, path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "GLYPHPACK_"}); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %v", gperrors.ErrInvalidConfig, err)
	}
	if override != "" {
		cfg.Mode = override
	}
	return cfg, nil
}

// Canvas returns the canvas of the active mode.
func (c Config) Canvas() Canvas {
	if c.Mode == ModeRaster {
		return c.Raster.Canvas
	}
	return c.Vector.Canvas
}

// Validate reports the first problem that would make a run fail later.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", gperrors.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Mode != ModeRaster && c.Mode != ModeVector {
		return invalid("unknown mode %q (want raster or vector)", c.Mode)
	}
	if c.Characters == "" {
		return invalid("character set is empty")
	}

	seen := make(map[string]bool, len(c.Fonts))
	for i, f := range c.Fonts {
		if !fontIDPattern.MatchString(f.ID) {
			return invalid("font %d: id %q must match [a-z0-9-]+", i, f.ID)
		}
		if seen[f.ID] {
			return invalid("font %d: duplicate id %q", i, f.ID)
		}
		seen[f.ID] = true

		switch c.Mode {
		case ModeRaster:
			if f.Path == "" && c.Raster.Renderer == RendererProcess {
				return invalid("font %q: raster mode needs a path", f.ID)
			}
		case ModeVector:
			if f.Family == "" {
				return invalid("font %q: vector mode needs a family", f.ID)
			}
		}
	}

	canvas := c.Canvas()
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return invalid("canvas %dx%d must be positive", canvas.Width, canvas.Height)
	}
	if c.Mode == ModeRaster {
		switch c.Raster.Renderer {
		case RendererProcess:
			if c.Raster.Command == "" {
				return invalid("raster command is empty")
			}
			if c.Raster.ReplacementFont == "" {
				return invalid("raster replacement font is empty")
			}
		case RendererBuiltin:
		default:
			return invalid("unknown raster renderer %q", c.Raster.Renderer)
		}
		if c.Raster.BitmapResolution <= 0 {
			return invalid("bitmap resolution must be positive")
		}
	}

	if c.Render.Workers < 1 {
		return invalid("workers must be at least 1")
	}
	if c.Render.Timeout < 0 {
		return invalid("render timeout must not be negative")
	}
	if c.Render.Retries < 0 {
		return invalid("retries must not be negative")
	}
	if c.Output == "" {
		return invalid("output path is empty")
	}
	if c.OutputPerms&0o600 != 0o600 || c.OutputPerms > 0o777 {
		return invalid("output permissions %s must allow the owner to read and write", c.OutputPerms)
	}
	return nil
}
