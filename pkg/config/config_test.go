package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gperrors "github.com/provide-io/glyphpack/pkg/errors"
)

func TestDefaultsAreValid(t *testing.T) {
	for _, mode := range []Mode{ModeRaster, ModeVector} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := Default(mode)
			require.NoError(t, cfg.Validate())
			assert.NotEmpty(t, cfg.Fonts)
		})
	}

	raster := Default(ModeRaster)
	assert.Equal(t, Canvas{Width: 240, Height: 320}, raster.Canvas())
	assert.Equal(t, 2, raster.Raster.BitmapResolution)

	vector := Default(ModeVector)
	assert.Equal(t, Canvas{Width: 40, Height: 50}, vector.Canvas())
	assert.Equal(t, "handwriting", vector.Fonts[0].ID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "bitmap" }},
		{name: "empty characters", mutate: func(c *Config) { c.Characters = "" }},
		{name: "uppercase font id", mutate: func(c *Config) { c.Fonts[0].ID = "Sans" }},
		{name: "duplicate font id", mutate: func(c *Config) { c.Fonts[1].ID = c.Fonts[0].ID }},
		{name: "missing family", mutate: func(c *Config) { c.Fonts[0].Family = "" }},
		{name: "zero canvas", mutate: func(c *Config) { c.Vector.Canvas.Width = 0 }},
		{name: "no workers", mutate: func(c *Config) { c.Render.Workers = 0 }},
		{name: "negative retries", mutate: func(c *Config) { c.Render.Retries = -1 }},
		{name: "no output", mutate: func(c *Config) { c.Output = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(ModeVector)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, gperrors.ErrInvalidConfig))
		})
	}
}

func TestValidateRasterBuiltinAllowsEmptyPath(t *testing.T) {
	cfg := Default(ModeRaster)
	cfg.Raster.Renderer = RendererBuiltin
	cfg.Fonts = []Font{{ID: "go"}}
	assert.NoError(t, cfg.Validate())

	cfg.Raster.Renderer = RendererProcess
	assert.Error(t, cfg.Validate())
}

func TestValidateRasterProcessNeedsReplacementFont(t *testing.T) {
	cfg := Default(ModeRaster)
	cfg.Raster.ReplacementFont = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, gperrors.ErrInvalidConfig))

	// The builtin renderer draws its own fallback.
	cfg.Raster.Renderer = RendererBuiltin
	assert.NoError(t, cfg.Validate())
}

func TestLoadFontsReplaceDefaults(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []Font
		valid    bool
	}{
		{
			name:     "raster builtin without path",
			content:  `{"mode": "raster", "raster": {"renderer": "builtin"}, "fonts": [{"id": "go"}]}`,
			expected: []Font{{ID: "go"}},
			valid:    true,
		},
		{
			name:     "vector without family",
			content:  `{"mode": "vector", "fonts": [{"id": "arial", "path": "/x.ttf"}]}`,
			expected: []Font{{ID: "arial", Path: "/x.ttf"}},
		},
		{
			name:     "shorter list",
			content:  `{"mode": "vector", "fonts": [{"id": "mono", "family": "Courier"}]}`,
			expected: []Font{{ID: "mono", Family: "Courier"}},
			valid:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "glyphpack.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			t.Setenv("GLYPHPACK_MODE", "")

			cfg, err := Read(path, "")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Fonts)

			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.True(t, errors.Is(cfg.Validate(), gperrors.ErrInvalidConfig))
			}
		})
	}
}

func TestLoadWithoutFontsKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glyphpack.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mode": "vector", "characters": "x"}`), 0o600))
	t.Setenv("GLYPHPACK_MODE", "")

	cfg, err := Read(path, "")
	require.NoError(t, err)
	assert.Equal(t, Default(ModeVector).Fonts, cfg.Fonts)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "glyphpack.json")
	content := `{
		"mode": "raster",
		"fonts": [{"id": "sans", "path": "/fonts/sans.ttf"}],
		"characters": "ab",
		"render": {"timeout": "5s", "workers": 2}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("GLYPHPACK_MODE", "")
	t.Setenv("GLYPHPACK_OUTPUT", filepath.Join(dir, "out.sprite3"))
	t.Setenv("GLYPHPACK_RENDER_RETRIES", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeRaster, cfg.Mode)
	assert.Equal(t, []Font{{ID: "sans", Path: "/fonts/sans.ttf"}}, cfg.Fonts)
	assert.Equal(t, "ab", cfg.Characters)
	assert.Equal(t, 5*time.Second, cfg.Render.Timeout.Std())
	assert.Equal(t, 2, cfg.Render.Workers)
	assert.Equal(t, 3, cfg.Render.Retries)
	assert.Equal(t, filepath.Join(dir, "out.sprite3"), cfg.Output)
	// Untouched raster defaults survive the file overlay.
	assert.Equal(t, Canvas{Width: 240, Height: 320}, cfg.Raster.Canvas)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{mode:"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gperrors.ErrInvalidConfig))
}

func TestReadModeOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glyphpack.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mode": "vector", "characters": "x"}`), 0o600))
	t.Setenv("GLYPHPACK_MODE", "")

	cfg, err := Read(path, ModeRaster)
	require.NoError(t, err)
	assert.Equal(t, ModeRaster, cfg.Mode)
	assert.Equal(t, RasterFonts(), cfg.Fonts)
	assert.Equal(t, "x", cfg.Characters)

	// Read leaves validation to the caller.
	cfg, err = Read("", "bitmap")
	require.NoError(t, err)
	assert.True(t, errors.Is(cfg.Validate(), gperrors.ErrInvalidConfig))
}

func TestParseFileMode(t *testing.T) {
	tests := []struct {
		in      string
		want    FileMode
		wantErr bool
	}{
		{in: "", want: DefaultOutputPerms},
		{in: "644", want: 0o644},
		{in: "0600", want: 0o600},
		{in: "0o640", want: 0o640},
		{in: "0", want: 0},
		{in: "888", wantErr: true},
		{in: "1777", wantErr: true},
		{in: "rw-r--r--", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFileMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "0644", DefaultOutputPerms.String())
}

func TestOutputPermsFromEnv(t *testing.T) {
	t.Setenv("GLYPHPACK_MODE", "")
	t.Setenv("GLYPHPACK_OUTPUT_PERMS", "0600")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), cfg.OutputPerms.Perm())

	cfg.OutputPerms = 0o444
	assert.True(t, errors.Is(cfg.Validate(), gperrors.ErrInvalidConfig))
}
