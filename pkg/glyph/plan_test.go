package glyph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/glyphpack/pkg/config"
)

func TestPlanOrdering(t *testing.T) {
	cfg := config.Default(config.ModeVector)
	cfg.Fonts = []config.Font{
		{ID: "sans", Family: "Sans Serif"},
		{ID: "mono", Family: "Monospace"},
	}
	cfg.Characters = "aB "

	jobs := Plan(cfg)
	var names []string
	for _, j := range jobs {
		names = append(names, j.Name)
	}

	assert.Equal(t, []string{
		"sans-replaceable", "sans-a", "sans-upper-B", "sans-special-space",
		"mono-replaceable", "mono-a", "mono-upper-B", "mono-special-space",
	}, names)
	assert.True(t, jobs[0].Fallback)
	assert.Equal(t, config.ReplacementCharacter, jobs[0].Character)
}

func TestPlanFirstJobIsReplaceable(t *testing.T) {
	for _, mode := range []config.Mode{config.ModeRaster, config.ModeVector} {
		jobs := Plan(config.Default(mode))
		require.NotEmpty(t, jobs)
		assert.True(t, strings.HasSuffix(jobs[0].Name, "-replaceable"))
		assert.Equal(t, config.Default(mode).Fonts[0].ID, jobs[0].Font.ID)
	}
}

func TestPlanFallbackFont(t *testing.T) {
	raster := config.Default(config.ModeRaster)
	raster.Raster.ReplacementFont = "/fonts/known-good.ttf"
	jobs := Plan(raster)

	for _, j := range jobs {
		if j.Fallback {
			assert.Equal(t, "/fonts/known-good.ttf", j.RenderFont.Path, j.Name)
			assert.Equal(t, j.Font.ID, j.RenderFont.ID)
		} else {
			assert.Equal(t, j.Font, j.RenderFont, j.Name)
		}
	}

	vector := config.Default(config.ModeVector)
	for _, j := range Plan(vector) {
		assert.Equal(t, j.Font, j.RenderFont, j.Name)
	}
}

func TestPlanCount(t *testing.T) {
	cfg := config.Default(config.ModeRaster)
	jobs := Plan(cfg)
	assert.Len(t, jobs, len(cfg.Fonts)*(len([]rune(cfg.Characters))+1))

	cfg.Fonts = nil
	assert.Empty(t, Plan(cfg))
}

func TestPlanLowercaseNames(t *testing.T) {
	cfg := config.Default(config.ModeVector)
	cfg.Fonts = cfg.Fonts[:1]
	cfg.Characters = "A"
	cfg.LowercaseNames = true

	jobs := Plan(cfg)
	require.Len(t, jobs, 2)
	assert.Equal(t, "handwriting-upper-a", jobs[1].Name)
}
