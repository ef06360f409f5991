package glyph

import (
	"github.com/provide-io/glyphpack/pkg/config"
)

// Job is one glyph to render.
type Job struct {
	// Font owns the glyph name; RenderFont is what the renderer draws with.
	// They differ only for raster fallback glyphs.
	Font       config.Font
	RenderFont config.Font
	Character  rune
	Name       string
	Fallback   bool
}

// Plan lists every glyph of a run in output order: fonts in configured order,
// each starting with its replaceable glyph followed by the character set.
// The first job of a non-empty plan is therefore the first font's
// replaceable glyph, which becomes the sprite's initial costume.
func Plan(cfg config.Config) []Job {
	chars := []rune(cfg.Characters)
	jobs := make([]Job, 0, len(cfg.Fonts)*(len(chars)+1))

	for _, font := range cfg.Fonts {
		fallbackFont := font
		if cfg.Mode == config.ModeRaster {
			// Always draw "glyph not found" with a font known to have U+FFFD.
			fallbackFont = config.Font{ID: font.ID, Path: cfg.Raster.ReplacementFont}
		}
		jobs = append(jobs, Job{
			Font:       font,
			RenderFont: fallbackFont,
			Character:  config.ReplacementCharacter,
			Name:       ReplaceableName(font.ID),
			Fallback:   true,
		})

		for _, r := range chars {
			name := Name(font.ID, r)
			if cfg.LowercaseNames {
				name = NormalizeName(name)
			}
			jobs = append(jobs, Job{
				Font:       font,
				RenderFont: font,
				Character:  r,
				Name:       name,
			})
		}
	}
	return jobs
}
