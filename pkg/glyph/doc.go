// Package glyph turns (font, character) pairs into content-addressed glyph
// assets.
//
// A run is planned up front (Plan), rendered by a Generator through a
// Renderer, and consumed through a Stream that yields descriptors in plan
// order even when rendering happens on a worker pool:
//
//	jobs := glyph.Plan(cfg)
//	s := glyph.NewStream(ctx, gen, jobs, cfg.Render.Workers)
//	defer s.Close()
//	for s.Next() {
//		d := s.Descriptor()
//		...
//	}
//	if err := s.Err(); err != nil {
//		...
//	}
//
// Every descriptor's AssetID is the MD5 of the bytes staged under its MD5Ext,
// so descriptors with equal digests share one stored file.
package glyph
