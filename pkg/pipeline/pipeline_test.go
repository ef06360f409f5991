package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/provide-io/glyphpack/pkg/archive"
	"github.com/provide-io/glyphpack/pkg/config"
	gperrors "github.com/provide-io/glyphpack/pkg/errors"
	"github.com/provide-io/glyphpack/pkg/glyph"
	"github.com/provide-io/glyphpack/pkg/render"
)

const spriteJSON = `{"isStage":false,"name":"Printer","costumes":[],"sounds":[],"current_costume":0,"visible":true}`

func testLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{Name: "pipeline_test", Level: hclog.Trace})
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "Printer.sprite3")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("sprite.json")
	require.NoError(t, err)
	_, err = io.WriteString(w, spriteJSON)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func readManifest(t *testing.T, path string) (gjson.Result, map[string]*zip.File) {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	files := map[string]*zip.File{}
	for _, f := range r.File {
		files[f.Name] = f
	}
	rc, err := files["sprite.json"].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return gjson.ParseBytes(data), files
}

func vectorConfig(t *testing.T) config.Config {
	t.Setenv("GLYPHPACK_STAGING_ROOT", t.TempDir())
	dir := t.TempDir()
	cfg := config.Default(config.ModeVector)
	cfg.Fonts = []config.Font{
		{ID: "sans-serif", Family: "Sans Serif"},
		{ID: "pixel", Family: "Pixel"},
	}
	cfg.Characters = "aA /"
	cfg.Render.Workers = 4
	cfg.Input = writeInput(t, dir)
	cfg.Output = filepath.Join(dir, "out", "Printer.sprite3")
	return cfg
}

func TestRunVector(t *testing.T) {
	cfg := vectorConfig(t)

	summary, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Glyphs)
	assert.Equal(t, 2, summary.Fonts)
	assert.Equal(t, cfg.Output, summary.Output)
	assert.Empty(t, summary.StagingDir)

	doc, files := readManifest(t, cfg.Output)
	costumes := doc.Get("costumes").Array()
	require.Len(t, costumes, 10)
	assert.Equal(t, "sans-serif-replaceable", costumes[0].Get("name").String())
	assert.Equal(t, "sans-serif-a", costumes[1].Get("name").String())
	assert.Equal(t, "sans-serif-upper-A", costumes[2].Get("name").String())
	assert.Equal(t, "sans-serif-special-space", costumes[3].Get("name").String())
	assert.Equal(t, "sans-serif-special-solidus", costumes[4].Get("name").String())
	assert.Equal(t, "pixel-replaceable", costumes[5].Get("name").String())
	assert.Equal(t, int64(0), doc.Get("current_costume").Int())
	assert.Equal(t, "Printer", doc.Get("name").String())

	for _, c := range costumes {
		assert.Equal(t, "svg", c.Get("dataFormat").String())
		assert.Equal(t, int64(20), c.Get("rotationCenterX").Int())
		assert.Equal(t, int64(25), c.Get("rotationCenterY").Int())
		f, ok := files[c.Get("md5ext").String()]
		require.True(t, ok)
		assert.Equal(t, zip.Store, f.Method)
	}
	assert.Equal(t, summary.Stored+1, len(files))
}

func TestRunBuiltinRasterSharesSpace(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default(config.ModeRaster)
	cfg.Raster.Renderer = config.RendererBuiltin
	cfg.Raster.ReplacementFont = render.BuiltinFont
	cfg.Raster.Canvas = config.Canvas{Width: 60, Height: 80}
	cfg.Raster.PointSize = 40
	cfg.Fonts = []config.Font{
		{ID: "sans", Path: render.BuiltinFont},
		{ID: "mono", Path: render.BuiltinFont},
	}
	cfg.Characters = "x "
	cfg.Input = writeInput(t, dir)
	cfg.Output = filepath.Join(dir, "out.sprite3")
	cfg.KeepStaging = true
	cfg.StagingDir = filepath.Join(dir, "staging")

	summary, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Glyphs)
	assert.Equal(t, cfg.StagingDir, summary.StagingDir)
	// Both fonts are the same face, so every glyph is shared.
	assert.Equal(t, 3, summary.Stored)
	assert.Equal(t, 3, summary.Deduplicated)

	doc, _ := readManifest(t, cfg.Output)
	costumes := doc.Get("costumes").Array()
	require.Len(t, costumes, 6)
	assert.Equal(t, costumes[2].Get("assetId").String(), costumes[5].Get("assetId").String())
	for _, c := range costumes {
		assert.Equal(t, "png", c.Get("dataFormat").String())
		assert.Equal(t, int64(2), c.Get("bitmapResolution").Int())
		assert.Equal(t, int64(30), c.Get("rotationCenterX").Int())
	}

	entries, err := os.ReadDir(cfg.StagingDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "kept staging holds one file per distinct asset")
}

type brokenRenderer struct {
	calls atomic.Int32
}

func (b *brokenRenderer) Format() glyph.Format { return glyph.FormatPNG }

func (b *brokenRenderer) Render(ctx context.Context, req glyph.Request) ([]byte, error) {
	b.calls.Add(1)
	if req.Character == '/' {
		return nil, errors.New("no glyph for solidus")
	}
	return []byte(string(req.Character)), nil
}

func TestRunRenderFailureLeavesNoOutput(t *testing.T) {
	cfg := vectorConfig(t)
	cfg.Render.Retries = 0

	_, err := run(context.Background(), cfg, &brokenRenderer{}, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gperrors.ErrRenderFailure))

	var ge *gperrors.GlyphError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "/", ge.Character)
	assert.NoFileExists(t, cfg.Output)
}

func TestRunCorruptInputRendersNothing(t *testing.T) {
	cfg := vectorConfig(t)
	require.NoError(t, os.WriteFile(cfg.Input, []byte("not a zip"), 0o644))

	renderer := &brokenRenderer{}
	_, err := run(context.Background(), cfg, renderer, testLogger())
	assert.True(t, errors.Is(err, gperrors.ErrCorruptArchive))
	assert.Zero(t, renderer.calls.Load())
	assert.NoFileExists(t, cfg.Output)
}

func TestRunProcessFailure(t *testing.T) {
	if _, err := os.Stat("/bin/false"); err != nil {
		t.Skip("/bin/false not available")
	}
	cfg := vectorConfig(t)
	cfg.Mode = config.ModeRaster
	cfg.Fonts = []config.Font{{ID: "sans", Path: "/nonexistent/font.ttf"}}
	cfg.Raster.Command = "/bin/false"
	cfg.Render.Retries = 0

	_, err := Run(context.Background(), cfg, testLogger())
	assert.True(t, errors.Is(err, gperrors.ErrRenderFailure))
	assert.NoFileExists(t, cfg.Output)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := vectorConfig(t)
	cfg.Render.Workers = 0

	_, err := Run(context.Background(), cfg, testLogger())
	assert.True(t, errors.Is(err, gperrors.ErrInvalidConfig))
}

func TestRunCancelled(t *testing.T) {
	cfg := vectorConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoFileExists(t, cfg.Output)
}

func TestRunRefusesLockedOutput(t *testing.T) {
	cfg := vectorConfig(t)
	lock, err := archive.AcquireLock(cfg.Output, testLogger())
	require.NoError(t, err)
	defer lock.Release()

	renderer := &brokenRenderer{}
	_, err = run(context.Background(), cfg, renderer, testLogger())
	assert.True(t, errors.Is(err, gperrors.ErrOutputLocked))
	assert.Zero(t, renderer.calls.Load())
}

func TestRunReleasesLock(t *testing.T) {
	cfg := vectorConfig(t)
	cfg.OutputPerms = 0o600

	_, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	assert.NoFileExists(t, archive.LockPath(cfg.Output))

	info, err := os.Stat(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
