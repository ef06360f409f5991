package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/zip"

	gperrors "github.com/provide-io/glyphpack/pkg/errors"
	"github.com/provide-io/glyphpack/pkg/glyph"
)

// DefaultPerms is the mode of a written archive unless Options says otherwise.
const DefaultPerms os.FileMode = 0o644

// entryOverhead approximates the local and central directory headers of one
// zip entry, for the disk space estimate.
const entryOverhead = 128

// Options controls where Assemble reads assets and writes the archive.
type Options struct {
	// StagingDir holds the assets, one file per md5ext.
	StagingDir string
	Output     string
	// Perms is the mode of the written archive; zero means DefaultPerms.
	Perms os.FileMode
	// Verify re-reads the finished archive before it replaces Output.
	Verify bool
}

// Result summarises an assembled archive.
type Result struct {
	Path string
	// Glyphs is the number of costumes in the manifest.
	Glyphs int
	// Stored is the number of distinct asset entries written.
	Stored int
	// Deduplicated counts costumes that reused an already stored asset.
	Deduplicated int
	Size         int64
}

// CheckNames fails with gperrors.ErrNamingCollision if two descriptors share
// a name but not a digest. Repeats of an identical descriptor are allowed.
func CheckNames(descriptors []glyph.Descriptor) error {
	seen := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		if prev, ok := seen[d.Name]; ok && prev != d.AssetID {
			return &gperrors.GlyphError{
				Op:     "assemble",
				Name:   d.Name,
				Digest: d.AssetID,
				Err:    fmt.Errorf("%w: also used by %s", gperrors.ErrNamingCollision, prev),
			}
		}
		seen[d.Name] = d.AssetID
	}
	return nil
}

// Assemble appends descriptors to m in order and writes a new archive to
// opts.Output holding the manifest and every referenced asset from
// opts.StagingDir. Each distinct md5ext is stored once, uncompressed.
//
// The archive is written to a temporary file beside the output and renamed
// into place, so the output either keeps its previous content or receives a
// complete archive. Missing staged assets are detected before anything is
// written.
func Assemble(m *Manifest, descriptors []glyph.Descriptor, opts Options, logger hclog.Logger) (*Result, error) {
	if err := CheckNames(descriptors); err != nil {
		return nil, err
	}
	assetBytes := int64(0)
	sized := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		size, err := checkStaged(opts.StagingDir, d)
		if err != nil {
			return nil, err
		}
		if !sized[d.MD5Ext] {
			sized[d.MD5Ext] = true
			assetBytes += size
		}
	}

	// m only gains the costumes once the archive is in place.
	costumes := append(append([]glyph.Descriptor(nil), m.costumes...), descriptors...)
	manifest, err := m.encode(costumes)
	if err != nil {
		return nil, err
	}

	outPath := opts.Output
	outDir := filepath.Dir(outPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	needed := assetBytes + int64(len(manifest)) + int64(len(sized)+1)*entryOverhead
	if err := checkDiskSpace(outDir, needed, logger); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(outDir, "."+filepath.Base(outPath)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary archive: %w", err)
	}
	tmpPath := tmp.Name()
	logger.Debug("💾 Writing archive", "temp", tmpPath, "glyphs", len(descriptors))

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := newWriter(tmp, entryTime())
	for _, d := range descriptors {
		written, err := w.addBlob(d.MD5Ext, filepath.Join(opts.StagingDir, d.MD5Ext))
		if err != nil {
			return nil, &gperrors.GlyphError{Op: "assemble", Name: d.Name, Digest: d.AssetID, Err: err}
		}
		if !written {
			logger.Trace("♻️ Reusing stored asset", "name", d.Name, "md5ext", d.MD5Ext)
		}
	}
	if err := w.addManifest(manifest); err != nil {
		return nil, err
	}
	if err := w.close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync archive: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	if opts.Verify {
		if _, err := Verify(tmpPath, logger.Named("verify")); err != nil {
			return nil, err
		}
	}

	perms := opts.Perms
	if perms == 0 {
		perms = DefaultPerms
	}
	if err := os.Chmod(tmpPath, perms); err != nil {
		return nil, fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := atomicReplace(tmpPath, outPath, logger); err != nil {
		return nil, err
	}
	committed = true
	m.Append(descriptors...)

	res := &Result{
		Path:         outPath,
		Glyphs:       len(costumes),
		Stored:       w.stored,
		Deduplicated: w.deduplicated,
		Size:         info.Size(),
	}
	logger.Info("✅ Archive assembled",
		"output", outPath,
		"glyphs", res.Glyphs,
		"stored", res.Stored,
		"deduplicated", res.Deduplicated,
		"size", humanize.Bytes(uint64(res.Size)))
	return res, nil
}

// checkDiskSpace fails when dir clearly lacks room for needed bytes. If free
// space cannot be determined the write is attempted anyway.
func checkDiskSpace(dir string, needed int64, logger hclog.Logger) error {
	available, err := availableDiskSpace(dir)
	if err != nil {
		logger.Warn("⚠️ Could not check disk space", "error", err)
		return nil
	}
	logger.Debug("💾 Disk space check", "needed", humanize.Bytes(uint64(needed)), "available", humanize.Bytes(uint64(available)))
	if available < needed {
		return fmt.Errorf("insufficient disk space in %s: need %s, have %s",
			dir, humanize.Bytes(uint64(needed)), humanize.Bytes(uint64(available)))
	}
	return nil
}

// checkStaged returns the size of d's staged asset.
func checkStaged(stagingDir string, d glyph.Descriptor) (int64, error) {
	missing := func(reason string) error {
		return &gperrors.GlyphError{
			Op:     "assemble",
			Name:   d.Name,
			Digest: d.AssetID,
			Err:    fmt.Errorf("%w: %s", gperrors.ErrMissingAsset, reason),
		}
	}

	if d.MD5Ext == "" || filepath.Base(d.MD5Ext) != d.MD5Ext || d.MD5Ext == ManifestName {
		return 0, missing(fmt.Sprintf("invalid asset name %q", d.MD5Ext))
	}
	info, err := os.Stat(filepath.Join(stagingDir, d.MD5Ext))
	if err != nil || !info.Mode().IsRegular() {
		return 0, missing(d.MD5Ext + " is not staged")
	}
	return info.Size(), nil
}

// writer owns the output zip and the set of asset names already in it.
// It is not safe for concurrent use.
type writer struct {
	zw       *zip.Writer
	modified time.Time
	written  map[string]bool

	stored       int
	deduplicated int
}

func newWriter(w io.Writer, modified time.Time) *writer {
	return &writer{
		zw:       zip.NewWriter(w),
		modified: modified,
		written:  make(map[string]bool),
	}
}

// addBlob copies the file at src into the archive as name, unless name is
// already present. It reports whether a new entry was written.
func (w *writer) addBlob(name, src string) (bool, error) {
	if w.written[name] {
		w.deduplicated++
		return false, nil
	}

	f, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("%w: %v", gperrors.ErrMissingAsset, err)
	}
	defer f.Close()

	entry, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: w.modified,
	})
	if err != nil {
		return false, fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", name, err)
	}

	w.written[name] = true
	w.stored++
	return true, nil
}

func (w *writer) addManifest(data []byte) error {
	entry, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     ManifestName,
		Method:   zip.Deflate,
		Modified: w.modified,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", ManifestName, err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", ManifestName, err)
	}
	return nil
}

func (w *writer) close() error {
	return w.zw.Close()
}
