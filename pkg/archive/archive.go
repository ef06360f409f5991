// Package archive reads sprite archives and writes them back with newly
// generated costumes.
//
// A sprite archive is a zip file holding sprite.json plus one entry per
// asset, named by content digest. Load keeps the behaviour in sprite.json and
// drops the old costumes and sounds; Assemble writes a new archive with the
// given costumes, storing each distinct asset once.
package archive

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/klauspost/compress/zip"

	gperrors "github.com/provide-io/glyphpack/pkg/errors"
)

// maxManifestSize bounds how much of sprite.json is read into memory.
const maxManifestSize = 64 << 20

// Load opens the archive at path and returns its manifest, reset for new
// costumes. The archive itself is not modified.
func Load(path string) (*Manifest, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", gperrors.ErrCorruptArchive, path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != ManifestName {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s from %s: %v", gperrors.ErrCorruptArchive, ManifestName, path, err)
		}
		m, err := ParseManifest(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return m, nil
	}

	return nil, fmt.Errorf("%w: %s has no %s", gperrors.ErrCorruptArchive, path, ManifestName)
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxManifestSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxManifestSize {
		return nil, fmt.Errorf("entry larger than %d bytes", maxManifestSize)
	}
	return data, nil
}

// entryTime is the modification time stamped on every written entry, so the
// same inputs give the same archive bytes. SOURCE_DATE_EPOCH (seconds or
// RFC 3339) overrides the 1980-01-01 default.
func entryTime() time.Time {
	if epoch := os.Getenv("SOURCE_DATE_EPOCH"); epoch != "" {
		if secs, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC()
		}
		if t, err := time.Parse(time.RFC3339, epoch); err == nil {
			return t.UTC()
		}
	}
	return time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
}
