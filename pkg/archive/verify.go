package archive

import (
	"fmt"
	"io"
	"path"

	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/zip"
	"github.com/tidwall/gjson"

	gperrors "github.com/provide-io/glyphpack/pkg/errors"
	"github.com/provide-io/glyphpack/pkg/glyph"
)

// Report is the outcome of verifying an archive.
type Report struct {
	Path     string
	Costumes int
	Assets   int
	Problems []string
}

// OK reports whether verification found nothing wrong.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) problem(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify checks that the archive at path is one Assemble could have written:
// every costume's asset is present, stored uncompressed and hashes to its
// assetId; names are unique per digest; and no asset is unreferenced.
//
// An unreadable archive or manifest is returned as gperrors.ErrCorruptArchive.
// Anything else is collected in the report, and a report with problems is
// also returned as gperrors.ErrIntegrityCheckFailed.
func Verify(archivePath string, logger hclog.Logger) (*Report, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", gperrors.ErrCorruptArchive, archivePath, err)
	}
	defer r.Close()

	report := &Report{Path: archivePath}
	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		if _, dup := entries[f.Name]; dup {
			report.problem("duplicate entry %s", f.Name)
		}
		entries[f.Name] = f
	}

	manifestFile, ok := entries[ManifestName]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s", gperrors.ErrCorruptArchive, archivePath, ManifestName)
	}
	data, err := readEntry(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", gperrors.ErrCorruptArchive, ManifestName, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", gperrors.ErrCorruptArchive, ManifestName)
	}
	doc := gjson.ParseBytes(data)
	logger.Debug("✓ Manifest readable", "path", archivePath)

	costumes := doc.Get(keyCostumes).Array()
	report.Costumes = len(costumes)
	if current := doc.Get(keyCurrentCostume).Int(); len(costumes) > 0 && (current < 0 || current >= int64(len(costumes))) {
		report.problem("current_costume %d out of range [0, %d)", current, len(costumes))
	}

	referenced := make(map[string]bool, len(costumes))
	digestOf := make(map[string]string, len(costumes))
	for i, c := range costumes {
		name := c.Get("name").String()
		assetID := c.Get("assetId").String()
		md5ext := c.Get("md5ext").String()
		format := c.Get("dataFormat").String()

		if !glyph.ValidName(glyph.NormalizeName(name)) {
			report.problem("costume %d: name %q outside [a-z0-9-]", i, name)
		}
		if prev, ok := digestOf[name]; ok && prev != assetID {
			report.problem("costume %d: name %q reused for a different asset", i, name)
		}
		digestOf[name] = assetID

		if md5ext != glyph.MD5Ext(assetID, glyph.Format(format)) {
			report.problem("costume %d (%s): md5ext %q does not match assetId and dataFormat", i, name, md5ext)
		}
		if path.Base(md5ext) != md5ext {
			report.problem("costume %d (%s): md5ext %q is not a plain file name", i, name, md5ext)
			continue
		}

		referenced[md5ext] = true
		f, ok := entries[md5ext]
		if !ok {
			report.problem("costume %d (%s): asset %s missing", i, name, md5ext)
			continue
		}
		if err := verifyAsset(f, assetID); err != nil {
			report.problem("costume %d (%s): %v", i, name, err)
		}
	}

	for name := range entries {
		if name == ManifestName {
			continue
		}
		report.Assets++
		if !referenced[name] {
			report.problem("entry %s is not referenced by any costume", name)
		}
	}

	if !report.OK() {
		for _, p := range report.Problems {
			logger.Error("✗ Verification problem", "details", p)
		}
		return report, fmt.Errorf("%w: %s: %d problem(s)", gperrors.ErrIntegrityCheckFailed, archivePath, len(report.Problems))
	}
	logger.Info("✓ Archive verified", "path", archivePath, "costumes", report.Costumes, "assets", report.Assets)
	return report, nil
}

func verifyAsset(f *zip.File, assetID string) error {
	if f.Method != zip.Store {
		return fmt.Errorf("asset %s is compressed (method %d)", f.Name, f.Method)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.Name, err)
	}
	if !glyph.VerifyDigest(data, assetID) {
		return fmt.Errorf("asset %s does not hash to %s", f.Name, assetID)
	}
	return nil
}
