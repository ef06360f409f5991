// Package staging holds freshly rendered glyph bytes, keyed by file name,
// until they are packed into an archive.
package staging

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hashicorp/go-hclog"
)

const (
	dirPerms  = 0o700
	filePerms = 0o600
)

// Root returns the directory under which per-run staging directories are created.
func Root() string {
	if dir := os.Getenv("GLYPHPACK_STAGING_ROOT"); dir != "" {
		return dir
	}

	switch runtime.GOOS {
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Caches", "glyphpack")
		}
	case "linux":
		if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
			return filepath.Join(xdgCache, "glyphpack")
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".cache", "glyphpack")
		}
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "glyphpack", "cache")
		}
	}

	return filepath.Join(os.TempDir(), "glyphpack")
}

// Dir is a staging directory. Writes are safe for concurrent use: each blob is
// written to a unique temp file and renamed into place, so racing writers of
// the same name leave one complete copy.
type Dir struct {
	path   string
	owned  bool
	logger hclog.Logger
}

// New creates a fresh run directory under root (Root() when empty).
// The directory is removed by Cleanup.
func New(root string, logger hclog.Logger) (*Dir, error) {
	if root == "" {
		root = Root()
	}
	if err := os.MkdirAll(root, dirPerms); err != nil {
		return nil, fmt.Errorf("failed to create staging root: %w", err)
	}
	path, err := os.MkdirTemp(root, "run-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	logger.Debug("📁 Staging directory created", "path", path)
	return &Dir{path: path, owned: true, logger: logger}, nil
}

// Open uses an existing directory, creating it if needed. Cleanup leaves it in place.
func Open(path string, logger hclog.Logger) (*Dir, error) {
	if err := os.MkdirAll(path, dirPerms); err != nil {
		return nil, fmt.Errorf("failed to create staging directory %s: %w", path, err)
	}
	return &Dir{path: path, logger: logger}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// File returns the path a blob with the given name is stored at.
func (d *Dir) File(name string) string {
	return filepath.Join(d.path, name)
}

// Has reports whether a blob with the given name is present.
func (d *Dir) Has(name string) bool {
	info, err := os.Stat(d.File(name))
	return err == nil && info.Mode().IsRegular()
}

// Put stores data under name. Existing blobs are replaced atomically.
func (d *Dir) Put(name string, data []byte) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid staging name %q", name)
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Errorf("failed to generate temp name: %w", err)
	}
	tmp := filepath.Join(d.path, "."+name+".tmp."+hex.EncodeToString(suffix))

	if err := os.WriteFile(tmp, data, filePerms); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, d.File(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}

// Cleanup removes a directory created by New. Directories from Open, or any
// directory when keep is set, are left in place.
func (d *Dir) Cleanup(keep bool) error {
	if !d.owned || keep {
		d.logger.Info("📁 Staging directory kept", "path", d.path)
		return nil
	}
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("failed to remove staging directory: %w", err)
	}
	d.logger.Debug("🧹 Staging directory removed", "path", d.path)
	return nil
}
