//go:build !windows

package archive

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// atomicReplace moves sourcePath over destPath. rename(2) is atomic on the
// same filesystem, which holds because the temp file sits next to destPath.
func atomicReplace(sourcePath, destPath string, logger hclog.Logger) error {
	if err := os.Rename(sourcePath, destPath); err != nil {
		return fmt.Errorf("failed to rename %s: %w", sourcePath, err)
	}
	logger.Debug("Archive moved into place", "source", sourcePath, "dest", destPath)
	return nil
}
