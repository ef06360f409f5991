//go:build windows

package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sys/windows"
)

// atomicReplace moves sourcePath over destPath with MoveFileEx, retrying
// briefly because scanners and indexers often hold a fresh file open.
func atomicReplace(sourcePath, destPath string, logger hclog.Logger) error {
	from, err := windows.UTF16PtrFromString(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to convert source path to UTF-16: %w", err)
	}
	to, err := windows.UTF16PtrFromString(destPath)
	if err != nil {
		return fmt.Errorf("failed to convert dest path to UTF-16: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond

	_, err = backoff.Retry(context.Background(), func() (struct{}, error) {
		return struct{}{}, windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(3),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Debug("Retrying archive replacement (Windows file lock)", "wait", wait, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to replace %s (Windows file lock): %w", destPath, err)
	}
	logger.Debug("Archive moved into place", "source", sourcePath, "dest", destPath)
	return nil
}
