package archive

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	gperrors "github.com/provide-io/glyphpack/pkg/errors"
)

// Lock is an exclusive claim on an output path, held as a "<output>.lock"
// file containing the owner's PID. A lock whose owner has exited is stale and
// is taken over.
type Lock struct {
	path   string
	logger hclog.Logger
}

// LockPath returns the lock file guarding outPath.
func LockPath(outPath string) string {
	return outPath + ".lock"
}

// AcquireLock claims outPath for this process. It fails with
// gperrors.ErrOutputLocked while another live process holds it.
func AcquireLock(outPath string, logger hclog.Logger) (*Lock, error) {
	lockPath := LockPath(outPath)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if data, err := os.ReadFile(lockPath); err == nil {
		pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
		switch {
		case perr != nil:
			logger.Info("🧹 Removing invalid lock file (couldn't parse PID)", "path", lockPath)
		case pid == os.Getpid():
			return nil, fmt.Errorf("%w: %s is already held by this process", gperrors.ErrOutputLocked, outPath)
		case processRunning(pid):
			logger.Debug("🔒 Lock held by active process", "pid", pid)
			return nil, fmt.Errorf("%w: %s (pid %d)", gperrors.ErrOutputLocked, outPath, pid)
		default:
			logger.Info("🧹 Removing stale lock from dead process", "pid", pid)
		}
		if !removeStale(lockPath, data) {
			logger.Debug("🔒 Lock changed hands during takeover", "path", lockPath)
			return nil, fmt.Errorf("%w: %s", gperrors.ErrOutputLocked, outPath)
		}
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", gperrors.ErrOutputLocked, outPath)
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	logger.Debug("🔒 Acquired output lock", "path", lockPath)
	return &Lock{path: lockPath, logger: logger}, nil
}

// removeStale deletes the lock at lockPath only if it still holds stale.
// The file is first renamed aside so no other process can replace it between
// the comparison and the removal. If a fresh lock was moved aside instead, it
// is linked back, which fails rather than clobbering a newer one.
func removeStale(lockPath string, stale []byte) bool {
	aside := fmt.Sprintf("%s.stale-%d", lockPath, os.Getpid())
	if err := os.Rename(lockPath, aside); err != nil {
		// Already gone; the exclusive create decides who wins.
		return os.IsNotExist(err)
	}
	defer os.Remove(aside)

	current, err := os.ReadFile(aside)
	if err == nil && bytes.Equal(current, stale) {
		return true
	}
	os.Link(aside, lockPath)
	return false
}

// Release removes the lock file.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil {
		l.logger.Debug("⚠️ Failed to remove lock file", "error", err)
		return
	}
	l.logger.Debug("🔓 Released output lock", "path", l.path)
}
