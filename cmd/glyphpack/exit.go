package main

import (
	"errors"

	gperrors "github.com/provide-io/glyphpack/pkg/errors"
)

// Exit codes
const (
	ExitPanic         = 101
	ExitRenderError   = 102
	ExitArchiveError  = 103
	ExitNamingError   = 104
	ExitInvalidConfig = 105
	ExitIOError       = 106
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, gperrors.ErrRenderFailure):
		return ExitRenderError
	case errors.Is(err, gperrors.ErrCorruptArchive),
		errors.Is(err, gperrors.ErrMissingAsset),
		errors.Is(err, gperrors.ErrIntegrityCheckFailed):
		return ExitArchiveError
	case errors.Is(err, gperrors.ErrNamingCollision):
		return ExitNamingError
	case errors.Is(err, gperrors.ErrInvalidConfig):
		return ExitInvalidConfig
	default:
		return ExitIOError
	}
}
