// Package errors holds the failure taxonomy shared by the glyph pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Generation errors 🖋️
	ErrRenderFailure   = errors.New("❌ render failure")
	ErrNamingCollision = errors.New("❌ naming collision")

	// Archive errors 📦
	ErrCorruptArchive       = errors.New("❌ corrupt archive")
	ErrMissingAsset         = errors.New("❌ missing staged asset")
	ErrIntegrityCheckFailed = errors.New("❌ integrity check failed")
	ErrOutputLocked         = errors.New("❌ output locked by another build")

	// Configuration errors ⚙️
	ErrInvalidConfig = errors.New("❌ invalid configuration")
)

// GlyphError identifies the (font, character, digest) tuple a failure belongs to.
// Unset fields are left out of the message.
type GlyphError struct {
	Op        string
	Font      string
	Character string
	Name      string
	Digest    string
	Err       error
}

func (e *GlyphError) Error() string {
	var parts []string
	if e.Font != "" {
		parts = append(parts, "font="+e.Font)
	}
	if e.Character != "" {
		parts = append(parts, fmt.Sprintf("character=%q", e.Character))
	}
	if e.Name != "" {
		parts = append(parts, "name="+e.Name)
	}
	if e.Digest != "" {
		parts = append(parts, "digest="+e.Digest)
	}
	msg := e.Op
	if len(parts) > 0 {
		msg += " [" + strings.Join(parts, " ") + "]"
	}
	return msg + ": " + e.Err.Error()
}

func (e *GlyphError) Unwrap() error {
	return e.Err
}
