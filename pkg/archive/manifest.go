package archive

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	gperrors "github.com/provide-io/glyphpack/pkg/errors"
	"github.com/provide-io/glyphpack/pkg/glyph"
)

// ManifestName is the well-known manifest entry of a sprite archive.
const ManifestName = "sprite.json"

const (
	keyCostumes       = "costumes"
	keySounds         = "sounds"
	keyCurrentCostume = "current_costume"
)

// Manifest is a sprite.json document. Only costumes, sounds and
// current_costume are interpreted; every other field is carried through
// byte for byte.
type Manifest struct {
	raw      []byte
	costumes []glyph.Descriptor
}

// ParseManifest parses a sprite.json document and resets it for new costumes:
// costumes and sounds are emptied and current_costume points at the first
// costume that will be appended.
func ParseManifest(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", gperrors.ErrCorruptArchive, ManifestName)
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: %s is not a JSON object", gperrors.ErrCorruptArchive, ManifestName)
	}

	raw := append([]byte(nil), data...)
	var err error
	for _, edit := range []struct {
		key   string
		value string
	}{
		{keyCostumes, "[]"},
		{keySounds, "[]"},
		{keyCurrentCostume, "0"},
	} {
		raw, err = sjson.SetRawBytes(raw, edit.key, []byte(edit.value))
		if err != nil {
			return nil, fmt.Errorf("%w: reset %s: %v", gperrors.ErrCorruptArchive, edit.key, err)
		}
	}

	return &Manifest{raw: raw}, nil
}

// Append adds costumes in order.
func (m *Manifest) Append(costumes ...glyph.Descriptor) {
	m.costumes = append(m.costumes, costumes...)
}

// Costumes returns the costumes appended so far.
func (m *Manifest) Costumes() []glyph.Descriptor {
	return m.costumes
}

// CurrentCostume returns the index of the sprite's initial costume.
func (m *Manifest) CurrentCostume() int {
	return int(gjson.GetBytes(m.raw, keyCurrentCostume).Int())
}

// Get reads an arbitrary field of the document using gjson path syntax.
func (m *Manifest) Get(path string) gjson.Result {
	return gjson.GetBytes(m.raw, path)
}

// Bytes serialises the manifest with the current costume list.
func (m *Manifest) Bytes() ([]byte, error) {
	return m.encode(m.costumes)
}

// encode serialises the document with costumes in place of its list.
func (m *Manifest) encode(costumes []glyph.Descriptor) ([]byte, error) {
	if costumes == nil {
		costumes = []glyph.Descriptor{}
	}
	encoded, err := json.Marshal(costumes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode costumes: %w", err)
	}
	out, err := sjson.SetRawBytes(append([]byte(nil), m.raw...), keyCostumes, encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to write costumes: %w", err)
	}
	return out, nil
}
