package glyph

// Descriptor is one costume entry in the sprite manifest.
type Descriptor struct {
	AssetID          string `json:"assetId"`
	Name             string `json:"name"`
	BitmapResolution int    `json:"bitmapResolution,omitempty"`
	MD5Ext           string `json:"md5ext"`
	DataFormat       Format `json:"dataFormat"`
	RotationCenterX  int    `json:"rotationCenterX"`
	RotationCenterY  int    `json:"rotationCenterY"`
}
