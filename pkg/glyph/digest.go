package glyph

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Format is the data format of a stored glyph; it doubles as the file extension.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// DigestSize is the length of a hex-encoded digest.
const DigestSize = md5.Size * 2

// Digest returns the lowercase hex MD5 of data. It addresses and deduplicates
// assets; it is not an integrity check.
func Digest(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// MD5Ext returns the stored file name for a digest, e.g. "c0ffee....png".
func MD5Ext(digest string, format Format) string {
	return digest + "." + string(format)
}

// VerifyDigest reports whether data hashes to digest.
func VerifyDigest(data []byte, digest string) bool {
	return Digest(data) == strings.ToLower(digest)
}
