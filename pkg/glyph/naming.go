package glyph

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/runenames"
)

var validName = regexp.MustCompile(`^[a-z0-9-]+$`)

var unicodeNameReplacer = strings.NewReplacer("_", "-", " ", "-")

// Name returns the costume name for character r in font fontID, for example
// "sans-a", "sans-0", "sans-upper-A" or "sans-special-solidus".
//
// Uppercase letters keep their case ("sans-upper-A"). The consumer tells
// upper from lower by the "upper" infix, but its grammar only admits
// [a-z0-9-], so callers that need a compliant name must pass the result
// through NormalizeName. Name itself does not, so that existing consumers
// matching on "upper-A" keep working.
func Name(fontID string, r rune) string {
	switch {
	case isLowerASCII(r) || isDigitASCII(r):
		return strings.ToLower(fontID + "-" + string(r))
	case isUpperASCII(r):
		return fontID + "-upper-" + string(r)
	}
	return strings.ToLower(fontID + "-special-" + unicodeName(r))
}

// ReplaceableName is the name of a font's fallback glyph.
func ReplaceableName(fontID string) string {
	return fontID + "-replaceable"
}

// NormalizeName folds a name into the consumer's lowercase grammar.
func NormalizeName(name string) string {
	return strings.ToLower(name)
}

// ValidName reports whether name matches [a-z0-9-]+.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// unicodeName returns the lowercased, hyphenated Unicode name of r.
// Runes without a name (controls, unassigned) fall back to "u-XXXX".
func unicodeName(r rune) string {
	name, ok := derivedName(r)
	if !ok {
		name = runenames.Name(r)
	}
	if name == "" || strings.HasPrefix(name, "<") {
		return fmt.Sprintf("u-%04x", r)
	}
	return unicodeNameReplacer.Replace(strings.ToLower(name))
}

// Blocks whose names are derived by rule (Unicode 15, section 4.8) rather
// than listed, which runenames reports only as a range label.
var derivedRanges = []struct {
	lo, hi rune
	prefix string
}{
	{0x3400, 0x4DBF, "CJK UNIFIED IDEOGRAPH-"},
	{0x4E00, 0x9FFF, "CJK UNIFIED IDEOGRAPH-"},
	{0xF900, 0xFA6D, "CJK COMPATIBILITY IDEOGRAPH-"},
	{0xFA70, 0xFAD9, "CJK COMPATIBILITY IDEOGRAPH-"},
	{0x17000, 0x187F7, "TANGUT IDEOGRAPH-"},
	{0x18B00, 0x18CD5, "KHITAN SMALL SCRIPT CHARACTER-"},
	{0x18D00, 0x18D08, "TANGUT IDEOGRAPH-"},
	{0x1B170, 0x1B2FB, "NUSHU CHARACTER-"},
	{0x20000, 0x2A6DF, "CJK UNIFIED IDEOGRAPH-"},
	{0x2A700, 0x2B739, "CJK UNIFIED IDEOGRAPH-"},
	{0x2B740, 0x2B81D, "CJK UNIFIED IDEOGRAPH-"},
	{0x2B820, 0x2CEA1, "CJK UNIFIED IDEOGRAPH-"},
	{0x2CEB0, 0x2EBE0, "CJK UNIFIED IDEOGRAPH-"},
	{0x2F800, 0x2FA1D, "CJK COMPATIBILITY IDEOGRAPH-"},
	{0x30000, 0x3134A, "CJK UNIFIED IDEOGRAPH-"},
	{0x31350, 0x323AF, "CJK UNIFIED IDEOGRAPH-"},
}

const (
	hangulBase   = 0xAC00
	hangulCount  = 11172
	hangulVCount = 21
	hangulTCount = 28
)

var (
	hangulLeading = []string{
		"G", "GG", "N", "D", "DD", "R", "M", "B", "BB", "S",
		"SS", "", "J", "JJ", "C", "K", "T", "P", "H",
	}
	hangulVowel = []string{
		"A", "AE", "YA", "YAE", "EO", "E", "YEO", "YE", "O", "WA", "WAE",
		"OE", "YO", "U", "WEO", "WE", "WI", "YU", "EU", "YI", "I",
	}
	hangulTrailing = []string{
		"", "G", "GG", "GS", "N", "NJ", "NH", "D", "L", "LG", "LM", "LB", "LS", "LT",
		"LP", "LH", "M", "B", "BS", "S", "SS", "NG", "J", "C", "K", "T", "P", "H",
	}
)

// derivedName computes the name of an ideograph or Hangul syllable.
func derivedName(r rune) (string, bool) {
	if s := int(r - hangulBase); s >= 0 && s < hangulCount {
		l := s / (hangulVCount * hangulTCount)
		v := (s % (hangulVCount * hangulTCount)) / hangulTCount
		t := s % hangulTCount
		return "HANGUL SYLLABLE " + hangulLeading[l] + hangulVowel[v] + hangulTrailing[t], true
	}
	for _, d := range derivedRanges {
		if r >= d.lo && r <= d.hi {
			return fmt.Sprintf("%s%04X", d.prefix, r), true
		}
	}
	return "", false
}

func isLowerASCII(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpperASCII(r rune) bool { return r >= 'A' && r <= 'Z' }
func isDigitASCII(r rune) bool { return r >= '0' && r <= '9' }
