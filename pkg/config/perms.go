package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultOutputPerms is the mode of a written archive.
const DefaultOutputPerms FileMode = 0o644

// FileMode is a permission value written as an octal string ("644", "0644"
// or "0o644") in JSON and the environment.
type FileMode uint32

// ParseFileMode parses an octal permission string. An empty string yields
// DefaultOutputPerms.
func ParseFileMode(s string) (FileMode, error) {
	if s == "" {
		return DefaultOutputPerms, nil
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0")
	if digits == "" {
		digits = "0"
	}
	val, err := strconv.ParseUint(digits, 8, 32)
	if err != nil || val > 0o777 {
		return 0, fmt.Errorf("invalid permission string %q", s)
	}
	return FileMode(val), nil
}

// Perm returns m as an os.FileMode.
func (m FileMode) Perm() os.FileMode {
	return os.FileMode(m).Perm()
}

func (m FileMode) String() string {
	return fmt.Sprintf("0%o", uint32(m))
}

func (m FileMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *FileMode) UnmarshalText(text []byte) error {
	v, err := ParseFileMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
