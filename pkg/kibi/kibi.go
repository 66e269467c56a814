// Package kibi formats and parses byte sizes, in powers of 1024
package kibi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidByteSizeString = fmt.Errorf("Invalid byte size string")

var units = []string{"bytes", "KB", "MB", "GB", "TB", "PB"}

var sizeRegex = regexp.MustCompile(`^(\d+)\s*([a-z]*)$`)

// FormatBytes rounds down to the largest whole unit, eg "35 MB"
func FormatBytes(b int64) string {
	i := 0
	for i < len(units)-1 && b >= 1024 {
		b /= 1024
		i++
	}
	return fmt.Sprintf("%v %v", b, units[i])
}

// ParseBytes accepts a plain number of bytes, or a number with a suffix of 'kb', 'mb', etc.
// The suffix may also be just the letter (eg 'm'), and case is ignored.
func ParseBytes(v string) (int64, error) {
	m := sizeRegex.FindStringSubmatch(strings.TrimSpace(strings.ToLower(v)))
	if m == nil {
		return 0, ErrInvalidByteSizeString
	}
	multiplier := int64(1)
	if suffix := m[2]; suffix != "" && suffix != "bytes" {
		found := false
		for i, u := range units[1:] {
			u = strings.ToLower(u)
			if suffix == u || suffix == u[:1] {
				multiplier = int64(1) << (10 * (i + 1))
				found = true
				break
			}
		}
		if !found {
			return 0, ErrInvalidByteSizeString
		}
	}
	value, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, err
	}
	return value * multiplier, nil
}

// Size is a byte count that can be written in a config file as a number, or as a string such as "20 MB"
type Size int64

func (s Size) String() string {
	return FormatBytes(int64(s))
}

func (s *Size) UnmarshalText(b []byte) error {
	v, err := ParseBytes(string(b))
	if err != nil {
		return fmt.Errorf("%w '%v'", err, string(b))
	}
	*s = Size(v)
	return nil
}

// UnmarshalJSON accepts a number of bytes, or a string such as "20 MB"
func (s *Size) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) != 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		return s.UnmarshalText([]byte(str))
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w '%v'", ErrInvalidByteSizeString, string(b))
	}
	if v < 0 {
		return fmt.Errorf("%w '%v'", ErrInvalidByteSizeString, string(b))
	}
	*s = Size(v)
	return nil
}
