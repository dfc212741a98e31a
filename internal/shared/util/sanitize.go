package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxStoredNameLen = 200

// SanitizeFileName turns an uploader-supplied name into a single safe path
// segment: separators and control characters are replaced, traversal
// sequences collapsed, and the result capped in length.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "_")
	}
	s = strings.Trim(s, ". ")
	if len(s) > maxStoredNameLen {
		s = strings.ToValidUTF8(s[len(s)-maxStoredNameLen:], "")
	}
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}
