package util

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidFileName is returned when nothing safe is left of a file name.
var ErrInvalidFileName = errors.New("invalid file name")

// MaxBaseNameLen caps a sanitized basename, extension included, so a
// generated storage key fits file name limits and the image_path column.
const MaxBaseNameLen = 100

// SanitizeFileName reduces name to a safe ASCII basename. Directory parts
// are dropped, characters outside [A-Za-z0-9._-] become underscores and
// leading dots are stripped so the result can never traverse or hide.
// Names longer than MaxBaseNameLen lose the end of their stem; a short
// extension is kept.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "\\", "/")
	s = path.Base(s)

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s = strings.TrimLeft(b.String(), "._")
	if len(s) > MaxBaseNameLen {
		ext := path.Ext(s)
		if len(ext) > MaxBaseNameLen/4 {
			ext = ""
		}
		s = s[:MaxBaseNameLen-len(ext)] + ext
	}
	if s == "" || strings.Trim(s, "_") == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	ext := path.Ext(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// UploadName builds a collision-resistant stored name:
// <YYYYMMDD-HHMMSS>-<8 hex nonce>-<sanitized name>.
func UploadName(now time.Time, name string) (string, error) {
	sanitized, err := SanitizeFileName(name)
	if err != nil {
		return "", err
	}
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s", now.UTC().Format("20060102-150405"), nonce, sanitized), nil
}
