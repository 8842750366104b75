package util

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"go-media-share/pkg/apierror"
)

const maxFileNameRunes = 255

var invalidFileNameChars = regexp.MustCompile(`[<>:"|?*]`)

// SanitizeFileName cleans a client-supplied original file name for storage as
// metadata. Directory components are dropped; the result is never used as a
// filesystem path.
func SanitizeFileName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apierror.BadRequest("file name cannot be empty", "fileName")
	}

	base := path.Base(strings.ReplaceAll(trimmed, `\`, "/"))

	builder := strings.Builder{}
	builder.Grow(len(base))
	for _, char := range base {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(invalidFileNameChars.ReplaceAllString(builder.String(), "_"))
	if cleaned == "" || cleaned == "." || cleaned == ".." || cleaned == "/" {
		return "", apierror.BadRequest("file name is invalid after sanitization", trimmed)
	}

	// Truncate by runes so multi-byte characters stay intact.
	runes := []rune(cleaned)
	if len(runes) > maxFileNameRunes {
		runes = runes[:maxFileNameRunes]
	}

	return string(runes), nil
}

func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // zero-width space
		'\u200C',
		'\u200D',
		'\u200E',
		'\u200F',
		'\u2060',
		'\uFEFF', // BOM
		'\uFFF9',
		'\uFFFA',
		'\uFFFB':
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
