package util

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// SniffLength is how many leading bytes DetectMIME inspects.
const SniffLength = 512

func DetectMIME(head []byte) string {
	if len(head) > SniffLength {
		head = head[:SniffLength]
	}

	detected := http.DetectContentType(head)
	base, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(detected))
	}
	return base
}

// MIMEMatcher checks media types against an allow-list that may contain
// wildcards such as "image/*". An empty list allows everything.
type MIMEMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewMIMEMatcher(allowed []string) *MIMEMatcher {
	matcher := &MIMEMatcher{exact: make(map[string]struct{}, len(allowed))}
	for _, mimeType := range allowed {
		trimmed := strings.TrimSpace(strings.ToLower(mimeType))
		if trimmed == "" {
			continue
		}
		if strings.HasSuffix(trimmed, "/*") {
			matcher.prefixes = append(matcher.prefixes, strings.TrimSuffix(trimmed, "*"))
			continue
		}
		matcher.exact[trimmed] = struct{}{}
	}

	return matcher
}

func (m *MIMEMatcher) Allows(mimeType string) bool {
	if len(m.exact) == 0 && len(m.prefixes) == 0 {
		return true
	}

	baseMIME, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		baseMIME = strings.ToLower(strings.TrimSpace(mimeType))
	}

	if _, ok := m.exact[baseMIME]; ok {
		return true
	}

	for _, prefix := range m.prefixes {
		if strings.HasPrefix(baseMIME, prefix) {
			return true
		}
	}

	return false
}

// MajorType returns "image" for "image/jpeg". Unknown input yields "application".
func MajorType(mimeType string) string {
	major, _, found := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), "/")
	if !found || major == "" {
		return "application"
	}
	return major
}

// ExtensionFor prefers the extension of the original file name and falls
// back to a well-known extension for the detected type.
func ExtensionFor(fileName string, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != "" && len(ext) <= 10 && !strings.ContainsAny(ext, `/\ `) {
		return ext
	}

	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}

	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func IsThumbnailMIME(mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff":
		return true
	default:
		return false
	}
}
