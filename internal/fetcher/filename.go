package fetcher

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

const fallbackFilename = "download"

// SafeFilename reduces name to an ASCII-only filename suitable for a
// Content-Disposition header. Accents are decomposed and dropped, every other
// character outside [A-Za-z0-9._-] becomes '_', and leading/trailing '.', '_'
// and '-' are trimmed. An empty result yields "download".
func SafeFilename(name string) string {
	if name == "" {
		return fallbackFilename
	}

	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	cleaned := unsafeFilenameChars.ReplaceAllString(b.String(), "_")
	cleaned = strings.Trim(cleaned, "._-")
	if cleaned == "" {
		return fallbackFilename
	}
	return cleaned
}
