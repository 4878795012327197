// Package validation cleans user input from dashboard forms and URLs.
package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxFieldBytes bounds a single form value before any other check runs.
const maxFieldBytes = 4096

// FormText normalizes a free-text form value: control characters become
// spaces, runs of whitespace collapse to one space, and the result is
// trimmed. Oversized input is cut at a rune boundary.
func FormText(s string) string {
	s = truncateToBytes(s, maxFieldBytes)

	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		if r == utf8.RuneError || unicode.IsControl(r) || unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// ViewID reports whether id is a canonical UUID as issued for dashboard views.
func ViewID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

// VideoID reports whether id is safe to use as a single path segment.
func VideoID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return id != "." && id != ".."
}

// dangerousFilenameChars can break Content-Disposition quoting or paths.
var dangerousFilenameChars = map[rune]bool{
	'"':  true,
	'\\': true,
	'/':  true,
	':':  true,
}

// Filename turns a video title into a download filename with ext.
func Filename(title, ext string) string {
	var sb strings.Builder
	for _, r := range FormText(title) {
		switch {
		case dangerousFilenameChars[r]:
			sb.WriteByte('_')
		case r == ' ':
			sb.WriteByte('-')
		default:
			sb.WriteRune(r)
		}
	}

	base := strings.Trim(sb.String(), "-_.")
	if base == "" {
		base = "video"
	}
	return truncateToBytes(base, 200) + ext
}

// ContentDisposition returns an attachment header value for filename.
func ContentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

// truncateToBytes cuts s to at most maxBytes without splitting a rune.
func truncateToBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
