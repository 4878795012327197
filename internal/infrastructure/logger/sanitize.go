package logger

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxValueLength caps user-supplied values (topics, voices, payloads) in log lines.
const maxValueLength = 256

var shortEscapes = map[byte]string{
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

// SanitizeForLog makes a user-supplied value safe to put in one log line.
// Control bytes and invalid UTF-8 are written as escapes, printable Unicode
// is kept, and anything past maxValueLength bytes is replaced by "...".
func SanitizeForLog(s string) string {
	if clean(s) {
		return s
	}

	var b strings.Builder
	b.Grow(min(len(s), maxValueLength) + 8)

	for i := 0; i < len(s); {
		c := s[i]
		r, size := rune(c), 1
		if c >= utf8.RuneSelf {
			r, size = utf8.DecodeRuneInString(s[i:])
		}
		if i+size > maxValueLength {
			b.WriteString("...")
			break
		}

		switch {
		case c < utf8.RuneSelf:
			writeASCII(&b, c)
		case r == utf8.RuneError && size == 1:
			writeHex(&b, c)
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// clean reports whether s can be logged unchanged.
func clean(s string) bool {
	if len(s) > maxValueLength || !utf8.ValidString(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f {
			return false
		}
	}
	return true
}

func writeASCII(b *strings.Builder, c byte) {
	if esc, ok := shortEscapes[c]; ok {
		b.WriteString(esc)
		return
	}
	if c < 0x20 || c == 0x7f {
		writeHex(b, c)
		return
	}
	b.WriteByte(c)
}

func writeHex(b *strings.Builder, c byte) {
	b.WriteString(`\x`)
	if c < 0x10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatUint(uint64(c), 16))
}
