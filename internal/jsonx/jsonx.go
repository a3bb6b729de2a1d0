// Package jsonx recovers structured JSON from language model output.
//
// Model responses wrap JSON in markdown fences, prepend prose, use
// typographic quotes, leave trailing commas and raw newlines inside
// strings. Every function here is total: any input yields either a
// decoded value or a clean "no" that lets the caller fall back to
// field-level extraction and then to defaults. Nothing in this package
// panics or returns an error.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// Extract locates the first complete JSON object in raw. A fenced
// block takes priority over surrounding prose. The object boundary is
// found with a string-aware balanced-brace scan, so a stray '}' in
// trailing prose does not widen the slice.
func Extract(raw string) (string, bool) {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		if obj, ok := scanObject(m[1]); ok {
			return obj, true
		}
	}
	return scanObject(raw)
}

// scanObject returns the first balanced {...} region of s. It tracks
// double-quoted strings and backslash escapes so braces inside string
// values do not affect nesting depth.
func scanObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

var quoteReplacer = strings.NewReplacer(
	"«", `"`,
	"»", `"`,
	"“", `"`,
	"”", `"`,
	"„", `"`,
	"‘", "'",
	"’", "'",
)

// Sanitize repairs the common ways models damage otherwise valid
// JSON: typographic quotes, // line comments, trailing commas and
// control characters. Raw newlines and tabs inside string values are
// re-escaped instead of dropped. Sanitize is idempotent.
func Sanitize(s string) string {
	s = quoteReplacer.Replace(s)
	s = stripLineComments(s)
	s = escapeControl(s)
	s = stripTrailingCommas(s)
	return s
}

func stripLineComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			b.WriteByte(c)
			escaped = true
		case c == '"':
			inString = !inString
			b.WriteByte(c)
		case !inString && c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func escapeControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			b.WriteByte(c)
			escaped = true
		case c == '"':
			inString = !inString
			b.WriteByte(c)
		case c == '\n' && inString:
			b.WriteString(`\n`)
		case c == '\t' && inString:
			b.WriteString(`\t`)
		case c == '\r':
			// dropped in both positions
		case c < 0x20 && c != '\n' && c != '\t':
			// other control characters never survive
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

func stripTrailingCommas(s string) string {
	for {
		next := trailingCommaPattern.ReplaceAllString(s, "$1")
		if next == s {
			return s
		}
		s = next
	}
}

// Decode extracts a JSON object from raw and unmarshals it into v.
// The candidate is tried verbatim first so valid JSON that merely
// contains typographic punctuation inside string values is not
// rewritten; Sanitize runs only as the second attempt. Callers
// prefill v with defaults, so fields absent from the document keep
// them. The return value is the success signal: false means no parse
// succeeded at any tier and the caller should fall back to the
// field-level helpers.
func Decode(raw string, v any) bool {
	candidate, ok := Extract(raw)
	if !ok {
		return false
	}
	if tryUnmarshal(candidate, v) {
		return true
	}
	return tryUnmarshal(Sanitize(candidate), v)
}

func tryUnmarshal(s string, v any) bool {
	data := []byte(s)
	if !json.Valid(data) {
		return false
	}
	return json.Unmarshal(data, v) == nil
}
