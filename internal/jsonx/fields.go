package jsonx

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Field-level extraction is the tier below Decode: when no object
// parses at all, labeled values are still often recoverable from the
// raw text with targeted expressions.

// StringField finds `"name": "..."` anywhere in raw and returns the
// unescaped value.
func StringField(raw, name string) (string, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &s); err != nil {
		return m[1], true
	}
	return s, true
}

// NumberField finds `"name": 0.8` (quoted numbers are tolerated).
func NumberField(raw, name string) (float64, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"?(-?\d+(?:[.,]\d+)?)"?`)
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var listItemPattern = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)

// StringList finds `"name": ["a", "b"]` and returns its string
// elements; a missing or malformed list yields nil.
func StringList(raw, name string) []string {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*\[([^\]]*)\]`)
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	var out []string
	for _, item := range listItemPattern.FindAllStringSubmatch(m[1], -1) {
		var s string
		if err := json.Unmarshal([]byte(`"`+item[1]+`"`), &s); err != nil {
			s = item[1]
		}
		out = append(out, s)
	}
	return out
}
