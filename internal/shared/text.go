package shared

// TruncateRunes shortens s to at most max runes, appending an
// ellipsis when anything was cut. Byte slicing would split multi-byte
// Cyrillic characters, so the walk counts runes.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i] + "…"
		}
		count++
	}
	return s
}
