// Package prompt builds the section generation and rule validation prompts
// from template, rule, and project data. Everything in this package is pure:
// no network, no storage, no clocks.
package prompt

// TruncationMarker is appended whenever content is cut to fit a budget.
const TruncationMarker = "\n[... content truncated ...]"

// Truncate caps s at max runes. When the content is cut the marker is
// appended so the model knows the text continues. max <= 0 disables the cap.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + TruncationMarker
}

// TruncatePlain caps s at max runes with a short ellipsis instead of the
// block marker. Used for inline fields like rule descriptions.
func TruncatePlain(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
