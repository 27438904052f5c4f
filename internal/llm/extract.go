package llm

import (
	"regexp"
	"strings"

	"github.com/caredraft/internal/jsonx"
)

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinkTags removes <think>...</think> blocks some models emit before
// their answer.
func StripThinkTags(text string) string {
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(text, ""))
}

// ExtractInto parses structured data out of free-text model output into v.
// It first attempts a strict parse of the whole text, then falls back to the
// first balanced JSON object or array embedded in it. Returns false when no
// parseable payload exists; callers substitute their degraded defaults in
// that case rather than failing the request.
func ExtractInto(text string, v interface{}) bool {
	text = StripThinkTags(text)
	if text == "" {
		return false
	}

	if jsonx.UnmarshalFromString(text, v) == nil {
		return true
	}

	for start := 0; start < len(text); {
		open := strings.IndexAny(text[start:], "{[")
		if open < 0 {
			return false
		}
		open += start
		if candidate := balancedSlice(text, open); candidate != "" &&
			jsonx.UnmarshalFromString(candidate, v) == nil {
			return true
		}
		// Re-scan from just past this opener; a valid payload may be nested
		// inside an unbalanced or non-JSON region.
		start = open + 1
	}
	return false
}

// balancedSlice returns the shortest balanced JSON value starting at text[at].
// String literals and escapes are honored so braces inside strings do not
// confuse the depth count.
func balancedSlice(text string, at int) string {
	depth := 0
	inString := false
	escaped := false

	for i := at; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[at : i+1]
			}
			if depth < 0 {
				return ""
			}
		}
	}
	return ""
}
