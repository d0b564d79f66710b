package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Tolerant JSON decoding for untrusted model output. Each stage is pure so
// failures can be pinned to the exact transformation that misfired:
// strip fences -> strip "json" prefix -> normalize -> balanced-block
// extraction -> dangling-quote repair.

var (
	fenceOpenRe  = regexp.MustCompile(`(?m)^` + "```" + `[a-zA-Z0-9_-]*\s*`)
	fenceCloseRe = regexp.MustCompile(`\s*` + "```" + `\s*$`)
	jsonPrefixRe = regexp.MustCompile(`(?i)^json\s*`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

func StripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = fenceOpenRe.ReplaceAllString(t, "")
		t = fenceCloseRe.ReplaceAllString(t, "")
	}
	return strings.TrimSpace(t)
}

func stripJSONPrefix(text string) string {
	t := strings.TrimLeft(text, " \t\r\n")
	lower := strings.ToLower(t)
	if strings.HasPrefix(lower, "json") {
		rest := strings.TrimLeft(t[4:], " \t\r\n")
		if strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
			return jsonPrefixRe.ReplaceAllString(t, "")
		}
	}
	return text
}

// NormalizeJSONText replaces fancy quotes and removes trailing commas.
func NormalizeJSONText(text string) string {
	t := strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'").Replace(text)
	t = trailingComma.ReplaceAllString(t, "$1")
	return strings.TrimSpace(t)
}

// ExtractFirstJSONBlock scans for the first balanced {...} or [...] block,
// respecting string literals and escape sequences. Returns "" when no
// complete block exists.
func ExtractFirstJSONBlock(text string) string {
	startObj := strings.IndexByte(text, '{')
	startArr := strings.IndexByte(text, '[')
	start := startObj
	if start == -1 || (startArr != -1 && startArr < start) {
		start = startArr
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaping := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaping:
				escaping = false
			case ch == '\\':
				escaping = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth <= 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// EscapeDanglingQuotes escapes interior double quotes inside string values
// that the model forgot to escape. A quote inside a string is treated as the
// terminator only if the next non-whitespace byte could legally follow a
// string (comma, brace, bracket, colon, or end of input).
func EscapeDanglingQuotes(text string) string {
	var out strings.Builder
	out.Grow(len(text))
	inString := false
	escaping := false

	nextNonWS := func(idx int) (byte, bool) {
		for j := idx; j < len(text); j++ {
			if !unicode.IsSpace(rune(text[j])) {
				return text[j], true
			}
		}
		return 0, false
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if !inString {
			if ch == '"' {
				inString = true
			}
			out.WriteByte(ch)
			continue
		}
		if escaping {
			escaping = false
			out.WriteByte(ch)
			continue
		}
		if ch == '\\' {
			escaping = true
			out.WriteByte(ch)
			continue
		}
		if ch == '"' {
			n, ok := nextNonWS(i + 1)
			if !ok || n == ',' || n == '}' || n == ']' || n == ':' {
				inString = false
				out.WriteByte(ch)
				continue
			}
			out.WriteString(`\"`)
			continue
		}
		out.WriteByte(ch)
	}
	return out.String()
}

// ParseTolerant decodes model output into v, trying progressively more
// aggressive repairs before giving up with ErrJSONParse.
func ParseTolerant(raw string, v any) error {
	trimmed := stripJSONPrefix(StripCodeFences(raw))
	direct := NormalizeJSONText(trimmed)
	if err := json.Unmarshal([]byte(direct), v); err == nil {
		return nil
	}

	extracted := ExtractFirstJSONBlock(direct)
	if extracted == "" {
		extracted = ExtractFirstJSONBlock(trimmed)
	}
	if extracted == "" {
		return fmt.Errorf("%w: %s", ErrJSONParse, snippet(raw))
	}

	normalized := NormalizeJSONText(extracted)
	if err := json.Unmarshal([]byte(normalized), v); err == nil {
		return nil
	}

	repaired := EscapeDanglingQuotes(normalized)
	if err := json.Unmarshal([]byte(repaired), v); err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrJSONParse, snippet(raw))
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
