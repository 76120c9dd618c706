package rehab

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripMarkdownFences removes ```json ... ``` or ``` ... ``` wrapping from
// text. Returns the content between the fences, or the original text if no
// fences are found.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	startIdx := 1 // skip the opening ``` line
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}

	return strings.Join(lines[startIdx:endIdx], "\n")
}

// ExtractObject returns the substring from the first '{' to the last '}'.
func ExtractObject(text string) (string, error) {
	start := strings.Index(text, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found")
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end < start {
		return "", fmt.Errorf("no closing } found")
	}
	return text[start : end+1], nil
}

// Clean applies the full rehabilitation sequence to raw worker text and
// returns strict JSON: fence stripping, object extraction, and single-quote
// normalization when the extracted text is not already valid.
func Clean(raw string) (string, error) {
	extracted, err := ExtractObject(StripMarkdownFences(raw))
	if err != nil {
		return "", err
	}
	if json.Valid([]byte(extracted)) {
		return extracted, nil
	}
	repaired := normalizeQuotes(extracted)
	if !json.Valid([]byte(repaired)) {
		return "", fmt.Errorf("invalid JSON after quote repair")
	}
	return repaired, nil
}

// Parse rehabilitates raw worker text and unmarshals it into T.
func Parse[T any](raw string) (T, error) {
	var result T
	cleaned, err := Clean(raw)
	if err != nil {
		return result, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		preview := cleaned
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		var zero T
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return result, nil
}

// normalizeQuotes rewrites single-quoted strings to double-quoted strings.
// Content already inside double quotes is copied verbatim; double quotes
// appearing inside a single-quoted string are escaped.
func normalizeQuotes(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inDouble := false
	inSingle := false
	escaped := false

	for _, r := range text {
		if escaped {
			if inSingle && r == '\'' {
				// \' inside a single-quoted string needs no escape once requoted.
				b.WriteRune('\'')
			} else {
				b.WriteRune('\\')
				b.WriteRune(r)
			}
			escaped = false
			continue
		}

		switch {
		case r == '\\':
			escaped = true
		case inDouble:
			b.WriteRune(r)
			if r == '"' {
				inDouble = false
			}
		case inSingle:
			switch r {
			case '\'':
				b.WriteRune('"')
				inSingle = false
			case '"':
				b.WriteString(`\"`)
			default:
				b.WriteRune(r)
			}
		case r == '"':
			b.WriteRune(r)
			inDouble = true
		case r == '\'':
			b.WriteRune('"')
			inSingle = true
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteRune('\\')
	}
	return b.String()
}
