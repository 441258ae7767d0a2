package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ```json { ... } ```
	fencedObjectPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(\\{.*\\})\\s*```")
	// outermost { ... } anywhere in the reply
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// Decode extracts the JSON object from a model reply.
// Code fences, surrounding prose, // comments and trailing commas are tolerated.
func Decode(raw string) (map[string]any, error) {
	body := extractObject(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(body)), &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return m, nil
}

func extractObject(content string) string {
	if matches := fencedObjectPattern.FindStringSubmatch(content); len(matches) > 1 {
		return matches[1]
	}
	return objectPattern.FindString(content)
}

func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return stripTrailingCommas(strings.Join(lines, "\n"))
}

// stripTrailingCommas drops a comma that is followed only by whitespace and a
// closing } or ]. Commas inside string values are kept.
func stripTrailingCommas(body string) string {
	var b strings.Builder
	b.Grow(len(body))

	inString := false
	escaped := false
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == ',':
			j := i + 1
			for j < len(body) && strings.IndexByte(" \t\r\n", body[j]) >= 0 {
				j++
			}
			if j < len(body) && (body[j] == '}' || body[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// stripLineComment removes a trailing // comment that is outside any string value.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
