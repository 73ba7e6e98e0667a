package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"docforge/internal/markdown"
)

// ErrNoJSON is returned when model output carries no JSON payload.
var ErrNoJSON = errors.New("no JSON payload in model output")

var (
	// ```json { ... } ```
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// greedy fallback for a bare object
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	// ```json [ ... ] ```
	jsonArrayBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	// greedy fallback for a bare array
	jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)
)

// ExtractJSON pulls a JSON object out of model text, fenced or bare.
func ExtractJSON(content string) string {
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := jsonObjectPattern.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

// ExtractJSONArray pulls a JSON array out of model text, fenced or bare.
func ExtractJSONArray(content string) string {
	if m := jsonArrayBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := jsonArrayPattern.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

// DecodeJSON extracts the object payload from content and decodes it into v.
func DecodeJSON(content string, v interface{}) error {
	return decode(ExtractJSON(content), v)
}

// DecodeJSONArray extracts the array payload from content and decodes it into v.
func DecodeJSONArray(content string, v interface{}) error {
	return decode(ExtractJSONArray(content), v)
}

func decode(payload string, v interface{}) error {
	if strings.TrimSpace(payload) == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("decode model JSON: %w", err)
	}
	return nil
}

// CleanMarkdown removes a code fence wrapped around a generated document.
func CleanMarkdown(text string) string {
	return markdown.StripFences(text)
}

// cleanJSON removes // comments and trailing commas that models tend to emit.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return stripTrailingCommas(strings.Join(lines, "\n"))
}

// stripTrailingCommas drops commas that directly precede } or ], leaving
// string literals untouched.
func stripTrailingCommas(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == ',':
			j := i + 1
			for j < len(raw) && strings.ContainsRune(" \t\r\n", rune(raw[j])) {
				j++
			}
			if j < len(raw) && (raw[j] == '}' || raw[j] == ']') {
				continue
			}
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// stripLineComment drops a // comment that is outside any string literal.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
