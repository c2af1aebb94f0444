package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Models are contractually obligated to return free text, not JSON, so
// every structured exchange goes through repair: fence stripping, brace
// scanning, comment and trailing-comma removal, then a real parse.
// RepairJSON is total - it returns a parsed document or a *ParseError,
// never panics, and is shared by the validation engine and the template
// analyzer.

// Pre-compiled patterns for JSON extraction from model responses.
var (
	// jsonBlockPattern matches JSON inside markdown code blocks: ```json { ... } ```
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches any JSON object (greedy fallback).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// jsonArrayBlockPattern matches JSON arrays inside markdown code blocks.
	jsonArrayBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	// jsonArrayPattern matches any JSON array (greedy fallback).
	jsonArrayPattern = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseError reports that no valid JSON could be recovered from a model
// response. Raw carries the original text for diagnostics.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "repair json: " + e.Reason
}

// RepairJSON extracts and repairs a single JSON object from free text.
// On success the returned RawMessage is valid JSON; on failure the
// *ParseError explains why. Exactly one of the results is non-nil.
func RepairJSON(content string) (json.RawMessage, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Reason: "empty response", Raw: content}
	}

	raw := extractRawObject(content)
	if raw == "" {
		// No brace-delimited object found at all; rescan from the
		// first opening brace in case the greedy pattern was thrown
		// off by surrounding text.
		if idx := strings.IndexByte(content, '{'); idx >= 0 {
			raw = extractRawObject(content[idx:])
		}
	}
	if raw == "" {
		return nil, &ParseError{Reason: "no JSON object found", Raw: content}
	}

	cleaned := cleanJSON(raw)
	if !json.Valid([]byte(cleaned)) {
		return nil, &ParseError{Reason: "extracted text is not valid JSON", Raw: content}
	}
	return json.RawMessage(cleaned), nil
}

// RepairJSONArray is the array counterpart of RepairJSON.
func RepairJSONArray(content string) (json.RawMessage, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Reason: "empty response", Raw: content}
	}

	var raw string
	if matches := jsonArrayBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		raw = matches[1]
	} else if match := jsonArrayPattern.FindString(content); match != "" {
		raw = match
	}
	if raw == "" {
		return nil, &ParseError{Reason: "no JSON array found", Raw: content}
	}

	cleaned := cleanJSON(raw)
	if !json.Valid([]byte(cleaned)) {
		return nil, &ParseError{Reason: "extracted text is not valid JSON", Raw: content}
	}
	return json.RawMessage(cleaned), nil
}

// RepairInto repairs a JSON object and decodes it into dst.
func RepairInto(content string, dst any) *ParseError {
	raw, perr := RepairJSON(content)
	if perr != nil {
		return perr
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &ParseError{Reason: "decode: " + err.Error(), Raw: content}
	}
	return nil
}

// extractRawObject pulls the raw object text out of fences or plain text.
func extractRawObject(content string) string {
	// Try markdown code block first
	if matches := jsonBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return matches[1]
	}
	// Fallback to raw JSON object
	if match := jsonObjectPattern.FindString(content); match != "" {
		return match
	}
	return ""
}

// cleanJSON removes JavaScript-style comments and trailing commas.
// Models commonly produce both.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")

	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting
// string values so URLs survive intact.
func stripLineComment(line string) string {
	// Fast path: no // at all
	if !strings.Contains(line, "//") {
		return line
	}

	// Walk the line tracking whether we're inside a string.
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
