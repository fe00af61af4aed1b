package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks model output that could not be decoded.
var ErrMalformedResponse = errors.New("malformed model response")

// DecodeJSON decodes the structured payload inside model output. Code fences
// and prose around the first JSON object or array are stripped, then the
// remainder must decode strictly.
func DecodeJSON(text string, v any) error {
	payload := ExtractJSON(text)
	if payload == "" {
		return fmt.Errorf("%w: no JSON payload found", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// ExtractJSON returns the JSON object or array embedded in text, or "".
func ExtractJSON(text string) string {
	s := stripFences(strings.TrimSpace(text))

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	// keep the content of the first fenced block
	open := strings.Index(s, "```")
	rest := s[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		lang := strings.TrimSpace(rest[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[") {
			rest = rest[nl+1:]
		}
	}
	if close := strings.Index(rest, "```"); close >= 0 {
		rest = rest[:close]
	}
	return strings.TrimSpace(rest)
}
