package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/automl/ai/core/errclass"
)

// ExtractCode returns the body of the first fenced code block in text, or the trimmed
// text itself when it carries no fence.
func ExtractCode(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return strings.TrimSpace(text)
	}
	rest := text[start+3:]
	// Skip the language tag line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return strings.TrimSpace(text)
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// ParseJSON decodes the JSON object or array embedded in a model response.
// Malformed output is reported as errclass.ErrParse.
func ParseJSON[T any](text string) (T, error) {
	var out T

	body := text
	if strings.Contains(body, "```") {
		body = ExtractCode(body)
	}
	body = strings.TrimSpace(body)

	open := strings.IndexAny(body, "{[")
	if open < 0 {
		return out, fmt.Errorf("%w: no JSON value in response", errclass.ErrParse)
	}
	closer := "}"
	if body[open] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(body, closer)
	if end < open {
		return out, fmt.Errorf("%w: unterminated JSON value", errclass.ErrParse)
	}

	if err := json.Unmarshal([]byte(body[open:end+1]), &out); err != nil {
		return out, fmt.Errorf("%w: %v", errclass.ErrParse, err)
	}
	return out, nil
}
