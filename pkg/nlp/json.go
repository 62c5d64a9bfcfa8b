package nlp

import (
	"encoding/json"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

// DecodeStructured unmarshals a structured-output response body into out.
// Models frequently wrap JSON in code fences or emit trailing commas; the
// body is stripped and repaired before decoding. stage names the generation
// step for error reporting.
func DecodeStructured(stage, content string, out any) error {
	body := StripCodeFences(content)
	if strings.TrimSpace(body) == "" {
		return &DecodeError{Stage: stage, Raw: content, Err: ErrEmptyResponse}
	}

	if err := json.Unmarshal([]byte(body), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(body)
	if err != nil {
		return &DecodeError{Stage: stage, Raw: content, Err: err}
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return &DecodeError{Stage: stage, Raw: content, Err: err}
	}
	return nil
}

// StripCodeFences removes a surrounding markdown code fence, if any.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "yaml", ...).
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
