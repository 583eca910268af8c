package inference

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/lumeolabs/lexilens/internal/inference"
)

// decodeModelJSON parses a model reply that should be exactly one JSON value.
// Markdown code fences around the value are tolerated, because models add
// them even when told not to. Any other deviation is a DecodeError carrying
// the raw reply for logging.
func decodeModelJSON(capability, text string, v any) error {
	dec := json.NewDecoder(strings.NewReader(stripCodeFences(text)))
	if err := dec.Decode(v); err != nil {
		return &inference.DecodeError{Capability: capability, Raw: text, Err: err}
	}
	if dec.More() {
		return &inference.DecodeError{Capability: capability, Raw: text, Err: errors.New("trailing data after JSON value")}
	}
	return nil
}

// stripCodeFences removes a surrounding ``` fence, including the optional
// language tag on the opening line.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
