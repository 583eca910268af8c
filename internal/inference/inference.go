// Package inference defines the vision and translation capabilities the
// session orchestrator calls. Implementations live in external/inference.
package inference

import (
	"context"
	"fmt"

	"github.com/lumeolabs/lexilens/internal/language"
)

// SubjectAnalysis is the primary recognition result for a captured photo:
// the identified subject together with its translation.
type SubjectAnalysis struct {
	SourceWord   string
	Translation  string
	Romanization string
}

// PhraseTranslation is the result of translating a single phrase.
type PhraseTranslation struct {
	Translation  string
	Romanization string
}

// Engine is the gateway to the inference service.
type Engine interface {
	// AnalyzeSubject identifies the main subject of the photo and translates
	// it into the target language.
	AnalyzeSubject(ctx context.Context, image []byte, mimeType string, target language.Language) (SubjectAnalysis, error)

	// TranslatePhrase translates a phrase into the target language.
	TranslatePhrase(ctx context.Context, phrase string, target language.Language) (PhraseTranslation, error)

	// DetectObjects lists the distinct object labels visible in the photo,
	// in detection order.
	DetectObjects(ctx context.Context, image []byte, mimeType string) ([]string, error)

	// AnswerQuestion answers a spoken follow-up question using the most
	// recently recognized word as context. An empty answer means there is
	// nothing to speak.
	AnswerQuestion(ctx context.Context, question string, word SubjectAnalysis, target language.Language) (string, error)
}

// CallError reports a failed round-trip to the inference service: a network
// error or a non-success HTTP status.
type CallError struct {
	Capability string
	StatusCode int // zero when the request never completed
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("inference %s call returned status %d", e.Capability, e.StatusCode)
	}
	return fmt.Sprintf("inference %s call failed: %v", e.Capability, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response that arrived but could not be decoded into
// the expected shape. Raw carries the payload for logging.
type DecodeError struct {
	Capability string
	Raw        string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("inference %s response is malformed: %v", e.Capability, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
