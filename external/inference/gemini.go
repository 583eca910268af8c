// Package inference implements the vision and translation capabilities on
// the Gemini generateContent API.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lumeolabs/lexilens/internal/inference"
	"github.com/lumeolabs/lexilens/internal/language"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// One retry on transport errors and 5xx responses. Malformed replies and
	// 4xx responses are not retried.
	maxAttempts = 2

	capabilitySubject   = "subject_analysis"
	capabilityTranslate = "phrase_translation"
	capabilityDetect    = "object_detection"
	capabilityAnswer    = "contextual_answer"
)

type GeminiEngine struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiEngine(apiKey, model string) inference.Engine {
	return &GeminiEngine{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *GeminiEngine) AnalyzeSubject(ctx context.Context, image []byte, mimeType string, target language.Language) (inference.SubjectAnalysis, error) {
	parts := []part{
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
		{Text: subjectAnalysisPrompt(target)},
	}
	text, err := e.generate(ctx, capabilitySubject, parts)
	if err != nil {
		return inference.SubjectAnalysis{}, err
	}

	var decoded struct {
		Word       string `json:"word"`
		Characters string `json:"characters"`
		Anglicized string `json:"anglicized"`
	}
	if err := decodeModelJSON(capabilitySubject, text, &decoded); err != nil {
		return inference.SubjectAnalysis{}, err
	}
	if decoded.Word == "" || decoded.Characters == "" {
		return inference.SubjectAnalysis{}, &inference.DecodeError{
			Capability: capabilitySubject,
			Raw:        text,
			Err:        errors.New("missing word or characters"),
		}
	}
	return inference.SubjectAnalysis{
		SourceWord:   decoded.Word,
		Translation:  decoded.Characters,
		Romanization: decoded.Anglicized,
	}, nil
}

func (e *GeminiEngine) TranslatePhrase(ctx context.Context, phrase string, target language.Language) (inference.PhraseTranslation, error) {
	text, err := e.generate(ctx, capabilityTranslate, []part{{Text: phraseTranslationPrompt(phrase, target)}})
	if err != nil {
		return inference.PhraseTranslation{}, err
	}

	var decoded struct {
		Characters string `json:"characters"`
		Anglicized string `json:"anglicized"`
	}
	if err := decodeModelJSON(capabilityTranslate, text, &decoded); err != nil {
		return inference.PhraseTranslation{}, err
	}
	if decoded.Characters == "" {
		return inference.PhraseTranslation{}, &inference.DecodeError{
			Capability: capabilityTranslate,
			Raw:        text,
			Err:        errors.New("missing characters"),
		}
	}
	return inference.PhraseTranslation{
		Translation:  decoded.Characters,
		Romanization: decoded.Anglicized,
	}, nil
}

func (e *GeminiEngine) DetectObjects(ctx context.Context, image []byte, mimeType string) ([]string, error) {
	parts := []part{
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
		{Text: objectDetectionPrompt()},
	}
	text, err := e.generate(ctx, capabilityDetect, parts)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Predictions []struct {
			Class string `json:"class"`
		} `json:"predictions"`
	}
	if err := decodeModelJSON(capabilityDetect, text, &decoded); err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(decoded.Predictions))
	for _, prediction := range decoded.Predictions {
		if prediction.Class == "" {
			continue
		}
		labels = append(labels, prediction.Class)
	}
	return labels, nil
}

func (e *GeminiEngine) AnswerQuestion(ctx context.Context, question string, word inference.SubjectAnalysis, target language.Language) (string, error) {
	text, err := e.generate(ctx, capabilityAnswer, []part{{Text: contextualAnswerPrompt(question, word, target)}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func subjectAnalysisPrompt(target language.Language) string {
	return fmt.Sprintf("What is the subject of this image? Answer in few words, with no adjectives, just a noun. "+
		"Then translate that noun to %s. "+
		`Give your answer as JSON in the form {"word": "", "characters": "", "anglicized": ""} `+
		"where word is the English noun, characters is the %s translation, and anglicized is its romanization, "+
		"with no other formatting or padding.",
		target.PromptName(), target.PromptName())
}

func phraseTranslationPrompt(phrase string, target language.Language) string {
	return fmt.Sprintf(`Translate "%s" to %s. `+
		`Give your answer as JSON in the form {"characters": "", "anglicized": ""} with no other formatting or padding.`,
		phrase, target.PromptName())
}

func objectDetectionPrompt() string {
	return `List the distinct objects visible in this image. ` +
		`Give your answer as JSON in the form {"predictions": [{"class": ""}]} ` +
		`where each class is a single English noun, with no other formatting or padding.`
}

func contextualAnswerPrompt(question string, word inference.SubjectAnalysis, target language.Language) string {
	return fmt.Sprintf(`You are a language tutor helping someone learn %s. `+
		`They just learned that "%s" is %s (%s). `+
		"Answer their follow-up question in one or two short spoken sentences of plain text. "+
		"Question: %s",
		target.PromptName(), word.SourceWord, word.Translation, word.Romanization, question)
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate performs one generateContent round-trip and returns the first
// text part of the first candidate.
func (e *GeminiEngine) generate(ctx context.Context, capability string, parts []part) (string, error) {
	body, err := json.Marshal(generateContentRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", e.baseURL, e.model, e.apiKey)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, retryable, err := e.doGenerate(ctx, capability, url, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return "", err
		}
		slog.Warn("inference call failed; retrying", "capability", capability, "attempt", attempt, "error", err)
	}
	return "", lastErr
}

func (e *GeminiEngine) doGenerate(ctx context.Context, capability, url string, body []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return "", true, &inference.CallError{Capability: capability, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, &inference.CallError{Capability: capability, Err: err}
	}
	if !isHTTPSuccessStatus(resp.StatusCode) {
		slog.Debug("inference call returned non-success status",
			"capability", capability,
			"status", resp.StatusCode,
			"body", truncateForLog(respBody),
		)
		return "", resp.StatusCode >= 500, &inference.CallError{Capability: capability, StatusCode: resp.StatusCode}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", false, &inference.DecodeError{Capability: capability, Raw: truncateForLog(respBody), Err: err}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", false, &inference.DecodeError{
			Capability: capability,
			Raw:        truncateForLog(respBody),
			Err:        errors.New("no candidates in response"),
		}
	}
	return decoded.Candidates[0].Content.Parts[0].Text, false, nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func truncateForLog(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
