package session

import (
	"fmt"
	"strings"

	"github.com/lumeolabs/lexilens/internal/inference"
	"github.com/lumeolabs/lexilens/internal/language"
)

const followUpInvitation = "Do you have any questions?"

// cancelKeywords end an open listening window when they appear anywhere in a
// finalized utterance.
var cancelKeywords = []string{"stop", "cancel"}

// questionCues mark an utterance as a follow-up question. Plain substring
// matches; anything without a cue is treated as ambient speech.
var questionCues = []string{"can you", "what is", "what's", "how", "why", "?"}

// composeRecognitionSpeech builds the one sentence spoken after a
// recognition run: the primary translation, the secondary objects that
// translated successfully, and the follow-up invitation.
func composeRecognitionSpeech(analysis inference.SubjectAnalysis, secondary []secondaryTranslation, lang language.Language) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s is %s.", analysis.SourceWord, lang, analysis.Translation)
	if len(secondary) > 0 {
		b.WriteString(" I also see ")
		for i, s := range secondary {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s, which is %s", s.Label, s.Translation.Translation)
		}
		b.WriteString(".")
	}
	b.WriteString(" ")
	b.WriteString(followUpInvitation)
	return b.String()
}

// dedupLabels drops the primary word and repeated labels, case
// insensitively, preserving detection order for everything kept.
func dedupLabels(labels []string, primaryWord string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := map[string]struct{}{
		strings.ToLower(strings.TrimSpace(primaryWord)): {},
	}
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		trimmed := strings.TrimSpace(label)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func containsCancelKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range cancelKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func looksLikeQuestion(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range questionCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
