package session

import (
	"testing"

	"github.com/lumeolabs/lexilens/internal/inference"
	"github.com/lumeolabs/lexilens/internal/language"
)

func TestComposeRecognitionSpeech_PrimaryOnly(t *testing.T) {
	got := composeRecognitionSpeech(
		inference.SubjectAnalysis{SourceWord: "cup", Translation: "杯子", Romanization: "bēi zi"},
		nil,
		language.Mandarin,
	)
	want := "cup in Mandarin is 杯子. Do you have any questions?"
	if got != want {
		t.Fatalf("unexpected speech: %q", got)
	}
}

func TestComposeRecognitionSpeech_WithSecondaries(t *testing.T) {
	got := composeRecognitionSpeech(
		inference.SubjectAnalysis{SourceWord: "cup", Translation: "杯子", Romanization: "bēi zi"},
		[]secondaryTranslation{
			{Label: "table", Translation: inference.PhraseTranslation{Translation: "桌子", Romanization: "zhuō zi"}},
			{Label: "chair", Translation: inference.PhraseTranslation{Translation: "椅子", Romanization: "yǐ zi"}},
		},
		language.Mandarin,
	)
	want := "cup in Mandarin is 杯子. I also see table, which is 桌子, chair, which is 椅子. Do you have any questions?"
	if got != want {
		t.Fatalf("unexpected speech: %q", got)
	}
}

func TestComposeRecognitionSpeech_KoreanTarget(t *testing.T) {
	got := composeRecognitionSpeech(
		inference.SubjectAnalysis{SourceWord: "cup", Translation: "컵", Romanization: "keop"},
		nil,
		language.Korean,
	)
	want := "cup in Korean is 컵. Do you have any questions?"
	if got != want {
		t.Fatalf("unexpected speech: %q", got)
	}
}

func TestDedupLabels_DropsPrimaryAndRepeats(t *testing.T) {
	got := dedupLabels([]string{"cup", "table", "Table", "", "  chair "}, "cup")
	if len(got) != 2 || got[0] != "table" || got[1] != "chair" {
		t.Fatalf("unexpected labels: %+v", got)
	}
}

func TestDedupLabels_CaseInsensitivePrimaryMatch(t *testing.T) {
	got := dedupLabels([]string{"Cup", "mug"}, "cup")
	if len(got) != 1 || got[0] != "mug" {
		t.Fatalf("unexpected labels: %+v", got)
	}
}

func TestDedupLabels_Empty(t *testing.T) {
	if got := dedupLabels(nil, "cup"); got != nil {
		t.Fatalf("expected nil for no labels, got %+v", got)
	}
}

func TestContainsCancelKeyword(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"okay stop now", true},
		{"Cancel that please", true},
		{"STOP", true},
		{"what is it made of", false},
		{"nothing else", false},
	}
	for _, c := range cases {
		if got := containsCancelKeyword(c.text); got != c.want {
			t.Fatalf("containsCancelKeyword(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestLooksLikeQuestion(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"what is it made of", true},
		{"What's that called", true},
		{"can you repeat the word", true},
		{"How do I say it", true},
		{"why is it called that", true},
		{"is this a cup?", true},
		{"nice weather today", false},
		{"that looks great", false},
	}
	for _, c := range cases {
		if got := looksLikeQuestion(c.text); got != c.want {
			t.Fatalf("looksLikeQuestion(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}
