// Package language defines the two translation targets a session can switch between.
package language

// Language is a supported translation target.
type Language string

const (
	Mandarin Language = "Mandarin"
	Korean   Language = "Korean"
)

// Default is the target every new session starts with.
func Default() Language {
	return Mandarin
}

// Toggle returns the other supported target.
func (l Language) Toggle() Language {
	if l == Korean {
		return Mandarin
	}
	return Korean
}

// Code returns the two-letter code stored with persisted entries.
func (l Language) Code() string {
	if l == Korean {
		return "ko"
	}
	return "zh"
}

// PromptName returns the name used when asking the inference service for a
// translation. Spoken output uses the plain String form instead.
func (l Language) PromptName() string {
	if l == Korean {
		return "Korean"
	}
	return "Mandarin Chinese"
}

func (l Language) String() string {
	return string(l)
}
