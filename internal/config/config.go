package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the companion app settings.
type Config struct {
	Env                 string
	PackageName         string
	PlatformAPIKey      string
	PlatformWSURL       string
	GeminiAPIKey        string
	GeminiModel         string
	WordbaseURL         string
	Port                int
	SpeakVoiceID        string
	SpeakModelID        string
	ListenWindowSeconds int
	TrackLocation       bool
}

// Validate reports every missing or invalid setting at once so a broken
// deployment surfaces the full list in a single startup error.
func (c *Config) Validate() error {
	var problems []string
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			problems = append(problems, fmt.Sprintf("%s is required", req.name))
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be a valid port, got %d", c.Port))
	}
	if c.ListenWindowSeconds <= 0 {
		problems = append(problems, fmt.Sprintf("LISTEN_WINDOW_SECONDS must be positive, got %d", c.ListenWindowSeconds))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "PACKAGE_NAME", value: c.PackageName},
		{name: "PLATFORM_API_KEY", value: c.PlatformAPIKey},
		{name: "GEMINI_API_KEY", value: c.GeminiAPIKey},
		{name: "WORDBASE_URL", value: c.WordbaseURL},
	}
}

// ListenWindow is the duration follow-up questions are accepted after a
// recognition or answer is spoken.
func (c *Config) ListenWindow() time.Duration {
	return time.Duration(c.ListenWindowSeconds) * time.Second
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// WordbaseConfig holds the words backend settings.
type WordbaseConfig struct {
	Env         string
	DatabaseURL string
	Port        int
}

func (c *WordbaseConfig) Validate() error {
	var problems []string
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be a valid port, got %d", c.Port))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *WordbaseConfig) IsDevelopment() bool {
	return c.Env == "development"
}
