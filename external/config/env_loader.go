package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/lumeolabs/lexilens/internal/config"
)

type envConfig struct {
	Env                 string `env:"ENV" envDefault:"production"`
	PackageName         string `env:"PACKAGE_NAME"`
	PlatformAPIKey      string `env:"PLATFORM_API_KEY"`
	PlatformWSURL       string `env:"PLATFORM_WS_URL" envDefault:"wss://cloud.mentra.glass/app-ws"`
	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	GeminiModel         string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	WordbaseURL         string `env:"WORDBASE_URL"`
	Port                int    `env:"PORT" envDefault:"8080"`
	SpeakVoiceID        string `env:"SPEAK_VOICE_ID" envDefault:"alloy"`
	SpeakModelID        string `env:"SPEAK_MODEL_ID" envDefault:"standard"`
	ListenWindowSeconds int    `env:"LISTEN_WINDOW_SECONDS" envDefault:"10"`
	TrackLocation       bool   `env:"TRACK_LOCATION" envDefault:"false"`
}

// Load reads the companion app configuration from the environment. Missing
// required settings are collected by Validate into one aggregated error.
func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                 raw.Env,
		PackageName:         raw.PackageName,
		PlatformAPIKey:      raw.PlatformAPIKey,
		PlatformWSURL:       raw.PlatformWSURL,
		GeminiAPIKey:        raw.GeminiAPIKey,
		GeminiModel:         raw.GeminiModel,
		WordbaseURL:         raw.WordbaseURL,
		Port:                raw.Port,
		SpeakVoiceID:        raw.SpeakVoiceID,
		SpeakModelID:        raw.SpeakModelID,
		ListenWindowSeconds: raw.ListenWindowSeconds,
		TrackLocation:       raw.TrackLocation,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type wordbaseEnvConfig struct {
	Env         string `env:"ENV" envDefault:"production"`
	DatabaseURL string `env:"DATABASE_URL"`
	Port        int    `env:"PORT" envDefault:"8090"`
}

// LoadWordbase reads the words backend configuration from the environment.
func LoadWordbase() (*internalconfig.WordbaseConfig, error) {
	var raw wordbaseEnvConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}

	cfg := &internalconfig.WordbaseConfig{
		Env:         raw.Env,
		DatabaseURL: raw.DatabaseURL,
		Port:        raw.Port,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
