package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultScenesPath       = "./scenes.json"
	DefaultOutputDir        = "./outputs"
	DefaultModel            = "gpt-4o-mini"
	DefaultEmbedModel       = "text-embedding-3-small"
	DefaultCorrectThreshold = 0.6
	DefaultSemanticCutoff   = 0.4
	DefaultRequestTimeout   = 60 * time.Second
	DefaultAPIMaxRetries    = 2
	DefaultIndexTimeout     = 10 * time.Second
)

type Settings struct {
	APIKey           string
	BaseURL          string
	Model            string
	EmbedModel       string
	IndexURL         string
	IndexAPIKey      string
	IndexTimeout     time.Duration
	ScenesPath       string
	RosterPath       string
	OutputDir        string
	CorrectThreshold float64
	SemanticCutoff   float64
	RequestTimeout   time.Duration
	APIMaxRetries    int
}

// FromEnv loads settings from the environment, reading a .env file first
// when one is present.
func FromEnv() (Settings, error) {
	// A missing .env is the normal case in CI and containers.
	_ = godotenv.Load()

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return Settings{}, errors.New("OPENAI_API_KEY is required")
	}

	settings := Settings{
		APIKey:           apiKey,
		BaseURL:          strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		Model:            DefaultModel,
		EmbedModel:       DefaultEmbedModel,
		IndexURL:         strings.TrimSpace(os.Getenv("SCENE_INDEX_URL")),
		IndexAPIKey:      strings.TrimSpace(os.Getenv("SCENE_INDEX_API_KEY")),
		IndexTimeout:     DefaultIndexTimeout,
		ScenesPath:       DefaultScenesPath,
		RosterPath:       strings.TrimSpace(os.Getenv("LINECOACH_ROSTER_PATH")),
		OutputDir:        DefaultOutputDir,
		CorrectThreshold: DefaultCorrectThreshold,
		SemanticCutoff:   DefaultSemanticCutoff,
		RequestTimeout:   DefaultRequestTimeout,
		APIMaxRetries:    DefaultAPIMaxRetries,
	}

	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		settings.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL")); v != "" {
		settings.EmbedModel = v
	}
	if v := strings.TrimSpace(os.Getenv("LINECOACH_SCENES_PATH")); v != "" {
		settings.ScenesPath = v
	}
	if v := strings.TrimSpace(os.Getenv("LINECOACH_OUTPUT_DIR")); v != "" {
		settings.OutputDir = v
	}

	var err error
	settings.CorrectThreshold, err = parseOptionalFloat64("LINECOACH_CORRECT_THRESHOLD", settings.CorrectThreshold, func(v float64) bool { return v > 0 && v < 1 })
	if err != nil {
		return Settings{}, err
	}
	settings.SemanticCutoff, err = parseOptionalFloat64("LINECOACH_SEMANTIC_CUTOFF", settings.SemanticCutoff, func(v float64) bool { return v >= 0 && v <= 1 })
	if err != nil {
		return Settings{}, err
	}
	settings.RequestTimeout, err = parseOptionalDuration("OPENAI_REQUEST_TIMEOUT", settings.RequestTimeout, func(v time.Duration) bool { return v > 0 })
	if err != nil {
		return Settings{}, err
	}
	settings.APIMaxRetries, err = parseOptionalInt("OPENAI_API_MAX_RETRIES", settings.APIMaxRetries, func(v int) bool { return v >= 0 })
	if err != nil {
		return Settings{}, err
	}
	settings.IndexTimeout, err = parseOptionalDuration("SCENE_INDEX_TIMEOUT", settings.IndexTimeout, func(v time.Duration) bool { return v > 0 })
	if err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func parseOptionalInt(env string, fallback int, valid func(int) bool) (int, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", env, err)
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("%s has invalid value: %d", env, v)
	}
	return v, nil
}

func parseOptionalFloat64(env string, fallback float64, valid func(float64) bool) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", env, err)
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("%s has invalid value: %v", env, v)
	}
	return v, nil
}

func parseOptionalDuration(env string, fallback time.Duration, valid func(time.Duration) bool) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration (e.g. 45s, 2m): %w", env, err)
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("%s has invalid value: %s", env, v)
	}
	return v, nil
}
