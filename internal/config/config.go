package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider    string        `yaml:"provider"`
		Model       string        `yaml:"model"`
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		Temperature float64       `yaml:"temperature"`
		MaxTokens   int           `yaml:"max_tokens"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`
	Validation struct {
		HeadingMatch string `yaml:"heading_match"` // exact | contains
	} `yaml:"validation"`
	Quality struct {
		MinReviewScore  float64 `yaml:"min_review_score"`
		MinLength       int     `yaml:"min_length"`
		MinHeadings     int     `yaml:"min_headings"`
		MinSectionChars int     `yaml:"min_section_chars"`
	} `yaml:"quality"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.LLM.Provider = "gemini"
	cfg.LLM.Model = "gemini-2.5-flash"
	cfg.LLM.Temperature = 0.3
	cfg.LLM.Timeout = 2 * time.Minute
	cfg.Validation.HeadingMatch = "exact"
	cfg.Quality.MinReviewScore = 3
	cfg.Quality.MinLength = 500
	cfg.Quality.MinHeadings = 5
	cfg.Quality.MinSectionChars = 100
	cfg.Storage.Path = "docforge.db"
	cfg.Log.Mode = "dev"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config on top of defaults
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"DOCFORGE_LLM_PROVIDER": &cfg.LLM.Provider,
		"DOCFORGE_MODEL":        &cfg.LLM.Model,
		"DOCFORGE_API_KEY":      &cfg.LLM.APIKey,
		"DOCFORGE_BASE_URL":     &cfg.LLM.BaseURL,
		"DOCFORGE_DB":           &cfg.Storage.Path,
		"DOCFORGE_LOG_MODE":     &cfg.Log.Mode,
	}
	for env, field := range overrides {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
	if cfg.LLM.APIKey != "" {
		return
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case "gemini":
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "groq":
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Validation.HeadingMatch) {
	case "", "exact", "contains":
	default:
		return fmt.Errorf("validation.heading_match must be exact or contains, got %q", c.Validation.HeadingMatch)
	}
	if c.Quality.MinReviewScore < 1 || c.Quality.MinReviewScore > 5 {
		return fmt.Errorf("quality.min_review_score must be within 1..5, got %v", c.Quality.MinReviewScore)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}
	return nil
}
