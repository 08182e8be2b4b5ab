package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	AI struct {
		Model          string  `yaml:"model"`           // generation model
		EmbeddingModel string  `yaml:"embedding_model"` // similarity embeddings, optional
		APIKey         string  `yaml:"api_key"`
		Dimension      int     `yaml:"dimension"`
		Temperature    float64 `yaml:"temperature"`
	} `yaml:"ai"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Pipeline Pipeline `yaml:"pipeline"`
}

// Pipeline holds every tunable of the generation loop. It is passed explicitly
// into the pipeline at construction; nothing reads these as ambient globals.
type Pipeline struct {
	EnableStructuredMode bool `yaml:"enable_structured_mode"`

	SlidingWindowSize   int `yaml:"sliding_window_size"`   // recent sections kept in full
	SlidingWindowFloor  int `yaml:"sliding_window_floor"`  // K never shrinks below this
	ContextBudgetTokens int `yaml:"context_budget_tokens"` // 40% of the model context window
	SummaryTokenCeiling int `yaml:"summary_token_ceiling"` // per-section compressed summary
	MaxKeyInsights      int `yaml:"max_key_insights"`

	MaxOutputTokens int `yaml:"max_output_tokens"` // per-section generation ceiling
	MinWords        int `yaml:"min_words"`         // below this: depth failure
	TargetMinWords  int `yaml:"target_min_words"`  // below this: depth warning
	MaxWordsWarn    int `yaml:"max_words_warn"`    // above this: length warning

	MinCitationDensity  float64 `yaml:"min_citation_density"`  // clean pass, per 150 words
	WarnCitationDensity float64 `yaml:"warn_citation_density"` // below this: failure
	MaxRedundancy       float64 `yaml:"max_redundancy"`
	MinCoherence        float64 `yaml:"min_coherence"`
	MaxCoherence        float64 `yaml:"max_coherence"`

	MaxAttempts        int `yaml:"max_attempts"` // total generation attempts per section
	ResearchIterations int `yaml:"research_iterations"`
}

// DefaultPipeline returns the baseline tuning of the generation loop.
func DefaultPipeline() Pipeline {
	return Pipeline{
		EnableStructuredMode: true,
		SlidingWindowSize:    5,
		SlidingWindowFloor:   3,
		ContextBudgetTokens:  8000,
		SummaryTokenCeiling:  200,
		MaxKeyInsights:       10,
		MaxOutputTokens:      2048,
		MinWords:             250,
		TargetMinWords:       300,
		MaxWordsWarn:         600,
		MinCitationDensity:   1.0,
		WarnCitationDensity:  0.5,
		MaxRedundancy:        0.70,
		MinCoherence:         0.40,
		MaxCoherence:         0.95,
		MaxAttempts:          3,
		ResearchIterations:   3,
	}
}

// Load reads the YAML config, layering .env and environment overrides on top.
func Load(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := &Config{Pipeline: DefaultPipeline()}
	cfg.AI.Model = "gemini-flash-latest"
	cfg.AI.Temperature = 0.7
	cfg.Storage.DBPath = "deepresearch.db"

	// 2. Load YAML config when present; a missing file keeps defaults.
	if file, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	// 3. Override with environment variables if present.
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.AI.Model = model
	}
	if db := os.Getenv("DEEPRESEARCH_DB"); db != "" {
		cfg.Storage.DBPath = db
	}

	return cfg, nil
}
