package config

import (
	"time"

	"souschef/check"
	"souschef/prompt"
)

// DefaultConfig returns the baseline configuration. The model id has no
// default on purpose.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Temperature:    0.2,
			MaxTokens:      4096,
			Timeout:        120 * time.Second,
			InterCallDelay: time.Second,
			MaxRetries:     3,
		},
		Pipeline: PipelineConfig{
			MaxIterations:          3,
			RecipeCharLimit:        prompt.DefaultRecipeCharLimit,
			CondenseLongInput:      true,
			AnalyzeFirst:           true,
			MaxStepDurationSeconds: check.DefaultMaxStepDurationSeconds,
		},
		Batch: BatchConfig{
			Workers: 2,
		},
		Export: ExportConfig{
			Directory: "out",
		},
		Store: StoreConfig{
			Path: "souschef.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
