// Package config loads the application configuration from a YAML file
// with environment-variable overrides. Priority: defaults, then file,
// then environment.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm" env:"LLM"`
	Pipeline PipelineConfig `yaml:"pipeline" env:"PIPELINE"`
	Batch    BatchConfig    `yaml:"batch" env:"BATCH"`
	Export   ExportConfig   `yaml:"export" env:"EXPORT"`
	Store    StoreConfig    `yaml:"store" env:"STORE"`
	Log      LogConfig      `yaml:"log" env:"LOG"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	// Model is the provider model id. There is no default: a missing
	// model is a configuration error, never silently substituted.
	Model       string        `yaml:"model" env:"MODEL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// InterCallDelay paces completion calls across the whole batch.
	InterCallDelay time.Duration `yaml:"inter_call_delay" env:"INTER_CALL_DELAY"`
	MaxRetries     int           `yaml:"max_retries" env:"MAX_RETRIES"`
}

// PipelineConfig configures the generate-check-repair loop.
type PipelineConfig struct {
	MaxIterations     int  `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	RecipeCharLimit   int  `yaml:"recipe_char_limit" env:"RECIPE_CHAR_LIMIT"`
	CondenseLongInput bool `yaml:"condense_long_input" env:"CONDENSE_LONG_INPUT"`
	AnalyzeFirst      bool `yaml:"analyze_first" env:"ANALYZE_FIRST"`
	// MaxStepDurationSeconds tunes the step-duration quality rule.
	MaxStepDurationSeconds int `yaml:"max_step_duration_seconds" env:"MAX_STEP_DURATION_SECONDS"`
}

// BatchConfig configures concurrent processing.
type BatchConfig struct {
	Workers int `yaml:"workers" env:"WORKERS"`
	// Limit caps processed inputs per batch; 0 means all.
	Limit int `yaml:"limit" env:"LIMIT"`
}

// ExportConfig configures artifact output.
type ExportConfig struct {
	Directory string `yaml:"directory" env:"DIRECTORY"`
}

// StoreConfig configures run-history persistence.
type StoreConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// ConfigurationError reports an invalid or incomplete configuration.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the configuration for startup-blocking problems.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.LLM.Model) == "" {
		problems = append(problems, "llm.model is required (set it in the config file or SOUSCHEF_LLM_MODEL)")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("llm.temperature %v out of range [0, 2]", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens < 0 {
		problems = append(problems, "llm.max_tokens must not be negative")
	}
	if c.Pipeline.MaxIterations < 0 {
		problems = append(problems, "pipeline.max_iterations must not be negative")
	}
	if c.Batch.Workers < 1 {
		problems = append(problems, "batch.workers must be at least 1")
	}
	if strings.TrimSpace(c.Export.Directory) == "" {
		problems = append(problems, "export.directory is required")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
