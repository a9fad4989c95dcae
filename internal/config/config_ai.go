package config

import "time"

// AIConfig configures the Gemini client. LinkModel is used instead of Model
// when the request carries a job URL instead of a pasted description.
type AIConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	LinkModel        string        `mapstructure:"linkModel"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig  `mapstructure:"customPrompts"`

	Analyze OperationAIConfig `mapstructure:"analyze"`
}

// CircuitBreakerConfig trips the oracle breaker once at least MinRequests
// calls were made in Interval and the failure ratio reaches FailureThreshold.
// While open, calls fail fast for Timeout; half-open admits MaxRequests probes.
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"minRequests"`
	FailureThreshold float64       `mapstructure:"failureThreshold"`
}

// OperationAIConfig holds AI configuration for the analyze operation.
// Unset pointer fields fall back to the global AIConfig values.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	LinkModel        string               `mapstructure:"linkModel"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig overrides the embedded prompts. A *File field replaces its
// inline counterpart at load time.
type PromptConfig struct {
	SystemPrompt     string `mapstructure:"systemPrompt"`
	SystemPromptFile string `mapstructure:"systemPromptFile"`
	UserPrompt       string `mapstructure:"userPrompt"`
	UserPromptFile   string `mapstructure:"userPromptFile"`
}

// GetAnalyzeConfig resolves the analyze operation settings. Fields left unset
// under ai.analyze inherit the global ai.* values, and the link model falls
// back to the main model.
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	op := c.AI.Analyze

	op.Provider = firstNonEmpty(op.Provider, c.AI.Provider)
	op.Model = firstNonEmpty(op.Model, c.AI.Model)
	op.LinkModel = firstNonEmpty(op.LinkModel, c.AI.LinkModel, op.Model)
	op.APIKey = firstNonEmpty(op.APIKey, c.AI.APIKey)
	op.CustomPrompts.SystemPrompt = firstNonEmpty(op.CustomPrompts.SystemPrompt, c.AI.CustomPrompts.SystemPrompt)
	op.CustomPrompts.UserPrompt = firstNonEmpty(op.CustomPrompts.UserPrompt, c.AI.CustomPrompts.UserPrompt)

	op.Timeout = inherit(op.Timeout, c.AI.Timeout)
	op.MaxRetries = inherit(op.MaxRetries, c.AI.MaxRetries)
	op.Temperature = inherit(op.Temperature, c.AI.Temperature)
	op.UseSystemPrompts = inherit(op.UseSystemPrompts, c.AI.UseSystemPrompts)
	return op
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// inherit returns p, or a pointer to a copy of global when p is unset.
func inherit[T any](p *T, global T) *T {
	if p != nil {
		return p
	}
	return &global
}
