package operations

import (
	"time"

	"drtbatch/internal/config"
)

// Config represents the pipeline execution configuration
type Config struct {
	// Per-step timeouts
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	// Retry configuration for steps
	RetryConfig RetryConfig `json:"retry_config"`

	// ContinueOnError runs later steps after a failed one. Each step
	// re-reads its input directory, so earlier output still flows on.
	ContinueOnError bool `json:"continue_on_error"`

	// ManifestPath is where the run manifest is persisted; empty disables it
	ManifestPath string `json:"manifest_path"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		StageTimeouts: map[string]time.Duration{
			StageIDTrim:   DefaultTrimTimeout,
			StageIDDRT:    DefaultDRTTimeout,
			StageIDMatrix: DefaultMatrixTimeout,
		},
		RetryConfig:     NewRetryConfig(),
		ContinueOnError: true,
	}
}

// ConfigFromApp derives the pipeline configuration from the application
// configuration and resolved paths
func ConfigFromApp(cfg *config.Config, paths *config.Paths) *Config {
	c := NewConfig()
	if cfg != nil && cfg.DRT.Timeout > 0 {
		c.SetStageTimeout(StageIDDRT, cfg.DRT.Timeout)
	}
	if paths != nil {
		c.ManifestPath = paths.ManifestFile
	}
	return c
}

// GetStageTimeout returns the timeout for a specific step
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stageID]; ok && timeout > 0 {
		return timeout
	}
	return DefaultStageTimeout
}

// SetStageTimeout sets the timeout for a specific step
func (c *Config) SetStageTimeout(stageID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stageID] = timeout
}

// ConfigBuilder provides a fluent interface for building pipeline configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: NewConfig()}
}

// WithStageTimeout sets the timeout for a step
func (b *ConfigBuilder) WithStageTimeout(stageID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStageTimeout(stageID, timeout)
	return b
}

// WithRetryConfig sets the retry configuration
func (b *ConfigBuilder) WithRetryConfig(config RetryConfig) *ConfigBuilder {
	b.config.RetryConfig = config
	return b
}

// WithContinueOnError sets whether later steps run after a failure
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// WithManifestPath sets where the run manifest is written
func (b *ConfigBuilder) WithManifestPath(path string) *ConfigBuilder {
	b.config.ManifestPath = path
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
