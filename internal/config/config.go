package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	DRT       DRTConfig       `yaml:"drt" envconfig:"DRT"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains the pipeline root. The four stage directories are
// fixed names below it.
type PathsConfig struct {
	Root string `yaml:"root" envconfig:"ROOT" validate:"required"`
}

// DRTConfig selects and configures the inversion backend
type DRTConfig struct {
	Backend string        `yaml:"backend" envconfig:"BACKEND" validate:"oneof=tikhonov command"`
	Command []string      `yaml:"command" envconfig:"COMMAND" validate:"required_if=Backend command"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// ExportConfig toggles the optional matrix exports
type ExportConfig struct {
	XLSX bool `yaml:"xlsx" envconfig:"XLSX"`
	Plot bool `yaml:"plot" envconfig:"PLOT"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	Metrics       bool   `yaml:"metrics" envconfig:"METRICS"`
}

// Load builds the configuration from defaults, an optional YAML file and
// DRTBATCH_* environment variables, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their value and unknown keys are rejected
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate normalizes and validates the configuration
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	c.DRT.Backend = strings.ToLower(c.DRT.Backend)

	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: "console",
		},
		Paths: PathsConfig{
			Root: "data",
		},
		DRT: DRTConfig{
			Backend: BackendTikhonov,
			Timeout: DefaultDRTTimeout,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
		},
	}
}
