package operations

import (
	"fmt"
	"log/slog"

	"drtbatch/internal/config"
	"drtbatch/internal/drt"
	"drtbatch/internal/exporter"
	"drtbatch/internal/files"
	"drtbatch/internal/validation"
)

// StageOptions contains the collaborators shared by the pipeline steps.
// Only Paths is required; the rest default to plain implementations.
type StageOptions struct {
	Paths     *config.Paths
	Files     *files.Manager
	Discovery *files.Discovery
	Validator *validation.FileValidator
	Writer    *exporter.CSVWriter
	Tracer    *OperationTracer

	// Inverter is the DRT backend; Backend names it in logs and metrics
	Inverter drt.Inverter
	Backend  string

	Export config.ExportConfig
}

// withDefaults fills unset collaborators
func (o *StageOptions) withDefaults(logger *slog.Logger) *StageOptions {
	out := StageOptions{}
	if o != nil {
		out = *o
	}
	if out.Files == nil {
		out.Files = files.NewManager(logger)
	}
	if out.Discovery == nil {
		out.Discovery = files.NewDiscovery("")
	}
	if out.Validator == nil {
		out.Validator = validation.NewFileValidator(logger)
	}
	if out.Writer == nil {
		out.Writer = exporter.NewCSVWriter(out.Files, logger)
	}
	if out.Tracer == nil {
		out.Tracer = NoopOperationTracer()
	}
	if out.Backend == "" {
		out.Backend = config.BackendTikhonov
	}
	return &out
}

// layout returns the configured paths, or an empty layout when unset;
// validatePaths reports the missing paths
func (o *StageOptions) layout() *config.Paths {
	if o.Paths == nil {
		return &config.Paths{}
	}
	return o.Paths
}

// validatePaths reports a step built without a layout
func (o *StageOptions) validatePaths(stageID string) error {
	if o == nil || o.Paths == nil {
		return NewValidationError(stageID, fmt.Sprintf("%s step has no paths configured", stageID))
	}
	return nil
}
