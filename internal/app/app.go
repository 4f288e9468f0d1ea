package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"drtbatch/internal/config"
	"drtbatch/internal/drt"
	"drtbatch/internal/infrastructure"
	"drtbatch/internal/operations"
	"drtbatch/pkg/contracts"

	"github.com/go-playground/validator/v10"
)

// Options are the command line overrides applied on top of the loaded
// configuration. Empty fields leave the configuration untouched.
type Options struct {
	ConfigFile string
	Root       string
	Step       string `validate:"omitempty,oneof=trim drt matrix all"`
	Backend    string `validate:"omitempty,oneof=tikhonov command"`
	LogLevel   string
	XLSX       bool
	Plot       bool

	// Console receives console log output; os.Stdout when nil
	Console io.Writer
}

// apply overlays the options onto cfg
func (o Options) apply(cfg *config.Config) {
	if o.Root != "" {
		cfg.Paths.Root = o.Root
	}
	if o.Backend != "" {
		cfg.DRT.Backend = o.Backend
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.XLSX {
		cfg.Export.XLSX = true
	}
	if o.Plot {
		cfg.Export.Plot = true
	}
}

// Application holds everything one pipeline run needs
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Logger *slog.Logger
	Step   string

	console io.Writer
	// fileLogPending holds back file output until the run has raw input
	fileLogPending bool
}

// NewApplication loads the configuration, applies opts and builds the logger
func NewApplication(opts Options) (*Application, error) {
	opts.Step = strings.ToLower(opts.Step)
	opts.Backend = strings.ToLower(opts.Backend)
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	paths, err := config.NewPaths(cfg.Paths.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = paths.LogFile
	}

	step := opts.Step
	if step == "" {
		step = operations.StepAll
	}

	application := &Application{
		Config:  cfg,
		Paths:   paths,
		Step:    step,
		console: opts.Console,
	}

	logCfg := cfg.Logging
	console := opts.Console
	if logCfg.Output == "file" || logCfg.Output == "both" {
		// console only until Run finds raw input
		logCfg.Output = "console"
		application.fileLogPending = true
		if console == nil {
			console = os.Stdout
		}
	}
	application.Logger, err = newLogger(logCfg, console)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return application, nil
}

// newLogger builds the logger for cfg. Without a console writer it becomes
// the process logger.
func newLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, error) {
	if console != nil {
		return infrastructure.NewLogger(cfg, console)
	}
	return infrastructure.InitializeLogger(cfg)
}

// attachLogFile switches to the configured file output. The log directory
// is created here, never on a run that stops for missing raw input.
func (a *Application) attachLogFile() error {
	if !a.fileLogPending {
		return nil
	}
	logger, err := newLogger(a.Config.Logging, a.console)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.Logger = logger
	a.fileLogPending = false
	return nil
}

// Run executes the requested step or the whole pipeline. It returns a nil
// response and no error when the raw input directory had to be created,
// since there is nothing to process yet.
func (a *Application) Run(ctx context.Context) (*operations.OperationResponse, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	a.Logger.InfoContext(ctx, "application_start",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("data_format", contracts.DataFormatVersion),
		slog.String("root", a.Paths.Root),
		slog.String("step", a.Step),
		slog.String("backend", a.Config.DRT.Backend))

	created, err := a.Paths.EnsureRawInput()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare raw input directory: %w", err)
	}
	if created {
		a.Logger.WarnContext(ctx, "raw_input_created",
			slog.String("path", a.Paths.RawDir),
			slog.String("action", "copy instrument exports (*.txt) into this directory and run again"))
		return nil, nil
	}
	if err := a.Paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	if err := a.attachLogFile(); err != nil {
		return nil, err
	}
	a.Paths.LogPathResolution()

	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    infrastructure.ServiceName,
		ServiceVersion: contracts.Version,
		TraceExporter:  a.Config.Telemetry.TraceExporter,
		EnableMetrics:  a.Config.Telemetry.Metrics,
		SampleRatio:    1.0,
	}, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer a.shutdownTelemetry(ctx, providers)

	manager, err := a.buildManager(providers)
	if err != nil {
		return nil, err
	}

	resp, err := manager.Execute(ctx, operations.OperationRequest{
		Parameters: map[string]interface{}{operations.ParamStep: a.Step},
	})
	a.logSummary(ctx, resp)
	return resp, err
}

// buildManager wires the backend, the steps and the manager
func (a *Application) buildManager(providers *infrastructure.OTelProviders) (*operations.Manager, error) {
	inverter, err := drt.New(a.Config.DRT)
	if err != nil {
		return nil, fmt.Errorf("failed to create DRT backend: %w", err)
	}

	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	options := &operations.StageOptions{
		Paths:    a.Paths,
		Tracer:   tracer,
		Inverter: inverter,
		Backend:  a.Config.DRT.Backend,
		Export:   a.Config.Export,
	}

	logger := infrastructure.WithComponent(a.Logger, "pipeline")
	registry := operations.NewRegistry()
	for _, step := range operations.StageFactory(options, logger) {
		if err := registry.Register(step); err != nil {
			return nil, fmt.Errorf("failed to register step %s: %w", step.ID(), err)
		}
	}

	return operations.NewManager(registry, operations.ConfigFromApp(a.Config, a.Paths), tracer, logger), nil
}

// shutdownTelemetry dumps the metrics textfile and stops the providers
func (a *Application) shutdownTelemetry(ctx context.Context, providers *infrastructure.OTelProviders) {
	if a.Config.Telemetry.Metrics {
		if err := providers.WriteMetrics(a.Paths.MetricsFile); err != nil {
			a.Logger.ErrorContext(ctx, "metrics_write_failed", slog.String("error", err.Error()))
		} else {
			a.Logger.DebugContext(ctx, "metrics_written", slog.String("path", a.Paths.MetricsFile))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "telemetry_shutdown_failed", slog.String("error", err.Error()))
	}
}

func (a *Application) logSummary(ctx context.Context, resp *operations.OperationResponse) {
	if resp == nil {
		return
	}
	attrs := []any{
		slog.String("operation_id", resp.ID),
		slog.String("status", string(resp.Status)),
		slog.Duration("duration", resp.Duration),
	}
	for _, id := range []string{operations.StageIDTrim, operations.StageIDDRT, operations.StageIDMatrix} {
		if st, ok := resp.Steps[id]; ok {
			attrs = append(attrs, slog.String(id, string(st.Status)))
		}
	}
	a.Logger.InfoContext(ctx, "application_complete", attrs...)
}

// Close releases the log file, if any
func (a *Application) Close() error {
	return infrastructure.CloseLogFile()
}

// Main runs one pipeline invocation and returns the process exit code
func Main(ctx context.Context, opts Options) int {
	application, err := NewApplication(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.AppName, err)
		return 1
	}
	defer application.Close()

	if _, err := application.Run(ctx); err != nil {
		application.Logger.ErrorContext(ctx, "application_failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
