package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName = "drtbatch"
	MeterName   = "drtbatch"
)

// File outcomes recorded per stage
const (
	OutcomeWritten  = "written"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	TraceExporter  string // "stdout", "none"
	TraceWriter    io.Writer
	EnableMetrics  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers. Tracer and Meter are
// always usable; they are no-ops when the matching signal is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *promclient.Registry
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a configuration with both signals disabled
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: "dev",
		TraceExporter:  "none",
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics for one pipeline run
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return providers, nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var opts []stdouttrace.Option
	switch cfg.TraceExporter {
	case "", "none":
		return nil
	case "stdout":
		opts = append(opts, stdouttrace.WithPrettyPrint())
		if cfg.TraceWriter != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.TraceWriter))
		}
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.DebugContext(ctx, "tracing_initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

// initializeMetrics wires the Prometheus exporter to a private registry so
// a batch run can dump its metrics to a textfile instead of serving them.
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.Registry = registry
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

	providers.Logger.DebugContext(ctx, "metrics_initialized", slog.String("exporter", "prometheus"))
	return nil
}

// WriteMetrics dumps the collected metrics in Prometheus text format.
// It is a no-op when metrics are disabled.
func (p *OTelProviders) WriteMetrics(path string) error {
	if p == nil || p.Registry == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := promclient.WriteToTextfile(path, p.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

// PipelineMetrics holds the instruments recorded by the pipeline
type PipelineMetrics struct {
	OperationExecutionsTotal metric.Int64Counter
	OperationDuration        metric.Float64Histogram
	StepExecutionsTotal      metric.Int64Counter
	StepDuration             metric.Float64Histogram
	FilesTotal               metric.Int64Counter
	InversionDuration        metric.Float64Histogram
}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	operationExecutionsTotal, err := meter.Int64Counter(
		"operation_executions_total",
		metric.WithDescription("Total number of pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram(
		"operation_execution_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stepExecutionsTotal, err := meter.Int64Counter(
		"operation_steps_total",
		metric.WithDescription("Total number of stage executions"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"operation_step_duration_seconds",
		metric.WithDescription("Stage execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	filesTotal, err := meter.Int64Counter(
		"pipeline_files_total",
		metric.WithDescription("Files handled per stage and outcome"),
	)
	if err != nil {
		return nil, err
	}

	inversionDuration, err := meter.Float64Histogram(
		"drt_inversion_duration_seconds",
		metric.WithDescription("Duration of one DRT inversion in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		OperationExecutionsTotal: operationExecutionsTotal,
		OperationDuration:        operationDuration,
		StepExecutionsTotal:      stepExecutionsTotal,
		StepDuration:             stepDuration,
		FilesTotal:               filesTotal,
		InversionDuration:        inversionDuration,
	}, nil
}

func statusAttr(success bool) attribute.KeyValue {
	if success {
		return attribute.String("status", "success")
	}
	return attribute.String("status", "failure")
}

// RecordOperationMetrics records one pipeline run
func RecordOperationMetrics(ctx context.Context, metrics *PipelineMetrics, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(statusAttr(success))
	metrics.OperationExecutionsTotal.Add(ctx, 1, attrs)
	metrics.OperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStepMetrics records one stage execution
func RecordStepMetrics(ctx context.Context, metrics *PipelineMetrics, stepID string, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("step.id", stepID), statusAttr(success))
	metrics.StepExecutionsTotal.Add(ctx, 1, attrs)
	metrics.StepDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFileOutcome counts n files of a stage with the given outcome
func RecordFileOutcome(ctx context.Context, metrics *PipelineMetrics, stepID, outcome string, n int64) {
	if metrics == nil || n == 0 {
		return
	}
	metrics.FilesTotal.Add(ctx, n, metric.WithAttributes(
		attribute.String("step.id", stepID),
		attribute.String("outcome", outcome),
	))
}

// RecordInversion records the duration of one inversion call
func RecordInversion(ctx context.Context, metrics *PipelineMetrics, backend string, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}
	metrics.InversionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("backend", backend),
		statusAttr(success),
	))
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
