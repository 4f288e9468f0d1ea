package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"drtbatch/internal/config"

	"go.opentelemetry.io/otel/trace"
)

// process-wide logger and the log file it may hold open
var (
	loggerMu   sync.Mutex
	rootLogger *slog.Logger
	logFile    *os.File
)

// InitializeLogger builds the process logger from cfg, writing console
// output to stdout, and installs it as the slog default. Later calls return
// the logger built by the first one.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	loggerMu.Lock()
	initialized := rootLogger
	loggerMu.Unlock()
	if initialized != nil {
		return initialized, nil
	}

	logger, err := NewLogger(cfg, os.Stdout)
	if err != nil {
		return nil, err
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if rootLogger == nil {
		rootLogger = logger
		slog.SetDefault(logger)
	}
	return rootLogger, nil
}

// GetLogger returns the process logger, or slog.Default before
// InitializeLogger ran
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if rootLogger == nil {
		return slog.Default()
	}
	return rootLogger
}

// NewLogger builds a logger for cfg. Output "console" writes to console,
// "file" to cfg.FilePath and "both" to each of them. Records logged with a
// context carry its run trace_id and, inside a span, the span_id.
func NewLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, error) {
	out, err := logSink(cfg, console)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(correlationHandler{handler}), nil
}

// logSink opens the writer selected by cfg.Output
func logSink(cfg config.LoggingConfig, console io.Writer) (io.Writer, error) {
	output := strings.ToLower(cfg.Output)
	if output != "file" && output != "both" {
		return console, nil
	}

	file, err := openLogFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	loggerMu.Lock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	loggerMu.Unlock()

	if output == "both" {
		return io.MultiWriter(console, file), nil
	}
	return file, nil
}

// correlationHandler adds the run and span identifiers found in the context
type correlationHandler struct {
	slog.Handler
}

func (h correlationHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h correlationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return correlationHandler{h.Handler.WithAttrs(attrs)}
}

func (h correlationHandler) WithGroup(name string) slog.Handler {
	return correlationHandler{h.Handler.WithGroup(name)}
}

// parseLogLevel maps a configured level name to slog; unknown names log at info
func parseLogLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// CloseLogFile closes the log file opened by NewLogger, if any
func CloseLogFile() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ResetLoggerForTesting drops the process logger and closes its file
func ResetLoggerForTesting() {
	CloseLogFile()
	loggerMu.Lock()
	rootLogger = nil
	loggerMu.Unlock()
}

// openLogFile opens filePath for appending, creating its directory
func openLogFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}
