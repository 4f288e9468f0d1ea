package testutil

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured log event. Attribute keys inside groups are
// joined with dots ("files.written"); integer values are int64.
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recordStore is shared by a handler and every handler derived from it
type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler captures log records in memory. Handlers returned by
// WithAttrs and WithGroup write into the same buffer, so a logger built
// with logger.With(...) is still observed.
type BufferedSlogHandler struct {
	store  *recordStore
	attrs  []slog.Attr
	groups []string
	t      *testing.T
}

// NewBufferedSlogHandler creates a handler that also echoes records to t.Log
func NewBufferedSlogHandler(t *testing.T) *BufferedSlogHandler {
	return &BufferedSlogHandler{store: &recordStore{}, t: t}
}

// NewTestLogger creates a logger backed by a BufferedSlogHandler
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	handler := NewBufferedSlogHandler(t)
	return slog.New(handler), handler
}

// Enabled captures every level
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	prefix := groupPrefix(h.groups)
	for _, a := range h.attrs {
		flatten(attrs, a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, prefix+a.Key, a.Value)
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs returns a handler that adds attrs to every record
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	prefix := groupPrefix(h.groups)
	derived.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		derived.attrs = append(derived.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &derived
}

// WithGroup returns a handler that nests later attributes under name
func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.groups = append(slices.Clone(h.groups), name)
	return &derived
}

func groupPrefix(groups []string) string {
	prefix := ""
	for _, g := range groups {
		prefix += g + "."
	}
	return prefix
}

// flatten stores v under key, expanding groups into dotted keys
func flatten(dst map[string]any, key string, v slog.Value) {
	v = v.Resolve()
	if v.Kind() != slog.KindGroup {
		dst[key] = v.Any()
		return
	}
	for _, a := range v.Group() {
		k := a.Key
		if key != "" {
			k = key + "." + a.Key
		}
		flatten(dst, k, a.Value)
	}
}

// GetRecords returns a copy of the captured records
func (h *BufferedSlogHandler) GetRecords() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return slices.Clone(h.store.records)
}

// GetRecordsByLevel returns the records logged at level
func (h *BufferedSlogHandler) GetRecordsByLevel(level slog.Level) []LogRecord {
	var filtered []LogRecord
	for _, r := range h.GetRecords() {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// FindRecords returns the records whose message is exactly message
func (h *BufferedSlogHandler) FindRecords(message string) []LogRecord {
	var found []LogRecord
	for _, r := range h.GetRecords() {
		if r.Message == message {
			found = append(found, r)
		}
	}
	return found
}

// ContainsMessage reports whether an event named message was logged
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	return len(h.FindRecords(message)) > 0
}

// ContainsAttr reports whether any record carries key with value
func (h *BufferedSlogHandler) ContainsAttr(key string, value any) bool {
	for _, r := range h.GetRecords() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Messages returns the event names in logging order
func (h *BufferedSlogHandler) Messages() []string {
	records := h.GetRecords()
	msgs := make([]string, len(records))
	for i, r := range records {
		msgs[i] = r.Message
	}
	return msgs
}

// Clear removes all captured records
func (h *BufferedSlogHandler) Clear() {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.records = nil
}

// Count returns the number of captured records
func (h *BufferedSlogHandler) Count() int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return len(h.store.records)
}

// AssertLogContains fails t unless an event named message was logged at level
func AssertLogContains(t *testing.T, handler *BufferedSlogHandler, level slog.Level, message string) {
	t.Helper()
	for _, r := range handler.FindRecords(message) {
		if r.Level == level {
			return
		}
	}
	t.Errorf("log event %q not found at level %s; got %v", message, level, handler.Messages())
}

// AssertLogAttr fails t unless some record carries key with expectedValue
func AssertLogAttr(t *testing.T, handler *BufferedSlogHandler, key string, expectedValue any) {
	t.Helper()
	if !handler.ContainsAttr(key, expectedValue) {
		t.Errorf("log attribute %s=%v not found", key, expectedValue)
		for _, r := range handler.GetRecords() {
			t.Logf("  %s: %v", r.Message, r.Attrs)
		}
	}
}

// AssertNoErrors fails t if anything was logged at error level
func AssertNoErrors(t *testing.T, handler *BufferedSlogHandler) {
	t.Helper()
	for _, r := range handler.GetRecordsByLevel(slog.LevelError) {
		t.Errorf("unexpected error log %s: %v", r.Message, r.Attrs)
	}
}
