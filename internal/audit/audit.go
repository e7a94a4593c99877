// Package audit records security relevant events of the translator service:
// which substitution table is active, and which ciphertexts were shared and
// fetched. Texts themselves are never written to the audit log.
package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents the type of audit event
type EventType string

const (
	EventMappingLoaded    EventType = "mapping_loaded"
	EventMappingRejected  EventType = "mapping_rejected"
	EventShareCreated     EventType = "share_created"
	EventShareResolved    EventType = "share_resolved"
	EventShareMissed      EventType = "share_missed"
	EventRequestProcessed EventType = "request_processed"
	EventLiveOpened       EventType = "live_session_opened"
	EventLiveClosed       EventType = "live_session_closed"
	EventClipboardFailed  EventType = "clipboard_failed"
	EventStorageError     EventType = "storage_error"
)

// Event represents an audit log event
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	RequestID string            `json:"request_id,omitempty"`
	Source    string            `json:"source,omitempty"`
	ShareID   string            `json:"share_id,omitempty"`
	Method    string            `json:"method,omitempty"`
	Path      string            `json:"path,omitempty"`
	Status    int               `json:"status,omitempty"`
	Count     int               `json:"count,omitempty"`
	Duration  float64           `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Auditor is implemented by Logger and NopLogger
type Auditor interface {
	Log(event *Event)
	LogMappingLoaded(source string, entries int)
	LogMappingRejected(source, reason string)
	LogShareCreated(requestID, shareID string, reused bool)
	LogShareResolved(requestID, shareID string)
	LogShareMissed(requestID, shareID string)
	LogRequestProcessed(requestID, method, path string, status int, durationMs float64)
	LogLiveSession(requestID string, opened bool, messages int)
	LogError(eventType EventType, requestID, errorMsg string)
	Close() error
}

// Config holds audit logger configuration
type Config struct {
	// Enabled enables/disables audit logging
	Enabled bool `yaml:"enabled"`

	// Level controls what events are logged
	// "minimal" - only mapping and share creation events
	// "standard" - everything except per-request and live session events
	// "verbose" - all events
	Level string `yaml:"level"`

	// Output specifies where to write logs
	// "stdout", "stderr", or a file path
	Output string `yaml:"output"`

	// IncludeRequestDetails includes the request path in logs
	IncludeRequestDetails bool `yaml:"include_request_details"`
}

// DefaultConfig returns the default audit configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:               true,
		Level:                 "standard",
		Output:                "stdout",
		IncludeRequestDetails: false,
	}
}

// Logger handles audit logging
type Logger struct {
	mu      sync.RWMutex
	config  *Config
	logger  zerolog.Logger
	output  io.Writer
	enabled bool
}

// NewLogger creates a new audit logger
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Logger{
		config:  cfg,
		enabled: cfg.Enabled,
	}

	if err := l.setupOutput(); err != nil {
		return nil, err
	}

	return l, nil
}

// NewWriterLogger creates an audit logger writing to w
func NewWriterLogger(cfg *Config, w io.Writer) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Logger{
		config:  cfg,
		enabled: cfg.Enabled,
		output:  w,
		logger:  zerolog.New(w).With().Timestamp().Logger(),
	}
}

func (l *Logger) setupOutput() error {
	var output io.Writer

	switch l.config.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		// File output
		f, err := os.OpenFile(l.config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}
		output = f
	}

	l.output = output
	l.logger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}

// Log logs an audit event
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.enabled
	includeDetails := l.config.IncludeRequestDetails
	level := l.config.Level
	logger := l.logger
	l.mu.RUnlock()

	if !enabled || !shouldLog(level, event.Type) {
		return
	}

	event.Timestamp = time.Now()

	// Redact request details if not enabled
	if !includeDetails {
		event.Path = ""
	}

	e := logger.Info().Str("type", string(event.Type))

	if event.RequestID != "" {
		e = e.Str("request_id", event.RequestID)
	}
	if event.Source != "" {
		e = e.Str("source", event.Source)
	}
	if event.ShareID != "" {
		e = e.Str("share_id", event.ShareID)
	}
	if event.Method != "" {
		e = e.Str("method", event.Method)
	}
	if event.Path != "" {
		e = e.Str("path", event.Path)
	}
	if event.Status > 0 {
		e = e.Int("status", event.Status)
	}
	if event.Count > 0 {
		e = e.Int("count", event.Count)
	}
	if event.Duration > 0 {
		e = e.Float64("duration_ms", event.Duration)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	for k, v := range event.Metadata {
		e = e.Str(k, v)
	}

	e.Msg("audit")
}

func shouldLog(level string, eventType EventType) bool {
	switch level {
	case "minimal":
		return eventType == EventMappingLoaded ||
			eventType == EventMappingRejected ||
			eventType == EventShareCreated
	case "standard":
		return eventType != EventRequestProcessed &&
			eventType != EventLiveOpened &&
			eventType != EventLiveClosed
	default:
		return true
	}
}

// LogMappingLoaded logs the substitution table taking effect
func (l *Logger) LogMappingLoaded(source string, entries int) {
	l.Log(&Event{
		Type:   EventMappingLoaded,
		Source: source,
		Count:  entries,
	})
}

// LogMappingRejected logs a substitution table failing validation
func (l *Logger) LogMappingRejected(source, reason string) {
	l.Log(&Event{
		Type:   EventMappingRejected,
		Source: source,
		Error:  reason,
	})
}

// LogShareCreated logs a stored ciphertext
func (l *Logger) LogShareCreated(requestID, shareID string, reused bool) {
	event := &Event{
		Type:      EventShareCreated,
		RequestID: requestID,
		ShareID:   shareID,
	}
	if reused {
		event.Metadata = map[string]string{"reused": "true"}
	}
	l.Log(event)
}

// LogShareResolved logs a successful share lookup
func (l *Logger) LogShareResolved(requestID, shareID string) {
	l.Log(&Event{
		Type:      EventShareResolved,
		RequestID: requestID,
		ShareID:   shareID,
	})
}

// LogShareMissed logs a lookup of an unknown or expired share
func (l *Logger) LogShareMissed(requestID, shareID string) {
	l.Log(&Event{
		Type:      EventShareMissed,
		RequestID: requestID,
		ShareID:   shareID,
	})
}

// LogRequestProcessed logs request processing
func (l *Logger) LogRequestProcessed(requestID, method, path string, status int, durationMs float64) {
	l.Log(&Event{
		Type:      EventRequestProcessed,
		RequestID: requestID,
		Method:    method,
		Path:      path,
		Status:    status,
		Duration:  durationMs,
	})
}

// LogLiveSession logs a live translator connection opening or closing
func (l *Logger) LogLiveSession(requestID string, opened bool, messages int) {
	eventType := EventLiveClosed
	if opened {
		eventType = EventLiveOpened
	}
	l.Log(&Event{
		Type:      eventType,
		RequestID: requestID,
		Count:     messages,
	})
}

// LogError logs an error event
func (l *Logger) LogError(eventType EventType, requestID, errorMsg string) {
	l.Log(&Event{
		Type:      eventType,
		RequestID: requestID,
		Error:     errorMsg,
	})
}

// Enable enables audit logging
func (l *Logger) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
}

// Disable disables audit logging
func (l *Logger) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

// Close closes the logger
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if closer, ok := l.output.(io.Closer); ok {
		if l.output != os.Stdout && l.output != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// ToJSON converts an event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NopLogger is a logger that does nothing
type NopLogger struct{}

// NewNopLogger creates a no-op logger
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (l *NopLogger) Log(_ *Event) {}
func (l *NopLogger) LogMappingLoaded(_ string, _ int) {}
func (l *NopLogger) LogMappingRejected(_, _ string) {}
func (l *NopLogger) LogShareCreated(_, _ string, _ bool) {}
func (l *NopLogger) LogShareResolved(_, _ string) {}
func (l *NopLogger) LogShareMissed(_, _ string) {}
func (l *NopLogger) LogRequestProcessed(_, _, _ string, _ int, _ float64) {}
func (l *NopLogger) LogLiveSession(_ string, _ bool, _ int) {}
func (l *NopLogger) LogError(_ EventType, _, _ string) {}
func (l *NopLogger) Close() error { return nil }
