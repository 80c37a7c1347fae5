// Package logger provides structured JSON logging for the trust and
// content-safety core.
//
// Every log entry is a single JSON object written to stdout, carrying the
// fields the error surface requires for the ingress layer to translate
// failures into its own protocol: operation name, entity kind, table
// pattern, and severity (see internal/errs).
package logger

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	Debug Level = "DEBUG"
	Info  Level = "INFO"
	Warn  Level = "WARN"
	Error Level = "ERROR"
)

// Logger writes structured entries for a single named component.
type Logger struct {
	Component  string
	InstanceID string
}

// Entry is a single structured log line.
type Entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     Level                  `json:"level"`
	Component string                 `json:"component"`
	Instance  string                 `json:"instance_id"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// New creates a Logger for the named component.
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}
	return &Logger{Component: component, InstanceID: instanceID}
}

func (l *Logger) log(level Level, message string, fields map[string]interface{}) {
	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: l.Component,
		Instance:  l.InstanceID,
		Message:   message,
		Fields:    fields,
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		log.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}
	log.New(os.Stdout, "", 0).Println(string(payload))
}

// Debug logs a debug-level message.
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(Debug, message, fields)
}

// Info logs an info-level message.
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(Info, message, fields)
}

// Warn logs a warning-level message.
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(Warn, message, fields)
}

// Error logs an error-level message.
func (l *Logger) Error(message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.log(Error, message, fields)
}

// WithDuration logs an info message carrying a duration_ms field, the way
// the core's repository span warns on slow operations.
func (l *Logger) WithDuration(message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.log(Info, message, fields)
}
