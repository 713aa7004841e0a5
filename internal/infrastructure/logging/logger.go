package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog for structured logging across the application.
// keeps things simple, no fancy abstractions.
type Logger struct {
	*slog.Logger
}

// New creates a new logger with JSON output for production use.
func New() *Logger {
	return NewWithLevel(slog.LevelInfo)
}

// NewWithLevel creates a logger with a specific log level.
func NewWithLevel(level slog.Level) *Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter creates a JSON logger writing to w.
// tests pass io.Discard to keep output quiet.
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError)
}

// ParseLevel maps a config string to a slog level.
// unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a logger tagged with a component name.
// useful for tracing which part of the system is logging.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.With("component", name),
	}
}

// SessionOpened logs a unit of work opening its session.
func (l *Logger) SessionOpened() {
	l.Debug("session opened")
}

// SessionClosed logs a unit of work releasing its session.
func (l *Logger) SessionClosed() {
	l.Debug("session closed")
}

// CleanupFailed logs a release failure that lost to an in-flight error.
// the primary error is what the caller sees, this is the only trace of the secondary one.
func (l *Logger) CleanupFailed(stage string, primary, secondary error) {
	l.Warn("cleanup failure discarded",
		"stage", stage,
		"primary_error", primary.Error(),
		"error", secondary.Error(),
	)
}

// TransactionCommitted logs a successful commit.
func (l *Logger) TransactionCommitted() {
	l.Debug("transaction committed")
}

// TransactionRolledBack logs a completed rollback and the failure that caused it.
func (l *Logger) TransactionRolledBack(cause error) {
	l.Debug("transaction rolled back",
		"cause", cause.Error(),
	)
}

// LifecycleViolation logs a protocol misuse detected by the unit of work facade.
func (l *Logger) LifecycleViolation(err error) {
	l.Warn("unit of work protocol violation",
		"error", err.Error(),
	)
}

// DatabaseConnected logs a successful database connection.
func (l *Logger) DatabaseConnected(host, database string) {
	l.Info("database connection established",
		"host", host,
		"database", database,
	)
}

// DatabaseConnectionFailed logs a failed database connection attempt.
func (l *Logger) DatabaseConnectionFailed(err error) {
	l.Error("database connection failed",
		"error", err.Error(),
	)
}

// MigrationStarted logs the beginning of a migration run.
func (l *Logger) MigrationStarted() {
	l.Info("starting database migrations")
}

// MigrationApplied logs a successfully applied migration.
func (l *Logger) MigrationApplied(version, name string) {
	l.Info("migration applied",
		"version", version,
		"name", name,
	)
}

// MigrationSkipped logs when a migration was already applied.
func (l *Logger) MigrationSkipped(version, name string) {
	l.Debug("migration already applied, skipping",
		"version", version,
		"name", name,
	)
}

// MigrationCompleted logs the successful completion of all migrations.
func (l *Logger) MigrationCompleted(count int) {
	l.Info("migrations completed",
		"applied_count", count,
	)
}

// MigrationFailed logs a migration failure.
func (l *Logger) MigrationFailed(version, name string, err error) {
	l.Error("migration failed",
		"version", version,
		"name", name,
		"error", err.Error(),
	)
}

// HealthCheckPassed logs a successful health check.
func (l *Logger) HealthCheckPassed() {
	l.Debug("database health check passed")
}

// HealthCheckFailed logs a failed health check.
func (l *Logger) HealthCheckFailed(err error) {
	l.Error("database health check failed",
		"error", err.Error(),
	)
}
