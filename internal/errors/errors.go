package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeAnalysis   ErrorType = "analysis"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewExtractionError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeExtraction, code, message, cause)
}

func NewAnalysisError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAnalysis, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Common error codes
const (
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable   = "FILE_NOT_READABLE"
	ErrCodeFileTooLarge      = "FILE_TOO_LARGE"
	ErrCodeInvalidFormat     = "INVALID_FORMAT"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeExtractionFailed  = "EXTRACTION_FAILED"
	ErrCodeEmptyDocument     = "EMPTY_DOCUMENT"
	ErrCodeInternal          = "INTERNAL"
)

// User-facing messages for the analysis failure kinds.
const (
	MsgUnsupportedFormat = "Upload a PDF or DOCX file."
	MsgExtractionFailed  = "The document could not be read. It may be corrupt, password-protected or empty."
	MsgEmptyDocument     = "No readable text was found. If this is a scanned PDF, run OCR or export a text-based PDF."
	MsgInternal          = "Internal error."
)

// NewUnsupportedFormatError reports a file that is neither PDF nor DOCX.
func NewUnsupportedFormatError(filename string) *AppError {
	return NewValidationError(ErrCodeUnsupportedFormat, MsgUnsupportedFormat, nil).
		WithContext("filename", filename)
}

// NewExtractionFailure reports an extractor that could not produce text.
func NewExtractionFailure(reason string, cause error) *AppError {
	return NewExtractionError(ErrCodeExtractionFailed, MsgExtractionFailed, cause).
		WithContext("reason", reason)
}

// NewEmptyDocumentError reports an extraction that produced no usable text.
func NewEmptyDocumentError(pages int) *AppError {
	return NewAnalysisError(ErrCodeEmptyDocument, MsgEmptyDocument, nil).
		WithContext("pages", pages)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsUnsupportedFormat(err error) bool { return HasCode(err, ErrCodeUnsupportedFormat) }
func IsExtractionFailure(err error) bool { return HasCode(err, ErrCodeExtractionFailed) }
func IsEmptyDocument(err error) bool     { return HasCode(err, ErrCodeEmptyDocument) }

// AsAppError unwraps err into an AppError, if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// Public returns the application error carried by err, or wraps err in an
// INTERNAL error whose message reveals nothing about the cause.
func Public(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return NewInternalError(ErrCodeInternal, MsgInternal, err)
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger writing JSON to stderr, so
// command output on stdout stays machine readable.
func NewLogger(level slog.Level) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a structured logger writing JSON to w.
func NewLoggerTo(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	return &Logger{logger: slog.New(slog.NewJSONHandler(w, opts))}
}

// NewNopLogger discards everything. Used by tests and library callers.
func NewNopLogger() *Logger {
	return NewLoggerTo(io.Discard, slog.LevelError)
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	if appErr, ok := AsAppError(err); ok {
		logArgs := []any{
			"error_type", appErr.Type,
			"error_code", appErr.Code,
			"error_message", appErr.Message,
		}
		if appErr.Cause != nil {
			logArgs = append(logArgs, "error_cause", appErr.Cause.Error())
		}
		for key, value := range appErr.Context {
			logArgs = append(logArgs, key, value)
		}
		logArgs = append(logArgs, args...)

		l.logger.Error(message, logArgs...)
		return
	}

	logArgs := append([]any{"error", err.Error()}, args...)
	l.logger.Error(message, logArgs...)
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

// With returns a logger that always includes the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// IntoContext returns a context carrying l.
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger carried by ctx, or fallback.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return fallback
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewLogger(slogLevel), nil
}

// ParseLevel maps a config log level to its slog value.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}
