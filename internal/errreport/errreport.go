// Package errreport defines the diagnostics collaborator handed OCR and
// parse failures. The core works fine without one.
package errreport

import "log/slog"

// Reporter receives failure descriptions for diagnostics. Implementations
// must be safe for concurrent use.
type Reporter interface {
	Report(errType, message string, context map[string]string)
}

// LogReporter writes reports to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a Reporter backed by the given logger.
func NewLogReporter(l *slog.Logger) *LogReporter {
	if l == nil {
		l = slog.Default()
	}
	return &LogReporter{logger: l}
}

// Report logs the failure with its context as attributes.
func (r *LogReporter) Report(errType, message string, context map[string]string) {
	attrs := make([]any, 0, 2+2*len(context))
	attrs = append(attrs, slog.String("error_type", errType), slog.String("message", message))
	for k, v := range context {
		attrs = append(attrs, slog.String(k, v))
	}
	r.logger.Error("failure reported", attrs...)
}
