package observe

import "errors"

var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")

	// ErrNilObserver is returned by MiddlewareFromObserver(nil).
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrMissingOperationName is returned when a wrapped call has no
	// operation name to label its span and metrics with.
	ErrMissingOperationName = errors.New("observe: operation name is required")
)

// Sampling bounds for TracingConfig.SamplePct.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// Accepted names per section. The empty string means "none".
var (
	ValidTracingExporters = []string{"otlp", "jaeger", "stdout", "none", ""}
	ValidMetricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}
	ValidLogLevels        = []string{"debug", "info", "warn", "error", ""}
)

// RedactedFields are log field keys whose values never reach the output.
// Message bodies count as sensitive alongside credentials; the guard logs
// rule names and lengths instead.
var RedactedFields = []string{
	"text",
	"msg_text",
	"message_text",
	"params",
	"authorization",
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"jwt_secret",
}
