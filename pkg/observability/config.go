// Package observability sets up OpenTelemetry tracing and metrics and the
// instruments the gateway and ledger report to.
package observability

import "time"

// Config holds the OTLP exporter settings.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	// OTLPEndpoint is host:port of an OTLP/HTTP collector.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	SamplingRate float64 // 0.0 - 1.0

	TraceBatchTimeout time.Duration
	MetricInterval    time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(serviceName string) Config {
	return Config{
		Enabled:           false,
		ServiceName:       serviceName,
		ServiceVersion:    "unknown",
		Environment:       "development",
		OTLPEndpoint:      "localhost:4318",
		SamplingRate:      1.0,
		TraceBatchTimeout: 5 * time.Second,
		MetricInterval:    15 * time.Second,
	}
}
