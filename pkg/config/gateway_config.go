package config

import "time"

// GatewayConfig contains the HTTP API configuration
type GatewayConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`     // Address to listen on (e.g., ":8080")
	RequestTimeout time.Duration `yaml:"request_timeout"` // per-request deadline, not applied to websockets
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	ChallengeTTL   time.Duration `yaml:"challenge_ttl"` // lifetime of a wallet sign-in nonce
	SessionTTL     time.Duration `yaml:"session_ttl"`   // lifetime of a bearer token
}

// ObservabilityConfig contains OpenTelemetry export settings
type ObservabilityConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // host:port of an OTLP/HTTP collector
	SamplingRate float64 `yaml:"sampling_rate"` // 0.0 - 1.0
}
