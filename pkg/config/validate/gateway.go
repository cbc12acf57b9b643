package validate

import (
	"fmt"
	"time"
)

// GatewayConfig represents the HTTP gateway configuration for validation purposes.
type GatewayConfig struct {
	ListenAddr     string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	ChallengeTTL   time.Duration
	SessionTTL     time.Duration
}

// ValidateGateway performs validation of the gateway configuration.
func ValidateGateway(gc GatewayConfig) []error {
	var errs []error

	if err := ValidateListenAddr(gc.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Path:    "gateway.listen_addr",
			Message: err.Error(),
			Hint:    "e.g. :8080 or 127.0.0.1:8080",
		})
	}
	if gc.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{
			Path:    "gateway.request_timeout",
			Message: fmt.Sprintf("must be > 0; got %v", gc.RequestTimeout),
		})
	}
	if gc.MaxBodyBytes <= 0 {
		errs = append(errs, ValidationError{
			Path:    "gateway.max_body_bytes",
			Message: fmt.Sprintf("must be > 0; got %d", gc.MaxBodyBytes),
		})
	}
	if gc.ChallengeTTL < 10*time.Second {
		errs = append(errs, ValidationError{
			Path:    "gateway.challenge_ttl",
			Message: fmt.Sprintf("must be >= 10s; got %v", gc.ChallengeTTL),
			Hint:    "recommended: 5m",
		})
	}
	if gc.SessionTTL <= gc.ChallengeTTL {
		errs = append(errs, ValidationError{
			Path:    "gateway.session_ttl",
			Message: fmt.Sprintf("must be longer than gateway.challenge_ttl (%v)", gc.ChallengeTTL),
		})
	}

	return errs
}
