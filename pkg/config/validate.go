package config

import (
	"fmt"
	"time"

	"github.com/DeBrosOfficial/wavechat/pkg/config/validate"
)

// ValidationError represents a single validation error with context.
type ValidationError = validate.ValidationError

// Validate performs comprehensive validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNode()...)
	errs = append(errs, validate.ValidateStore(validate.StoreConfig{
		Backend:    c.Store.Backend,
		SQLitePath: c.Store.SQLitePath,
		RQLiteURL:  c.Store.RQLiteURL,
		Namespace:  c.Store.Namespace,
	}, "store")...)
	errs = append(errs, c.validateKeyStore()...)
	errs = append(errs, validate.ValidateContent(validate.ContentConfig{
		Backend:           c.Content.Backend,
		ClusterAPIURL:     c.Content.ClusterAPIURL,
		IPFSAPIURL:        c.Content.IPFSAPIURL,
		Timeout:           c.Content.Timeout,
		ReplicationFactor: c.Content.ReplicationFactor,
		MaxSize:           c.Content.MaxSize,
	})...)
	errs = append(errs, validate.ValidateCache(validate.CacheConfig{
		Enabled:      c.Cache.Enabled,
		OlricServers: c.Cache.OlricServers,
		TTL:          c.Cache.TTL,
		DMap:         c.Cache.DMap,
	})...)
	errs = append(errs, validate.ValidateGateway(validate.GatewayConfig{
		ListenAddr:     c.Gateway.ListenAddr,
		RequestTimeout: c.Gateway.RequestTimeout,
		MaxBodyBytes:   c.Gateway.MaxBodyBytes,
		ChallengeTTL:   c.Gateway.ChallengeTTL,
		SessionTTL:     c.Gateway.SessionTTL,
	})...)
	errs = append(errs, validate.ValidateLogging(validate.LoggingConfig{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		OutputFile: c.Logging.OutputFile,
	})...)
	errs = append(errs, c.validateLedger()...)
	errs = append(errs, c.validateObservability()...)
	errs = append(errs, c.validateClient()...)
	errs = append(errs, c.validateCrossFields()...)

	return errs
}

func (c *Config) validateNode() []error {
	var errs []error
	if c.Node.Label == "" {
		errs = append(errs, ValidationError{Path: "node.label", Message: "must not be empty"})
	}
	if c.needsDataDir() {
		if err := validate.ValidateDataDir(c.Node.DataDir); err != nil {
			errs = append(errs, ValidationError{Path: "node.data_dir", Message: err.Error()})
		}
	}
	return errs
}

func (c *Config) validateKeyStore() []error {
	switch c.KeyStore.Backend {
	case "memory":
		return nil
	case "sqlite":
		if c.KeyStore.SQLitePath == "" {
			return []error{ValidationError{Path: "keystore.sqlite_path", Message: "required when backend is sqlite"}}
		}
		return nil
	default:
		return []error{ValidationError{
			Path:    "keystore.backend",
			Message: fmt.Sprintf("invalid value %q", c.KeyStore.Backend),
			Hint:    "allowed values: memory, sqlite (key pairs are never replicated)",
		}}
	}
}

func (c *Config) validateLedger() []error {
	if c.Ledger.DefaultPageSize == 0 || c.Ledger.DefaultPageSize > 1000 {
		return []error{ValidationError{
			Path:    "ledger.default_page_size",
			Message: fmt.Sprintf("must be between 1 and 1000; got %d", c.Ledger.DefaultPageSize),
		}}
	}
	return nil
}

func (c *Config) validateObservability() []error {
	o := c.Observability
	if !o.Enabled {
		return nil
	}
	var errs []error
	if o.ServiceName == "" {
		errs = append(errs, ValidationError{Path: "observability.service_name", Message: "must not be empty"})
	}
	if err := validate.ValidateHostPort(o.OTLPEndpoint); err != nil {
		errs = append(errs, ValidationError{
			Path:    "observability.otlp_endpoint",
			Message: err.Error(),
			Hint:    "host:port without scheme, e.g. localhost:4318",
		})
	}
	if o.SamplingRate < 0 || o.SamplingRate > 1 {
		errs = append(errs, ValidationError{
			Path:    "observability.sampling_rate",
			Message: fmt.Sprintf("must be between 0 and 1; got %v", o.SamplingRate),
		})
	}
	return errs
}

func (c *Config) validateClient() []error {
	var errs []error
	if err := validate.ValidateHTTPURL(c.Client.GatewayURL); err != nil {
		errs = append(errs, ValidationError{Path: "client.gateway_url", Message: err.Error()})
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, ValidationError{
			Path:    "client.timeout",
			Message: fmt.Sprintf("must be > 0; got %v", c.Client.Timeout),
		})
	}
	if c.Client.PollInterval < time.Second {
		errs = append(errs, ValidationError{
			Path:    "client.poll_interval",
			Message: fmt.Sprintf("must be >= 1s; got %v", c.Client.PollInterval),
		})
	}
	return errs
}

func (c *Config) validateCrossFields() []error {
	var errs []error
	if c.Cache.Enabled && c.Content.Backend == "memory" {
		errs = append(errs, ValidationError{
			Path:    "cache.enabled",
			Message: "caching an in-memory content store has no effect",
			Hint:    "set content.backend: ipfs or disable the cache",
		})
	}
	if c.Store.Backend == "sqlite" && c.KeyStore.Backend == "sqlite" &&
		c.Store.SQLitePath != "" && c.Store.SQLitePath == c.KeyStore.SQLitePath {
		errs = append(errs, ValidationError{
			Path:    "keystore.sqlite_path",
			Message: "must differ from store.sqlite_path",
			Hint:    "secret keys must not share a file with ledger data",
		})
	}
	return errs
}

func (c *Config) needsDataDir() bool {
	return c.Store.Backend == "sqlite" || c.KeyStore.Backend == "sqlite"
}
