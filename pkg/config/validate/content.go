package validate

import (
	"fmt"
	"time"
)

// ContentConfig represents the content store configuration for validation purposes.
type ContentConfig struct {
	Backend           string
	ClusterAPIURL     string
	IPFSAPIURL        string
	Timeout           time.Duration
	ReplicationFactor int
	MaxSize           int64
}

// CacheConfig represents the blob cache configuration for validation purposes.
type CacheConfig struct {
	Enabled      bool
	OlricServers []string
	TTL          time.Duration
	DMap         string
}

// ValidateContent performs validation of the content store configuration.
func ValidateContent(cc ContentConfig) []error {
	var errs []error

	switch cc.Backend {
	case "memory":
	case "ipfs":
		urls := []struct{ path, raw string }{
			{"content.ipfs_cluster_api_url", cc.ClusterAPIURL},
			{"content.ipfs_api_url", cc.IPFSAPIURL},
		}
		for _, u := range urls {
			if u.raw == "" {
				errs = append(errs, ValidationError{Path: u.path, Message: "required when backend is ipfs"})
			} else if err := ValidateHTTPURL(u.raw); err != nil {
				errs = append(errs, ValidationError{Path: u.path, Message: err.Error()})
			}
		}
	default:
		errs = append(errs, ValidationError{
			Path:    "content.backend",
			Message: fmt.Sprintf("invalid value %q", cc.Backend),
			Hint:    "allowed values: memory, ipfs",
		})
	}

	if cc.Timeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "content.timeout",
			Message: fmt.Sprintf("must be >= 0; got %v", cc.Timeout),
		})
	}
	if cc.ReplicationFactor < 0 {
		errs = append(errs, ValidationError{
			Path:    "content.replication_factor",
			Message: fmt.Sprintf("must be >= 0; got %d", cc.ReplicationFactor),
			Hint:    "0 leaves pinning to the cluster defaults",
		})
	}
	if cc.MaxSize <= 0 {
		errs = append(errs, ValidationError{
			Path:    "content.max_size",
			Message: fmt.Sprintf("must be > 0; got %d", cc.MaxSize),
		})
	}

	return errs
}

// ValidateCache performs validation of the blob cache configuration.
func ValidateCache(cc CacheConfig) []error {
	if !cc.Enabled {
		return nil
	}
	var errs []error

	if len(cc.OlricServers) == 0 {
		errs = append(errs, ValidationError{
			Path:    "cache.olric_servers",
			Message: "must not be empty when the cache is enabled",
			Hint:    "e.g. [\"localhost:3320\"]",
		})
	}
	for i, s := range cc.OlricServers {
		if err := ValidateHostPort(s); err != nil {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("cache.olric_servers[%d]", i),
				Message: err.Error(),
			})
		}
	}
	if cc.TTL < 0 {
		errs = append(errs, ValidationError{
			Path:    "cache.ttl",
			Message: fmt.Sprintf("must be >= 0; got %v", cc.TTL),
		})
	}
	if cc.DMap == "" {
		errs = append(errs, ValidationError{
			Path:    "cache.dmap",
			Message: "must not be empty",
		})
	}

	return errs
}
