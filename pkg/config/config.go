package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the configuration of a chatd node
type Config struct {
	Node          NodeConfig          `yaml:"node"`
	Store         StoreConfig         `yaml:"store"`
	KeyStore      KeyStoreConfig      `yaml:"keystore"`
	Content       ContentConfig       `yaml:"content"`
	Cache         CacheConfig         `yaml:"cache"`
	Gateway       GatewayConfig       `yaml:"gateway"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
	Client        ClientConfig        `yaml:"client"`
}

// NodeConfig contains node-specific configuration
type NodeConfig struct {
	Label   string `yaml:"label"`    // Ledger label written at bootstrap
	DataDir string `yaml:"data_dir"` // Base directory for local state
}

// LedgerConfig contains ledger tuning
type LedgerConfig struct {
	DefaultPageSize uint32 `yaml:"default_page_size"` // fetch limit used when the caller passes 0
}

// DefaultConfig returns a configuration that runs entirely in memory on :8080.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			Label:   "WaveChat",
			DataDir: "./data",
		},
		Store: StoreConfig{
			Backend:   "memory",
			Namespace: "wavechat",
		},
		KeyStore: KeyStoreConfig{
			Backend: "memory",
		},
		Content: ContentConfig{
			Backend:           "memory",
			ClusterAPIURL:     "http://localhost:9094",
			IPFSAPIURL:        "http://localhost:5001",
			Timeout:           60 * time.Second,
			ReplicationFactor: 0,
			MaxSize:           32 << 20,
		},
		Cache: CacheConfig{
			Enabled:      false,
			OlricServers: []string{"localhost:3320"},
			TTL:          time.Hour,
			DMap:         "wavechat_content",
		},
		Gateway: GatewayConfig{
			ListenAddr:     ":8080",
			RequestTimeout: 30 * time.Second,
			MaxBodyBytes:   32 << 20,
			ChallengeTTL:   5 * time.Minute,
			SessionTTL:     24 * time.Hour,
		},
		Ledger: LedgerConfig{
			DefaultPageSize: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Observability: ObservabilityConfig{
			Enabled:      false,
			ServiceName:  "chatd",
			OTLPEndpoint: "localhost:4318",
			SamplingRate: 1.0,
		},
		Client: ClientConfig{
			GatewayURL:   "http://localhost:8080",
			Timeout:      30 * time.Second,
			PollInterval: 7 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := decodeInto(f, path, cfg); err != nil {
		return nil, err
	}
	cfg.resolvePaths()
	return cfg, nil
}

// resolvePaths places relative sqlite paths under node.data_dir.
func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.Store.SQLitePath, &c.KeyStore.SQLitePath} {
		if *p != "" && !filepath.IsAbs(*p) && c.Node.DataDir != "" {
			*p = filepath.Join(c.Node.DataDir, *p)
		}
	}
}
