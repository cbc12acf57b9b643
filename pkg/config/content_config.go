package config

import "time"

// ContentConfig selects where envelope sets and attachments are stored
type ContentConfig struct {
	Backend           string        `yaml:"backend"`              // memory, ipfs
	ClusterAPIURL     string        `yaml:"ipfs_cluster_api_url"` // IPFS Cluster API URL
	IPFSAPIURL        string        `yaml:"ipfs_api_url"`         // IPFS API URL used for reads
	Timeout           time.Duration `yaml:"timeout"`              // Timeout for IPFS operations
	ReplicationFactor int           `yaml:"replication_factor"`   // 0 skips the explicit pin
	MaxSize           int64         `yaml:"max_size"`             // largest payload read back, in bytes
}

// CacheConfig configures the Olric read-through cache in front of the content store
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	OlricServers []string      `yaml:"olric_servers"` // List of Olric server addresses
	TTL          time.Duration `yaml:"ttl"`           // 0 keeps entries until evicted
	DMap         string        `yaml:"dmap"`
}
