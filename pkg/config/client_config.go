package config

import "time"

// ClientConfig is read by chatctl.
type ClientConfig struct {
	GatewayURL   string        `yaml:"gateway_url"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"` // chatctl watch
}
