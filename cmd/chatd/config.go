package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/config"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// parseConfig resolves the config file from flags and the environment.
// Priority: flags > env > ~/.wavechat/chatd.yaml > built-in defaults.
func parseConfig(args []string) (*config.Config, string, error) {
	fs := flag.NewFlagSet("chatd", flag.ContinueOnError)
	path := fs.String("config", getEnvDefault("CHATD_CONFIG", ""), "Path to the YAML config file")
	addr := fs.String("addr", "", "HTTP listen address, overrides gateway.listen_addr")
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}

	source := *path
	if source == "" {
		if p, err := config.DefaultPath("chatd.yaml"); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				source = p
			}
		}
	}

	var cfg *config.Config
	if source == "" {
		cfg = config.DefaultConfig()
		source = "defaults"
	} else {
		loaded, err := config.Load(source)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}

	if a := strings.TrimSpace(*addr); a != "" {
		cfg.Gateway.ListenAddr = a
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, "", fmt.Errorf("invalid configuration (%s): %w", source, errors.Join(errs...))
	}
	return cfg, source, nil
}

// setupLogger builds the process logger from the logging section.
func setupLogger(cfg config.LoggingConfig) (*logging.ColoredLogger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	json := cfg.Format == "json"
	return logging.New(logging.Options{
		Level:        level,
		JSON:         json,
		EnableColors: !json && cfg.OutputFile == "",
		FilePath:     cfg.OutputFile,
	})
}

func logConfig(logger *logging.ColoredLogger, cfg *config.Config, source string) {
	logger.ComponentInfo(logging.ComponentGeneral, "Loaded chatd configuration",
		zap.String("source", source),
		zap.String("label", cfg.Node.Label),
		zap.String("listen_addr", cfg.Gateway.ListenAddr),
		zap.String("store", cfg.Store.Backend),
		zap.String("keystore", cfg.KeyStore.Backend),
		zap.String("content", cfg.Content.Backend),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("observability", cfg.Observability.Enabled),
	)
}
