package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDir returns the path to the wavechat config directory (~/.wavechat).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".wavechat"), nil
}

// DefaultPath returns the path to the config file for the given component name.
// If component is already an absolute path, it returns it as-is.
func DefaultPath(component string) (string, error) {
	if filepath.IsAbs(component) {
		return component, nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, component), nil
}
