package config

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// decodeInto overlays the YAML document from r onto cfg. Keys that do not map
// to a Config field are errors, so a typo like "backnd" fails loudly instead of
// leaving the default in place. An empty document keeps every default.
func decodeInto(r io.Reader, source string, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid config %s: %w", source, err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config %s: expected a single YAML document", source)
	}
	return nil
}
