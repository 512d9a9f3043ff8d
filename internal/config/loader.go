package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the YAML file at path, expands environment variables, applies
// defaults and returns the result. An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := decode(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// decode expands variables in raw and unmarshals it strictly: unknown keys
// are errors.
func decode(raw []byte, cfg *Config) error {
	expanded, err := expandEnv(raw)
	if err != nil {
		return fmt.Errorf("expanding variables: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing: %w", err)
	}
	return nil
}

// expandEnv replaces ${VAR} and ${VAR:-default}. Variables that are unset
// and have no default are reported together.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	out := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if subs[2] != nil {
			return subs[2]
		}
		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return out, errors.Join(errs...)
}
