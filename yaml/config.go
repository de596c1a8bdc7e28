// Package yaml loads unfurl configuration files.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/unfurl"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads the YAML file at path over unfurl.DefaultConfig. Keys
// absent from the file keep their defaults; unknown keys are rejected.
func LoadConfig(path string) (unfurl.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return unfurl.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML data over unfurl.DefaultConfig and validates the
// result.
func ParseConfig(data []byte) (unfurl.Config, error) {
	cfg := unfurl.DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return unfurl.Config{}, unfurl.Errorf(unfurl.EINVALID, "invalid config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return unfurl.Config{}, err
	}
	return cfg, nil
}
