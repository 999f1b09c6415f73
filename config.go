package cablekit

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigLookup resolves named configuration values, mirroring the document-meta
// lookup ("action-cable-<name>") the original browser client reads from the DOM.
// This module never talks to a DOM; it is the typed seam an embedding application
// plugs a real meta-tag reader, env lookup, or file-backed map into.
type ConfigLookup interface {
	Get(ctx context.Context, name string) (string, bool)
}

// MetaConfig is a static, in-memory ConfigLookup, useful for tests and for
// applications that resolve their own config before constructing a Consumer.
type MetaConfig map[string]string

func (m MetaConfig) Get(_ context.Context, name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// DefaultMountPath is the mount path for when no "url" config entry is
// present. Nothing in this package reads it; cable.Consumer falls back to
// cable.DefaultMountPath, which has the same value.
const DefaultMountPath = "/cable"

// yamlConfigFile is the shape expected by LoadYAMLConfig.
type yamlConfigFile struct {
	ActionCable map[string]string `yaml:"action_cable"`
}

// LoadYAMLConfig reads a YAML file shaped like:
//
//	action_cable:
//	  url: wss://example.com/cable
//
// and returns a ConfigLookup backed by its contents. This is an alternative to
// MetaConfig for deployments that keep client config in a file rather than in
// the process environment or a DOM meta tag.
func LoadYAMLConfig(path string) (MetaConfig, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}

	var parsed yamlConfigFile
	if err := yaml.Unmarshal(bts, &parsed); err != nil {
		return nil, errors.Wrap(err, "cannot parse config file")
	}

	cfg := make(MetaConfig, len(parsed.ActionCable))
	for k, v := range parsed.ActionCable {
		cfg[k] = v
	}
	return cfg, nil
}
