// Package config defines the versioned analyzer configuration.
package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"arcsight/cas"
	"arcsight/graph"
	"arcsight/schema"
)

// CurrentVersion is the config schema version this build understands.
const CurrentVersion = 2

// Static analysis limits. The cycle-length bound mirrors the detector's
// hard bound and exists in config only so envelopes can record it.
const (
	DefaultMaxCycleLength = 5
	DefaultTimeoutSeconds = 7
)

// AnalyzerConfig is the static, versioned configuration of one analysis.
// It must be identical for live and shadow invocations; there is no
// per-request merging.
type AnalyzerConfig struct {
	Version        int               `yaml:"version" json:"version"`
	Aliases        []graph.AliasRule `yaml:"aliases" json:"aliases"`
	ManifestGlobs  []string          `yaml:"manifest_globs" json:"manifest_globs"`
	MaxCycleLength int               `yaml:"max_cycle_length" json:"max_cycle_length"`
	TimeoutSeconds int               `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Default returns the configuration used when no file is given.
func Default() AnalyzerConfig {
	return AnalyzerConfig{
		Version:        CurrentVersion,
		Aliases:        []graph.AliasRule{},
		ManifestGlobs:  []string{"package.json"},
		MaxCycleLength: DefaultMaxCycleLength,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
}

// Load parses a YAML config document. Older versions are upgraded through
// the schema adapter before decoding; an upgrade gap or a version newer
// than this build fails.
func Load(data []byte) (AnalyzerConfig, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return AnalyzerConfig{}, fmt.Errorf("config: parsing: %w", err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	version := CurrentVersion
	if v, ok := raw["version"]; ok {
		n, ok := asInt(v)
		if !ok {
			return AnalyzerConfig{}, fmt.Errorf("config: invalid version %v", v)
		}
		version = n
	}
	if version > CurrentVersion {
		return AnalyzerConfig{}, fmt.Errorf("config: version %d is newer than supported %d", version, CurrentVersion)
	}

	upgraded, err := schema.Default().Upgrade(schema.KindConfig, raw, version, CurrentVersion)
	if err != nil {
		return AnalyzerConfig{}, err
	}

	cfg := Default()
	if err := decode(upgraded, &cfg); err != nil {
		return AnalyzerConfig{}, fmt.Errorf("config: decoding: %w", err)
	}
	cfg.Version = CurrentVersion

	if cfg.MaxCycleLength <= 0 {
		cfg.MaxCycleLength = DefaultMaxCycleLength
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}

	return cfg, nil
}

// Hash returns the BLAKE3 digest of the canonical JSON form. This is the
// config identity recorded in every envelope.
func (c AnalyzerConfig) Hash() (string, error) {
	data, err := cas.CanonicalJSON(c)
	if err != nil {
		return "", err
	}
	return cas.Blake3HashHex(data), nil
}

func decode(obj map[string]interface{}, cfg *AnalyzerConfig) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
