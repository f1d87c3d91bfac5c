package chunking

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultKey is the ConfigMap entry that supplies fallback settings for
// content types without an entry of their own.
const DefaultKey = "default"

// Config holds the splitting settings for one content type. Zero values mean
// "unset": an unset field inherits from the default entry, and ultimately
// from the chunking tool's built-in defaults.
type Config struct {
	// ChunkSize is the maximum chunk size in characters (character tool) or
	// tokens (token tool).
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the carry-over between consecutive chunks.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// Separator is the split boundary for the character tool.
	Separator string `yaml:"separator"`
	// Model selects the tokenizer encoding for the token tool.
	Model string `yaml:"model"`
}

// ConfigMap maps a content-type tag (".md", ".pdf") to its chunking settings.
// The DefaultKey entry, if present, supplies fallback values.
type ConfigMap map[string]Config

// merge overlays cfg onto base field by field. Set fields in cfg win, unset
// fields keep the base value.
func merge(base, cfg Config) Config {
	out := base
	if cfg.ChunkSize != 0 {
		out.ChunkSize = cfg.ChunkSize
	}
	if cfg.ChunkOverlap != 0 {
		out.ChunkOverlap = cfg.ChunkOverlap
	}
	if cfg.Separator != "" {
		out.Separator = cfg.Separator
	}
	if cfg.Model != "" {
		out.Model = cfg.Model
	}
	return out
}

// Resolve returns the effective config for a content type: the per-type entry
// overlaid field by field onto the default entry. A missing per-type entry
// resolves to the default entry alone; a missing default entry leaves unset
// fields to the chunking tool's built-in defaults.
func (m ConfigMap) Resolve(contentType string) Config {
	cfg := m[DefaultKey]
	if contentType == "" {
		return cfg
	}
	if override, ok := m[contentType]; ok {
		cfg = merge(cfg, override)
	}
	return cfg
}

// ParseConfig decodes a YAML chunking configuration keyed by content type.
func ParseConfig(data []byte) (ConfigMap, error) {
	var m ConfigMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ConfigError{
			Op:      "parse_config",
			Message: "malformed chunking config",
			Err:     err,
		}
	}
	return m, nil
}

// LoadConfigFile reads and decodes a YAML chunking configuration file.
func LoadConfigFile(path string) (ConfigMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Op:      "load_config_file",
			Message: "failed to read chunking config " + path,
			Err:     err,
		}
	}
	return ParseConfig(data)
}
