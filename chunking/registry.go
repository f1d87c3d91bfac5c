package chunking

import (
	"sort"
	"strings"

	"github.com/ProjectAlita/indexpipe/document"
)

// Built-in tool names.
const (
	ToolCharacter = "character"
	ToolToken     = "token"
)

// Token tool defaults, applied when the resolved config leaves them unset.
const (
	defaultTokensPerChunk = 512
	defaultTokenOverlap   = 64
	defaultTokenModel     = "text-embedding-3-small"
)

// Factory builds a splitter for one document from its resolved config.
type Factory func(cfg Config) (document.Splitter, error)

// Registry maps chunking tool names to splitter factories. Tools are
// registered at startup and resolved once per run, so an unknown name is a
// configuration error raised before any document is processed.
type Registry struct {
	tools map[string]Factory
}

// NewRegistry returns a registry with the built-in character and token tools
// registered.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Factory)}
	r.Register(ToolCharacter, characterFactory)
	r.Register(ToolToken, tokenFactory)
	return r
}

// Register adds or replaces a tool factory.
func (r *Registry) Register(name string, factory Factory) {
	r.tools[name] = factory
}

// Get resolves a tool name. Unknown names return a *ConfigError.
func (r *Registry) Get(name string) (Factory, error) {
	if name == "" {
		name = ToolCharacter
	}
	factory, ok := r.tools[name]
	if !ok {
		return nil, &ConfigError{
			Op:      "get",
			Tool:    name,
			Message: "unknown chunking tool, registered: " + strings.Join(r.Names(), ", "),
		}
	}
	return factory, nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func characterFactory(cfg Config) (document.Splitter, error) {
	// NewCharacterSplitter applies its own defaults for unset fields.
	return document.NewCharacterSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separator), nil
}

func tokenFactory(cfg Config) (document.Splitter, error) {
	size := cfg.ChunkSize
	if size <= 0 {
		size = defaultTokensPerChunk
	}
	overlap := cfg.ChunkOverlap
	if overlap == 0 {
		overlap = defaultTokenOverlap
	}
	model := cfg.Model
	if model == "" {
		model = defaultTokenModel
	}

	splitter, err := document.NewTiktokenSplitter(size, overlap, model)
	if err != nil {
		return nil, &ConfigError{
			Op:      "build",
			Tool:    ToolToken,
			Message: "invalid token splitter config",
			Err:     err,
		}
	}
	return splitter, nil
}
