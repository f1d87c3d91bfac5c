package pipeline

import (
	"log/slog"

	"github.com/ProjectAlita/indexpipe/chunking"
	"github.com/ProjectAlita/indexpipe/source"
)

// Options contains pipeline-level configuration.
type Options struct {
	// Workers bounds the worker pool for the document-parallel stages.
	Workers int
	// Logger receives structured run diagnostics.
	Logger *slog.Logger
	// Sanitizer strips sensitive metadata before persistence.
	Sanitizer *Sanitizer
	// Dependencies loads attached documents for surviving bases. Optional.
	Dependencies source.DependencyLoader
	// LockDir enables a cross-process advisory file lock per collection.
	// Empty means in-process locking only.
	LockDir string
}

const defaultWorkers = 4

func defaultOptions() *Options {
	return &Options{
		Workers:   defaultWorkers,
		Logger:    slog.Default(),
		Sanitizer: NewSanitizer(),
	}
}

// Option is a function type to modify Options
type Option func(*Options)

// WithWorkers bounds the worker pool for content resolution and chunking
func WithWorkers(workers int) Option {
	return func(o *Options) {
		if workers > 0 {
			o.Workers = workers
		}
	}
}

// WithLogger sets the structured logger for run diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithSanitizer replaces the default metadata sanitizer
func WithSanitizer(s *Sanitizer) Option {
	return func(o *Options) {
		if s != nil {
			o.Sanitizer = s
		}
	}
}

// WithDependencyLoader sets the loader for attached documents
func WithDependencyLoader(deps source.DependencyLoader) Option {
	return func(o *Options) {
		o.Dependencies = deps
	}
}

// WithLockDir enables cross-process advisory locking using lock files in dir
func WithLockDir(dir string) Option {
	return func(o *Options) {
		o.LockDir = dir
	}
}

// RunOptions contains per-run configuration.
type RunOptions struct {
	// ProgressStep emits a progress event every N percent of chunks saved.
	// 0 disables reporting.
	ProgressStep int
	// CleanIndex discards the collection's prior contents before loading.
	CleanIndex bool
	// ChunkingTool names the splitting algorithm. Unknown names are a
	// configuration error surfaced before any document is processed.
	ChunkingTool string
	// ChunkingConfig maps content-type tags to splitting settings.
	ChunkingConfig chunking.ConfigMap
	// ExtraParams is passed through opaquely to the source loader.
	ExtraParams map[string]interface{}
	// OnProgress receives progress events. A slow consumer never blocks the
	// run; excess events are dropped.
	OnProgress ProgressFunc
}

const defaultProgressStep = 10

func defaultRunOptions() *RunOptions {
	return &RunOptions{
		ProgressStep: defaultProgressStep,
		ChunkingTool: chunking.ToolCharacter,
	}
}

// RunOption is a function type to modify RunOptions
type RunOption func(*RunOptions)

// WithProgressStep sets the progress reporting granularity in percent (0 disables)
func WithProgressStep(step int) RunOption {
	return func(o *RunOptions) {
		o.ProgressStep = step
	}
}

// WithCleanIndex discards the collection's prior contents before loading
func WithCleanIndex(clean bool) RunOption {
	return func(o *RunOptions) {
		o.CleanIndex = clean
	}
}

// WithChunkingTool selects the splitting algorithm by registry name
func WithChunkingTool(tool string) RunOption {
	return func(o *RunOptions) {
		o.ChunkingTool = tool
	}
}

// WithChunkingConfig sets per-content-type splitting settings
func WithChunkingConfig(configs chunking.ConfigMap) RunOption {
	return func(o *RunOptions) {
		o.ChunkingConfig = configs
	}
}

// WithExtraParams passes toolkit-specific parameters through to the loader
func WithExtraParams(extra map[string]interface{}) RunOption {
	return func(o *RunOptions) {
		o.ExtraParams = extra
	}
}

// WithProgress sets the progress event consumer
func WithProgress(fn ProgressFunc) RunOption {
	return func(o *RunOptions) {
		o.OnProgress = fn
	}
}
