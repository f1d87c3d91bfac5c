package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ProjectAlita/indexpipe/chunking"
	"github.com/ProjectAlita/indexpipe/document"
	"github.com/ProjectAlita/indexpipe/embedding"
	"github.com/ProjectAlita/indexpipe/source"
	"github.com/ProjectAlita/indexpipe/vectorstore"
)

// MaxCollectionSuffixLen bounds the collection suffix: it is spliced into
// backend object names (table names, index names) by store adapters.
const MaxCollectionSuffixLen = 7

var collectionSuffixRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// Pipeline sequences the indexing stages for one source: clean, load, dedup,
// resolve, extend, chunk, sanitize, save. Collaborators are injected; the
// pipeline owns ordering, progress reporting, and per-collection exclusion.
type Pipeline struct {
	loader   source.Loader
	resolver source.ContentResolver
	registry *chunking.Registry
	vstore   *vectorstore.VectorStore
	opts     *Options
	locks    *collectionLocks
}

// New creates a Pipeline over the given collaborators.
func New(
	loader source.Loader,
	resolver source.ContentResolver,
	registry *chunking.Registry,
	store vectorstore.Store,
	embedder embedding.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if loader == nil {
		return nil, newConfigurationError("source loader is required", nil)
	}
	if resolver == nil {
		return nil, newConfigurationError("content resolver is required", nil)
	}
	if registry == nil {
		registry = chunking.NewRegistry()
	}
	if store == nil {
		return nil, newConfigurationError("vector store is required", nil)
	}
	if embedder == nil {
		return nil, newConfigurationError("embedder is required", nil)
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Pipeline{
		loader:   loader,
		resolver: resolver,
		registry: registry,
		vstore:   vectorstore.New(store, embedder),
		opts:     options,
		locks:    newCollectionLocks(options.LockDir),
	}, nil
}

// unit groups a surviving base document with its loaded dependents. When the
// base fails a stage, the whole unit is excluded from the save stage.
type unit struct {
	base     *document.Document
	deps     []*document.Document
	excluded bool
}

// Run executes one indexing run against the named collection and reports the
// outcome. Per-document failures are recorded in the Result without aborting
// the run; run-level failures return a *Error alongside the partial Result.
func (p *Pipeline) Run(ctx context.Context, collection string, opts ...RunOption) (*Result, error) {
	options := defaultRunOptions()
	for _, opt := range opts {
		opt(options)
	}

	if err := validateRun(collection, options); err != nil {
		return nil, err
	}

	// Resolve the chunking tool and validate every configured content type
	// eagerly: a bad tool name or malformed config fails the run before any
	// document-level work begins.
	factory, err := p.registry.Get(options.ChunkingTool)
	if err != nil {
		return nil, newConfigurationError("failed to resolve chunking tool", err)
	}
	for key := range options.ChunkingConfig {
		if _, err := factory(options.ChunkingConfig.Resolve(key)); err != nil {
			return nil, newConfigurationError(fmt.Sprintf("invalid chunking config for %q", key), err)
		}
	}

	release, err := p.locks.acquire(collection)
	if err != nil {
		return nil, newLockError(collection, err)
	}
	defer release()

	result := &Result{RunID: uuid.NewString(), Collection: collection}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	logger := p.opts.Logger.With(
		slog.String("run_id", result.RunID),
		slog.String("collection", collection),
	)

	emitter := newProgressEmitter(options.OnProgress)
	defer emitter.close()

	if err := p.vstore.EnsureCollection(ctx, collection, false); err != nil {
		return result, newInitError(collection, err)
	}

	// Stage 1: clean. Must complete before anything is loaded so old and new
	// data never coexist inconsistently.
	if options.CleanIndex {
		if err := p.vstore.DeleteAll(ctx, collection); err != nil {
			return result, newCleanError(collection, err)
		}
		result.Cleaned = true
		logger.Info("collection cleaned before load")
	}

	// Stage 2: load base documents. An empty or failed load is not fatal:
	// the run completes as a no-op.
	baseDocs, err := p.loader.LoadBase(ctx, source.WithExtra(options.ExtraParams))
	if err != nil {
		logger.Warn("base document load failed, completing as no-op",
			slog.String("error", err.Error()))
		baseDocs = nil
	}
	result.BaseSeen = len(baseDocs)
	if len(baseDocs) == 0 {
		logger.Info("no base documents to index")
		return result, nil
	}

	// Stage 3: deduplicate against the stored manifest. After a clean the
	// manifest is empty by construction.
	manifest := vectorstore.Manifest{}
	if !options.CleanIndex {
		manifest, err = p.vstore.Manifest(ctx, collection)
		if err != nil {
			return result, newManifestError(collection, err)
		}
	}
	survivors, skipped := Dedupe(baseDocs, manifest, logger)
	result.DuplicatesSkipped = skipped
	logger.Info("deduplication complete",
		slog.Int("survivors", len(survivors)),
		slog.Int("skipped", skipped))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(survivors) == 0 {
		return result, nil
	}

	// Stages 4-5: resolve content and load dependents, document-parallel.
	units := p.extend(ctx, survivors, result, logger)

	// Stages 6-7: chunk and sanitize, document-parallel.
	p.chunkAndSanitize(units, factory, options.ChunkingConfig, result)

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Stage 8: save.
	if err := p.save(ctx, collection, units, options, emitter, result, logger); err != nil {
		return result, err
	}

	logger.Info("run complete",
		slog.Int("chunks_written", result.ChunksWritten),
		slog.Int("failures", len(result.Failures)))
	return result, nil
}

func validateRun(collection string, options *RunOptions) error {
	if collection == "" || len(collection) > MaxCollectionSuffixLen {
		return newConfigurationError(
			fmt.Sprintf("collection suffix must be 1-%d characters, got %q", MaxCollectionSuffixLen, collection), nil)
	}
	if !collectionSuffixRe.MatchString(collection) {
		return newConfigurationError(
			fmt.Sprintf("collection suffix %q must match %s", collection, collectionSuffixRe.String()), nil)
	}
	if options.ProgressStep < 0 || options.ProgressStep > 100 {
		return newConfigurationError(
			fmt.Sprintf("progress step must be 0-100, got %d", options.ProgressStep), nil)
	}
	return nil
}

// extend runs content resolution for each surviving base, then loads and
// resolves its dependents. Resolution failures exclude only the failing
// document; dependency load failures are tolerated per base and recorded.
func (p *Pipeline) extend(ctx context.Context, survivors []document.Document, result *Result, logger *slog.Logger) []*unit {
	units := make([]*unit, len(survivors))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)

	for i := range survivors {
		i := i
		g.Go(func() error {
			base := &survivors[i]
			u := &unit{base: base}
			units[i] = u

			contentType, raw, err := p.resolver.ResolveContent(ctx, base)
			if err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, Failure{DocID: base.ID, Stage: StageResolve, Err: err})
				mu.Unlock()
				u.excluded = true
				return nil
			}
			base.ContentType = contentType
			base.RawContent = raw

			if p.opts.Dependencies == nil {
				return nil
			}

			deps, err := p.opts.Dependencies.LoadDependencies(ctx, base)
			if err != nil {
				logger.Warn("dependency load failed",
					slog.String("doc_id", base.ID),
					slog.String("error", err.Error()))
				mu.Lock()
				result.Failures = append(result.Failures, Failure{DocID: base.ID, Stage: StageDependencies, Err: err})
				mu.Unlock()
				return nil
			}

			for j := range deps {
				dep := &deps[j]
				dep.Kind = document.KindDependent
				if dep.ParentID == "" {
					dep.ParentID = base.ID
				}

				contentType, raw, err := p.resolver.ResolveContent(ctx, dep)
				if err != nil {
					mu.Lock()
					result.Failures = append(result.Failures, Failure{DocID: dep.ID, Stage: StageResolve, Err: err})
					mu.Unlock()
					continue
				}
				dep.ContentType = contentType
				dep.RawContent = raw

				u.deps = append(u.deps, dep)
				mu.Lock()
				result.DependentsLoaded++
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return units
}

// chunkAndSanitize splits each document's content per its resolved config and
// strips sensitive metadata from documents and chunks. A base chunking
// failure excludes the whole unit; a dependent failure excludes only that
// dependent.
func (p *Pipeline) chunkAndSanitize(units []*unit, factory chunking.Factory, configs chunking.ConfigMap, result *Result) {
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)

	for _, u := range units {
		if u == nil || u.excluded {
			continue
		}
		u := u
		g.Go(func() error {
			if err := p.chunkDocument(u.base, factory, configs); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, Failure{DocID: u.base.ID, Stage: StageChunk, Err: err})
				mu.Unlock()
				u.excluded = true
				return nil
			}

			kept := u.deps[:0]
			for _, dep := range u.deps {
				if err := p.chunkDocument(dep, factory, configs); err != nil {
					mu.Lock()
					result.Failures = append(result.Failures, Failure{DocID: dep.ID, Stage: StageChunk, Err: err})
					mu.Unlock()
					continue
				}
				kept = append(kept, dep)
			}
			u.deps = kept

			p.sanitizeDocument(u.base)
			for _, dep := range u.deps {
				p.sanitizeDocument(dep)
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (p *Pipeline) chunkDocument(doc *document.Document, factory chunking.Factory, configs chunking.ConfigMap) error {
	splitter, err := factory(configs.Resolve(doc.ContentType))
	if err != nil {
		return err
	}
	chunks, err := document.SplitIntoChunks(splitter, doc)
	if err != nil {
		return err
	}
	doc.Chunks = chunks
	return nil
}

func (p *Pipeline) sanitizeDocument(doc *document.Document) {
	doc.Metadata = p.opts.Sanitizer.Sanitize(doc.Metadata)
	for i := range doc.Chunks {
		doc.Chunks[i].Metadata = p.opts.Sanitizer.Sanitize(doc.Chunks[i].Metadata)
	}
}

// save upserts every surviving document's chunks. An empty final chunk set is
// a successful no-op and never deletes existing data. A write failure
// excludes only that document's records, is reported per document, and makes
// the run fail with the exact failed set; records already written stay
// written.
func (p *Pipeline) save(ctx context.Context, collection string, units []*unit, options *RunOptions, emitter *progressEmitter, result *Result, logger *slog.Logger) error {
	var docs []*document.Document
	for _, u := range units {
		if u == nil || u.excluded {
			continue
		}
		docs = append(docs, u.base)
		docs = append(docs, u.deps...)
	}

	total := 0
	for _, d := range docs {
		total += len(d.Chunks)
	}
	if total == 0 {
		logger.Info("no chunks to save")
		return nil
	}

	written := 0
	lastEmitted := 0
	var failed []string
	var saveErr error

	for _, d := range docs {
		if len(d.Chunks) == 0 {
			continue
		}

		records := make([]vectorstore.Document, len(d.Chunks))
		for i, chunk := range d.Chunks {
			meta := make(map[string]interface{}, len(chunk.Metadata)+3)
			for k, v := range chunk.Metadata {
				meta[k] = v
			}
			meta[vectorstore.MetadataDocID] = d.ID
			meta[vectorstore.MetadataUpdatedOn] = d.UpdatedOn
			if d.ParentID != "" {
				meta[vectorstore.MetadataParentID] = d.ParentID
			}
			records[i] = vectorstore.Document{
				ID:          uuid.NewString(),
				PageContent: chunk.Text,
				Metadata:    meta,
			}
		}

		// Incremental merge: drop the document's stale records before
		// writing the fresh ones. A cleaned collection has none.
		if !options.CleanIndex {
			if err := p.vstore.Delete(ctx, collection, vectorstore.Filter{vectorstore.MetadataDocID: d.ID}); err != nil {
				failed = append(failed, d.ID)
				saveErr = err
				result.Failures = append(result.Failures, Failure{DocID: d.ID, Stage: StageSave, Err: err})
				continue
			}
		}

		if err := p.vstore.Upsert(ctx, collection, records); err != nil {
			failed = append(failed, d.ID)
			saveErr = err
			result.Failures = append(result.Failures, Failure{DocID: d.ID, Stage: StageSave, Err: err})
			continue
		}

		written += len(records)
		result.ChunksWritten = written

		if options.ProgressStep > 0 {
			pct := written * 100 / total
			if pct >= lastEmitted+options.ProgressStep || written == total {
				lastEmitted = pct
				emitter.emit(ProgressEvent{Stage: StageSave, Percent: pct, Written: written, Total: total})
			}
		}
	}

	if saveErr != nil {
		return newSaveError(collection, failed, saveErr)
	}
	return nil
}
