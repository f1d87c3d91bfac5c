package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ProjectAlita/indexpipe/chunking"
	"github.com/ProjectAlita/indexpipe/document"
	"github.com/ProjectAlita/indexpipe/source"
	"github.com/ProjectAlita/indexpipe/vectorstore"
)

// fakeLoader yields a fixed set of base document descriptors.
type fakeLoader struct {
	docs  []document.Document
	err   error
	calls int
}

func (l *fakeLoader) LoadBase(ctx context.Context, opts ...source.Option) ([]document.Document, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	out := make([]document.Document, len(l.docs))
	copy(out, l.docs)
	return out, nil
}

// fakeResolver returns per-document content and records which ids it saw.
type fakeResolver struct {
	mu      sync.Mutex
	content map[string]string
	failIDs map[string]bool
	seen    []string
}

func (r *fakeResolver) ResolveContent(ctx context.Context, doc *document.Document) (string, []byte, error) {
	r.mu.Lock()
	r.seen = append(r.seen, doc.ID)
	r.mu.Unlock()

	if r.failIDs[doc.ID] {
		return "", nil, errors.New("content fetch failed")
	}
	content, ok := r.content[doc.ID]
	if !ok {
		content = "content of " + doc.ID
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = ".txt"
	}
	return contentType, []byte(content), nil
}

func (r *fakeResolver) sawID(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, seen := range r.seen {
		if seen == id {
			return true
		}
	}
	return false
}

// fakeDependencyLoader yields dependents per base id.
type fakeDependencyLoader struct {
	mu   sync.Mutex
	deps map[string][]document.Document
	err  error
	seen []string
}

func (d *fakeDependencyLoader) LoadDependencies(ctx context.Context, base *document.Document) ([]document.Document, error) {
	d.mu.Lock()
	d.seen = append(d.seen, base.ID)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	out := make([]document.Document, len(d.deps[base.ID]))
	copy(out, d.deps[base.ID])
	return out, nil
}

func (d *fakeDependencyLoader) sawBase(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, seen := range d.seen {
		if seen == id {
			return true
		}
	}
	return false
}

// memStore is an in-memory vectorstore.Store.
type memStore struct {
	mu           sync.Mutex
	collections  map[string][]vectorstore.Document
	failUpsertID string // doc_id whose upsert fails
}

func newMemStore() *memStore {
	return &memStore{collections: make(map[string][]vectorstore.Document)}
}

func (s *memStore) EnsureCollection(ctx context.Context, collection string, forceRecreate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if forceRecreate {
		s.collections[collection] = nil
	}
	return nil
}

func (s *memStore) Manifest(ctx context.Context, collection string) (vectorstore.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	manifest := vectorstore.Manifest{}
	for _, doc := range s.collections[collection] {
		id, _ := doc.Metadata[vectorstore.MetadataDocID].(string)
		marker, _ := doc.Metadata[vectorstore.MetadataUpdatedOn].(string)
		if id != "" {
			manifest[id] = marker
		}
	}
	return manifest, nil
}

func (s *memStore) Upsert(ctx context.Context, collection string, docs []vectorstore.Document, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		if s.failUpsertID != "" && doc.Metadata[vectorstore.MetadataDocID] == s.failUpsertID {
			return errors.New("upsert rejected")
		}
	}
	s.collections[collection] = append(s.collections[collection], docs...)
	return nil
}

func (s *memStore) Delete(ctx context.Context, collection string, filter vectorstore.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []vectorstore.Document
	for _, doc := range s.collections[collection] {
		match := true
		for k, v := range filter {
			if doc.Metadata[k] != v {
				match = false
				break
			}
		}
		if !match {
			kept = append(kept, doc)
		}
	}
	s.collections[collection] = kept
	return nil
}

func (s *memStore) DeleteAll(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = nil
	return nil
}

func (s *memStore) SimilaritySearch(ctx context.Context, collection string, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *memStore) stored(collection string) []vectorstore.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]vectorstore.Document, len(s.collections[collection]))
	copy(out, s.collections[collection])
	return out
}

func (s *memStore) storedForDoc(collection, docID string) []vectorstore.Document {
	var out []vectorstore.Document
	for _, doc := range s.stored(collection) {
		if doc.Metadata[vectorstore.MetadataDocID] == docID {
			out = append(out, doc)
		}
	}
	return out
}

// fakeEmbedder returns fixed-size vectors.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	vectors := make([][]float32, len(documents))
	for i := range documents {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func baseDoc(id, updatedOn string) document.Document {
	return document.Document{
		ID:        id,
		Kind:      document.KindBase,
		UpdatedOn: updatedOn,
		Metadata:  map[string]interface{}{"source": id},
	}
}

func newTestPipeline(t *testing.T, loader *fakeLoader, resolver *fakeResolver, store *memStore, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(loader, resolver, chunking.NewRegistry(), store, fakeEmbedder{}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestRun_DedupScenario(t *testing.T) {
	// Source yields A (marker 5) and B (marker 3); manifest records A:5, B:1.
	// Only B survives: A is unchanged, B is newer.
	store := newMemStore()
	store.collections["kb"] = []vectorstore.Document{
		{ID: "r1", PageContent: "old a", Metadata: map[string]interface{}{
			vectorstore.MetadataDocID: "A", vectorstore.MetadataUpdatedOn: "5",
		}},
		{ID: "r2", PageContent: "old b", Metadata: map[string]interface{}{
			vectorstore.MetadataDocID: "B", vectorstore.MetadataUpdatedOn: "1",
		}},
	}

	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "5"), baseDoc("B", "3")}}
	resolver := &fakeResolver{}
	p := newTestPipeline(t, loader, resolver, store)

	result, err := p.Run(context.Background(), "kb")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.BaseSeen != 2 {
		t.Errorf("BaseSeen = %d, want 2", result.BaseSeen)
	}
	if result.DuplicatesSkipped != 1 {
		t.Errorf("DuplicatesSkipped = %d, want 1", result.DuplicatesSkipped)
	}
	if resolver.sawID("A") {
		t.Error("content resolver was invoked for unchanged document A")
	}
	if !resolver.sawID("B") {
		t.Error("content resolver was not invoked for changed document B")
	}
	if len(store.storedForDoc("kb", "B")) == 0 {
		t.Error("no records written for surviving document B")
	}
	// A's prior records are untouched by an incremental run.
	if len(store.storedForDoc("kb", "A")) != 1 {
		t.Errorf("records for A = %d, want the 1 pre-existing record", len(store.storedForDoc("kb", "A")))
	}
}

func TestRun_Idempotence(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "5"), baseDoc("B", "3")}}
	resolver := &fakeResolver{}
	p := newTestPipeline(t, loader, resolver, store)

	first, err := p.Run(context.Background(), "kb")
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.ChunksWritten == 0 {
		t.Fatal("first run wrote no chunks")
	}

	second, err := p.Run(context.Background(), "kb")
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.DuplicatesSkipped != 2 {
		t.Errorf("second run DuplicatesSkipped = %d, want 2", second.DuplicatesSkipped)
	}
	if second.ChunksWritten != 0 {
		t.Errorf("second run ChunksWritten = %d, want 0", second.ChunksWritten)
	}
}

func TestRun_FailOpenOnMissingMarker(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "")}}
	resolver := &fakeResolver{}
	p := newTestPipeline(t, loader, resolver, store)

	// A document without a marker is re-indexed on every run.
	for i := 0; i < 3; i++ {
		result, err := p.Run(context.Background(), "kb")
		if err != nil {
			t.Fatalf("run %d error = %v", i+1, err)
		}
		if result.DuplicatesSkipped != 0 {
			t.Errorf("run %d DuplicatesSkipped = %d, want 0", i+1, result.DuplicatesSkipped)
		}
		if result.ChunksWritten == 0 {
			t.Errorf("run %d wrote no chunks", i+1)
		}
	}
}

func TestRun_DependentExclusion(t *testing.T) {
	store := newMemStore()
	store.collections["kb"] = []vectorstore.Document{
		{ID: "r1", PageContent: "old a", Metadata: map[string]interface{}{
			vectorstore.MetadataDocID: "A", vectorstore.MetadataUpdatedOn: "5",
		}},
	}

	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "5"), baseDoc("B", "3")}}
	resolver := &fakeResolver{}
	deps := &fakeDependencyLoader{deps: map[string][]document.Document{
		"A": {{ID: "A-att", Metadata: map[string]interface{}{}}},
		"B": {{ID: "B-att", Metadata: map[string]interface{}{}}},
	}}
	p := newTestPipeline(t, loader, resolver, store, WithDependencyLoader(deps))

	result, err := p.Run(context.Background(), "kb")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if deps.sawBase("A") {
		t.Error("dependencies were fetched for a deduplicated base document")
	}
	if resolver.sawID("A-att") {
		t.Error("content resolver saw a dependent of a deduplicated base")
	}
	if !resolver.sawID("B-att") {
		t.Error("content resolver missed the dependent of a surviving base")
	}
	if result.DependentsLoaded != 1 {
		t.Errorf("DependentsLoaded = %d, want 1", result.DependentsLoaded)
	}
	if len(store.storedForDoc("kb", "B-att")) == 0 {
		t.Error("dependent of surviving base was not saved")
	}
}

func TestRun_ChunkingConfigInheritance(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{
		{ID: "doc.md", Kind: document.KindBase, ContentType: ".md", Metadata: map[string]interface{}{}},
		{ID: "doc.pdf", Kind: document.KindBase, ContentType: ".pdf", Metadata: map[string]interface{}{}},
	}}
	resolver := &fakeResolver{}

	var mu sync.Mutex
	resolved := make(map[string]chunking.Config)
	registry := chunking.NewRegistry()
	registry.Register("probe", func(cfg chunking.Config) (document.Splitter, error) {
		mu.Lock()
		resolved[fmt.Sprintf("%d", cfg.ChunkSize)] = cfg
		mu.Unlock()
		return document.NewCharacterSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separator), nil
	})

	p, err := New(loader, resolver, registry, store, fakeEmbedder{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Run(context.Background(), "kb",
		WithChunkingTool("probe"),
		WithChunkingConfig(chunking.ConfigMap{
			chunking.DefaultKey: {ChunkSize: 500},
			".md":               {ChunkSize: 333},
		}),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, ok := resolved["333"]; !ok {
		t.Error(".md document did not resolve chunk_size 333")
	}
	if _, ok := resolved["500"]; !ok {
		t.Error(".pdf document did not inherit default chunk_size 500")
	}
}

func TestRun_CleanRebuild(t *testing.T) {
	store := newMemStore()
	store.collections["kb"] = []vectorstore.Document{
		{ID: "stale", PageContent: "stale", Metadata: map[string]interface{}{
			vectorstore.MetadataDocID: "old-doc", vectorstore.MetadataUpdatedOn: "1",
		}},
	}

	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "5")}}
	resolver := &fakeResolver{}
	p := newTestPipeline(t, loader, resolver, store)

	result, err := p.Run(context.Background(), "kb", WithCleanIndex(true))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Cleaned {
		t.Error("Cleaned = false, want true")
	}
	if len(store.storedForDoc("kb", "old-doc")) != 0 {
		t.Error("stale records survived a clean rebuild")
	}
	if len(store.storedForDoc("kb", "A")) == 0 {
		t.Error("fresh records missing after clean rebuild")
	}
}

func TestRun_CleanRebuildWithEmptyLoad(t *testing.T) {
	store := newMemStore()
	store.collections["kb"] = []vectorstore.Document{
		{ID: "stale", PageContent: "stale", Metadata: map[string]interface{}{
			vectorstore.MetadataDocID: "old-doc", vectorstore.MetadataUpdatedOn: "1",
		}},
	}

	loader := &fakeLoader{}
	resolver := &fakeResolver{}
	p := newTestPipeline(t, loader, resolver, store)

	result, err := p.Run(context.Background(), "kb", WithCleanIndex(true))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.BaseSeen != 0 || result.ChunksWritten != 0 {
		t.Errorf("empty clean rebuild: BaseSeen = %d, ChunksWritten = %d, want 0, 0",
			result.BaseSeen, result.ChunksWritten)
	}
	if len(store.stored("kb")) != 0 {
		t.Error("collection is not empty after clean rebuild with empty load")
	}
}

func TestRun_SanitizerNeverLeaks(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{
		{
			ID:   "A",
			Kind: document.KindBase,
			Metadata: map[string]interface{}{
				"source":         "jira",
				"api_key":        "abc123",
				"refresh_token":  "xyz",
				"session_secret": "shh",
			},
		},
	}}
	resolver := &fakeResolver{}
	p := newTestPipeline(t, loader, resolver, store)

	if _, err := p.Run(context.Background(), "kb"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	records := store.stored("kb")
	if len(records) == 0 {
		t.Fatal("no records written")
	}
	for _, record := range records {
		for _, key := range []string{"api_key", "refresh_token", "session_secret"} {
			if _, ok := record.Metadata[key]; ok {
				t.Errorf("sensitive key %q reached storage", key)
			}
		}
		if record.Metadata["source"] != "jira" {
			t.Error("benign metadata key was dropped")
		}
	}
}

func TestRun_EmptyOrFailedLoadIsNoOp(t *testing.T) {
	tests := []struct {
		name   string
		loader *fakeLoader
	}{
		{name: "Empty load", loader: &fakeLoader{}},
		{name: "Failed load", loader: &fakeLoader{err: errors.New("source unreachable")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			p := newTestPipeline(t, tt.loader, &fakeResolver{}, store)

			result, err := p.Run(context.Background(), "kb")
			if err != nil {
				t.Fatalf("Run() error = %v, want nil (load failures degrade to no-op)", err)
			}
			if result.BaseSeen != 0 || result.ChunksWritten != 0 {
				t.Errorf("no-op run reported BaseSeen = %d, ChunksWritten = %d", result.BaseSeen, result.ChunksWritten)
			}
		})
	}
}

func TestRun_UnknownChunkingToolIsFatal(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "1")}}
	p := newTestPipeline(t, loader, &fakeResolver{}, store)

	_, err := p.Run(context.Background(), "kb", WithChunkingTool("no-such-tool"))
	if err == nil {
		t.Fatal("Run() error = nil, want configuration error")
	}
	if !IsConfiguration(err) {
		t.Errorf("Run() error = %v, want configuration error", err)
	}
	if loader.calls != 0 {
		t.Error("loader was invoked despite a pre-run configuration error")
	}
}

func TestRun_InvalidRunOptions(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "1")}}
	p := newTestPipeline(t, loader, &fakeResolver{}, store)

	tests := []struct {
		name       string
		collection string
		opts       []RunOption
	}{
		{name: "Suffix too long", collection: "toolong12"},
		{name: "Empty suffix", collection: ""},
		{name: "Uppercase suffix", collection: "KB"},
		{name: "Progress step out of range", collection: "kb", opts: []RunOption{WithProgressStep(150)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), tt.collection, tt.opts...)
			if err == nil {
				t.Fatal("Run() error = nil, want configuration error")
			}
			if !IsConfiguration(err) {
				t.Errorf("Run() error = %v, want configuration error", err)
			}
		})
	}
}

func TestRun_ResolutionFailureExcludesDocument(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "1"), baseDoc("B", "2")}}
	resolver := &fakeResolver{failIDs: map[string]bool{"A": true}}
	p := newTestPipeline(t, loader, resolver, store)

	result, err := p.Run(context.Background(), "kb")
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (per-document failures do not abort)", err)
	}

	failures := result.FailedByStage(StageResolve)
	if len(failures) != 1 || failures[0].DocID != "A" {
		t.Errorf("resolve failures = %+v, want one for A", failures)
	}
	if len(store.storedForDoc("kb", "A")) != 0 {
		t.Error("failed document A reached the save stage")
	}
	if len(store.storedForDoc("kb", "B")) == 0 {
		t.Error("healthy document B was not saved")
	}
}

func TestRun_SaveFailureReportsExactSet(t *testing.T) {
	store := newMemStore()
	store.failUpsertID = "A"
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "1"), baseDoc("B", "2")}}
	resolver := &fakeResolver{}
	p := newTestPipeline(t, loader, resolver, store)

	result, err := p.Run(context.Background(), "kb")
	if err == nil {
		t.Fatal("Run() error = nil, want save error")
	}

	var runErr *Error
	if !errors.As(err, &runErr) {
		t.Fatalf("Run() error type = %T, want *Error", err)
	}
	if runErr.Code != ErrCodeSave {
		t.Errorf("error code = %s, want %s", runErr.Code, ErrCodeSave)
	}
	if len(runErr.FailedDocs) != 1 || runErr.FailedDocs[0] != "A" {
		t.Errorf("FailedDocs = %v, want [A]", runErr.FailedDocs)
	}

	// Partial writes are retained: B stays written, A is reported for retry.
	if len(store.storedForDoc("kb", "B")) == 0 {
		t.Error("successfully written document B was lost")
	}
	if result.ChunksWritten == 0 {
		t.Error("result does not reflect the chunks that were written")
	}
}

func TestRun_ProgressReporting(t *testing.T) {
	store := newMemStore()
	docs := make([]document.Document, 10)
	for i := range docs {
		docs[i] = baseDoc(fmt.Sprintf("doc-%d", i), "1")
	}
	loader := &fakeLoader{docs: docs}
	resolver := &fakeResolver{}
	p := newTestPipeline(t, loader, resolver, store)

	var mu sync.Mutex
	var events []ProgressEvent
	_, err := p.Run(context.Background(), "kb",
		WithProgressStep(20),
		WithProgress(func(ev ProgressEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Fatal("no progress events delivered")
	}
	final := events[len(events)-1]
	if final.Percent != 100 || final.Written != final.Total {
		t.Errorf("final event = %+v, want 100%% with Written == Total", final)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Written < events[i-1].Written {
			t.Error("progress events are not monotonic")
		}
	}
}

func TestRun_ProgressDisabled(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "1")}}
	p := newTestPipeline(t, loader, &fakeResolver{}, store)

	called := false
	_, err := p.Run(context.Background(), "kb",
		WithProgressStep(0),
		WithProgress(func(ProgressEvent) { called = true }),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if called {
		t.Error("progress events delivered with step 0")
	}
}

func TestRun_IncrementalUpdateReplacesRecords(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "1")}}
	resolver := &fakeResolver{content: map[string]string{"A": "first version"}}
	p := newTestPipeline(t, loader, resolver, store)

	if _, err := p.Run(context.Background(), "kb"); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	loader.docs = []document.Document{baseDoc("A", "2")}
	resolver.content["A"] = "second version"
	if _, err := p.Run(context.Background(), "kb"); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	records := store.storedForDoc("kb", "A")
	if len(records) == 0 {
		t.Fatal("no records for updated document")
	}
	for _, record := range records {
		if strings.Contains(record.PageContent, "first version") {
			t.Error("stale records from the prior version survived the update")
		}
		if record.Metadata[vectorstore.MetadataUpdatedOn] != "2" {
			t.Errorf("record marker = %v, want 2", record.Metadata[vectorstore.MetadataUpdatedOn])
		}
	}
}

func TestRun_DependentChunksCarryParentID(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "1")}}
	resolver := &fakeResolver{}
	deps := &fakeDependencyLoader{deps: map[string][]document.Document{
		"A": {{ID: "A-att", Metadata: map[string]interface{}{}}},
	}}
	p := newTestPipeline(t, loader, resolver, store, WithDependencyLoader(deps))

	if _, err := p.Run(context.Background(), "kb"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	records := store.storedForDoc("kb", "A-att")
	if len(records) == 0 {
		t.Fatal("dependent records missing")
	}
	for _, record := range records {
		if record.Metadata[vectorstore.MetadataParentID] != "A" {
			t.Errorf("dependent record parent = %v, want A", record.Metadata[vectorstore.MetadataParentID])
		}
	}
}

func TestRun_CancellationAtCheckpoint(t *testing.T) {
	store := newMemStore()
	loader := &fakeLoader{docs: []document.Document{baseDoc("A", "1")}}
	p := newTestPipeline(t, loader, &fakeResolver{}, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx, "kb")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if result == nil {
		t.Fatal("Run() returned nil result on cancellation")
	}
	if len(store.stored("kb")) != 0 {
		t.Error("cancelled run wrote records")
	}
}
