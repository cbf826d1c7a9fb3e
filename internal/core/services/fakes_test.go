package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// fakeBlobStore is an in-memory driven.BlobStore keyed by bucket/key.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	etags   map[string]string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, etags: map[string]string{}}
}

func (f *fakeBlobStore) objKey(bucket, key string) string { return bucket + "/" + key }

func (f *fakeBlobStore) put(bucket, key string, content []byte, etag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[f.objKey(bucket, key)] = content
	f.etags[f.objKey(bucket, key)] = etag
}

func (f *fakeBlobStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.objects[f.objKey(bucket, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *fakeBlobStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64) (string, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.put(bucket, key, content, "")
	return key, nil
}

func (f *fakeBlobStore) List(ctx context.Context, bucket, prefix string) ([]driven.BlobObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []driven.BlobObjectInfo
	for fullKey := range f.objects {
		b, key, found := strings.Cut(fullKey, "/")
		if !found || b != bucket || !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, driven.BlobObjectInfo{Key: key, ETag: f.etags[fullKey], Size: int64(len(f.objects[fullKey]))})
	}
	return out, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, f.objKey(bucket, key))
	delete(f.etags, f.objKey(bucket, key))
	return nil
}

// fakeRunStore is an in-memory driven.RunStore enforcing the same terminal
// transition guard the Postgres implementation enforces at the SQL layer.
type fakeRunStore struct {
	mu   sync.Mutex
	runs map[string]*domain.PipelineRun
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: map[string]*domain.PipelineRun{}}
}

func (f *fakeRunStore) Create(ctx context.Context, run *domain.PipelineRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = run
	return nil
}

func (f *fakeRunStore) Finalize(ctx context.Context, run *domain.PipelineRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.runs[run.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status == domain.RunStatusCompleted || stored.Status == domain.RunStatusFailed {
		return domain.NewError(domain.KindInternal, "run_already_finalized", "run already finalized", nil)
	}
	f.runs[run.ID] = run
	return nil
}

func (f *fakeRunStore) Get(ctx context.Context, id string) (*domain.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return run, nil
}

func (f *fakeRunStore) GetByKB(ctx context.Context, kbID string, limit, offset int) ([]*domain.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PipelineRun
	for _, run := range f.runs {
		if run.KBID == kbID {
			out = append(out, run)
		}
	}
	return out, nil
}

// fakeKBStore is an in-memory driven.KBStore.
type fakeKBStore struct {
	kbs map[string]*domain.KnowledgeBase
}

func newFakeKBStore() *fakeKBStore {
	return &fakeKBStore{kbs: map[string]*domain.KnowledgeBase{}}
}

func (f *fakeKBStore) Save(ctx context.Context, kb *domain.KnowledgeBase) error {
	f.kbs[kb.ID] = kb
	return nil
}

func (f *fakeKBStore) Get(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	kb, ok := f.kbs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return kb, nil
}

func (f *fakeKBStore) GetByTenant(ctx context.Context, tenantID string) ([]*domain.KnowledgeBase, error) {
	var out []*domain.KnowledgeBase
	for _, kb := range f.kbs {
		if kb.TenantID == tenantID {
			out = append(out, kb)
		}
	}
	return out, nil
}

func (f *fakeKBStore) Delete(ctx context.Context, id string) error {
	delete(f.kbs, id)
	return nil
}

// fakeParser splits content into a single ParsedDocument of its raw text.
type fakeParser struct{}

func (fakeParser) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	return driven.ParsedDocument{Text: string(content), Metadata: map[string]string{}}, nil
}

func (fakeParser) SupportedTypes() []string { return []string{"txt"} }

// failingParser always fails, for exercising the pipeline-build failure path.
type failingParser struct{ err error }

func (f failingParser) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	return driven.ParsedDocument{}, f.err
}

func (failingParser) SupportedTypes() []string { return nil }

// fakeChunker splits text on whitespace boundaries into fixed-size spans of
// at most wordsPerChunk words each, defaulting to one span per call.
type fakeChunker struct{ wordsPerChunk int }

func (c fakeChunker) Chunk(ctx context.Context, text string) ([]driven.TextSpan, error) {
	words := strings.Fields(text)
	perChunk := c.wordsPerChunk
	if perChunk <= 0 {
		perChunk = len(words)
		if perChunk == 0 {
			perChunk = 1
		}
	}
	var spans []driven.TextSpan
	for i := 0; i < len(words); i += perChunk {
		end := i + perChunk
		if end > len(words) {
			end = len(words)
		}
		content := strings.Join(words[i:end], " ")
		spans = append(spans, driven.TextSpan{Content: content, Index: len(spans), StartChar: i, EndChar: end})
	}
	if len(spans) == 0 {
		spans = append(spans, driven.TextSpan{Content: text, Index: 0})
	}
	return spans, nil
}

func (fakeChunker) Name() string { return "fake" }

// fakeEmbedder returns a deterministic fixed-width vector per text.
type fakeEmbedder struct {
	dims   int
	closed bool
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dims)
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return make([]float32, e.dims), nil
}

func (e *fakeEmbedder) Dimensions() int { return e.dims }

func (e *fakeEmbedder) Model() string { return "fake-embedder" }

func (e *fakeEmbedder) HealthCheck(ctx context.Context) error { return nil }

func (e *fakeEmbedder) Close() error { e.closed = true; return nil }

// fakeIndexer records every collection ensured and chunk indexed/deleted.
type fakeIndexer struct {
	mu          sync.Mutex
	collections map[string]int
	chunks      map[string][]driven.IndexedChunk
	deleted     []string
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{collections: map[string]int{}, chunks: map[string][]driven.IndexedChunk{}}
}

func (f *fakeIndexer) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[collection] = dimension
	return nil
}

func (f *fakeIndexer) IndexBatch(ctx context.Context, collection string, chunks []driven.IndexedChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[collection] = append(f.chunks[collection], chunks...)
	return nil
}

func (f *fakeIndexer) Delete(ctx context.Context, collection string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	remaining := f.chunks[collection][:0]
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	for _, c := range f.chunks[collection] {
		if !idSet[c.ID] {
			remaining = append(remaining, c)
		}
	}
	f.chunks[collection] = remaining
	return nil
}

func (f *fakeIndexer) Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]driven.VectorMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matches := make([]driven.VectorMatch, 0, len(f.chunks[collection]))
	for _, c := range f.chunks[collection] {
		matches = append(matches, driven.VectorMatch{ID: c.ID, Score: 1, Metadata: c.Metadata})
		if len(matches) >= topK {
			break
		}
	}
	return matches, nil
}

// fakeSearcher returns a fixed set of matches regardless of query.
type fakeSearcher struct {
	name    string
	matches []driven.VectorMatch
}

func (s *fakeSearcher) Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]driven.VectorMatch, error) {
	if topK < len(s.matches) {
		return s.matches[:topK], nil
	}
	return s.matches, nil
}

func (s *fakeSearcher) Name() string { return s.name }

// passthroughOptimizer returns results unchanged, recording that it ran.
type passthroughOptimizer struct {
	ran bool
}

func (o *passthroughOptimizer) Optimize(ctx context.Context, results []driven.OptimizedResult, query string) ([]driven.OptimizedResult, error) {
	o.ran = true
	return results, nil
}

func (o *passthroughOptimizer) Name() string { return "passthrough" }

// truncateOptimizer keeps only the first n results.
type truncateOptimizer struct{ n int }

func (o *truncateOptimizer) Optimize(ctx context.Context, results []driven.OptimizedResult, query string) ([]driven.OptimizedResult, error) {
	if len(results) > o.n {
		return results[:o.n], nil
	}
	return results, nil
}

func (o *truncateOptimizer) Name() string { return "truncate" }
