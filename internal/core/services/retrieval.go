package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-core/internal/registry"
)

var _ driving.RetrievalService = (*retrievalService)(nil)

// retrievalService implements the retrieval pipeline: embed query, hybrid
// search, an optimizer chain, and document metadata enrichment, recording a
// PipelineRun audit record for every invocation.
type retrievalService struct {
	registry      *registry.Registry
	documentStore driven.DocumentStore
	runStore      driven.RunStore
	bucket        string
}

// NewRetrievalService constructs a RetrievalService. Searchers are expected
// to already be registered against a concrete indexer pairing by the
// composition root (see internal/searchers), since a searcher's indexer
// dependency cannot be expressed through a plain registry.Constructor.
func NewRetrievalService(reg *registry.Registry, documentStore driven.DocumentStore, runStore driven.RunStore) driving.RetrievalService {
	return &retrievalService{registry: reg, documentStore: documentStore, runStore: runStore}
}

func (s *retrievalService) Retrieve(ctx context.Context, tenantID, kbID, query string, cfg domain.RetrievalConfig) (*domain.RetrievalResult, error) {
	run := &domain.PipelineRun{
		ID:        "retr-" + uuid.NewString(),
		TenantID:  tenantID,
		KBID:      kbID,
		Type:      domain.PipelineTypeRetrieval,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.runStore.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("services: create retrieval run: %w", err)
	}

	started := time.Now()
	metrics := domain.RetrievalMetrics{}

	result, err := s.retrieve(ctx, tenantID, kbID, query, cfg, run.ID, &metrics)
	metrics.DurationMs = time.Since(started).Milliseconds()
	runMetrics := domain.RunMetrics{
		DurationMs: metrics.DurationMs,
		Counters:   map[string]int{"results": metrics.ResultsCount},
	}
	if err != nil {
		s.fail(ctx, run, runMetrics, err)
		return nil, err
	}
	result.Metrics = metrics

	resultSummary := fmt.Sprintf("results=%d", result.TotalResults)
	run.Finalize(domain.RunStatusCompleted, resultSummary, metrics.SearchError, runMetrics)
	if err := s.runStore.Finalize(ctx, run); err != nil {
		return result, fmt.Errorf("services: finalize retrieval run: %w", err)
	}

	return result, nil
}

func (s *retrievalService) fail(ctx context.Context, run *domain.PipelineRun, metrics domain.RunMetrics, err error) {
	run.Finalize(domain.RunStatusFailed, "", err.Error(), metrics)
	_ = s.runStore.Finalize(ctx, run)
}

// retrieve runs the embed/search/optimize/enrich sequence. It does not
// finalize the PipelineRun itself so Retrieve can record a failure's
// duration and message regardless of where the pipeline broke.
func (s *retrievalService) retrieve(ctx context.Context, tenantID, kbID, query string, cfg domain.RetrievalConfig, runID string, metrics *domain.RetrievalMetrics) (*domain.RetrievalResult, error) {
	mode := effectiveSearchMode(cfg.Searcher.Type)

	var queryVector []float32
	if mode.RequiresEmbedding() {
		embedStart := time.Now()
		embedder, err := s.buildEmbedder(cfg.Embedder)
		if err != nil {
			return nil, err
		}
		queryVector, err = embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("services: embed query: %w", err)
		}
		metrics.EmbedTimeMs = time.Since(embedStart).Milliseconds()
	}

	searcherParams, err := flattenParams(cfg.Searcher, nil)
	if err != nil {
		return nil, err
	}
	searcherComponent, err := s.registry.Build(registry.CategorySearcher, cfg.Searcher.Type, searcherParams)
	if err != nil {
		return nil, fmt.Errorf("services: build searcher: %w", err)
	}
	searcher, ok := searcherComponent.(driven.Searcher)
	if !ok {
		return nil, fmt.Errorf("services: %q is not a Searcher", cfg.Searcher.Type)
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 20
	}

	searchStart := time.Now()
	collection := indexCollectionName(tenantID, kbID, "")
	matches, err := searcher.Search(ctx, collection, queryVector, query, topK)
	if err != nil {
		return nil, fmt.Errorf("services: search: %w", err)
	}
	metrics.SearchTimeMs = time.Since(searchStart).Milliseconds()

	results := make([]driven.OptimizedResult, len(matches))
	for i, m := range matches {
		results[i] = driven.OptimizedResult{ID: m.ID, Content: m.Metadata["content"], Score: m.Score, Metadata: m.Metadata}
		if errMsg := m.Metadata["search_error"]; errMsg != "" && metrics.SearchError == "" {
			metrics.SearchError = errMsg
		}
	}

	optimizeStart := time.Now()
	for _, optCfg := range cfg.Optimizers {
		optParams, err := flattenParams(struct {
			Type string `json:"type"`
		}{optCfg.Type}, optCfg.Params)
		if err != nil {
			return nil, err
		}
		optComponent, err := s.registry.Build(registry.CategoryOptimizer, optCfg.Type, optParams)
		if err != nil {
			return nil, fmt.Errorf("services: build optimizer %q: %w", optCfg.Type, err)
		}
		optimizer, ok := optComponent.(driven.Optimizer)
		if !ok {
			return nil, fmt.Errorf("services: %q is not an Optimizer", optCfg.Type)
		}
		results, err = optimizer.Optimize(ctx, results, query)
		if err != nil {
			return nil, fmt.Errorf("services: optimize with %q: %w", optCfg.Type, err)
		}
	}
	metrics.OptimizeTimeMs = time.Since(optimizeStart).Milliseconds()

	items := make([]domain.RetrievalResultItem, len(results))
	for i, r := range results {
		docID := r.Metadata["document_id"]
		item := domain.RetrievalResultItem{
			ID:         r.ID,
			Content:    r.Content,
			Score:      r.Score,
			DocumentID: docID,
			Metadata:   r.Metadata,
		}
		if idx, err := strconv.Atoi(r.Metadata["chunk_index"]); err == nil {
			item.ChunkIndex = idx
		}
		if docID != "" {
			if doc, err := s.documentStore.Get(ctx, docID); err == nil {
				item.DocumentFilename = doc.Filename
			}
		}
		items[i] = item
	}

	metrics.ResultsCount = len(items)

	return &domain.RetrievalResult{
		RunID:        runID,
		Query:        query,
		Results:      items,
		TotalResults: len(items),
	}, nil
}

func (s *retrievalService) buildEmbedder(cfg domain.EmbedderConfig) (driven.EmbeddingService, error) {
	params, err := flattenParams(cfg, cfg.Params)
	if err != nil {
		return nil, err
	}
	component, err := s.registry.Build(registry.CategoryEmbedder, cfg.Type, params)
	if err != nil {
		return nil, fmt.Errorf("services: build embedder: %w", err)
	}
	embedder, ok := component.(driven.EmbeddingService)
	if !ok {
		return nil, fmt.Errorf("services: %q is not an EmbeddingService", cfg.Type)
	}
	return embedder, nil
}

func effectiveSearchMode(searcherType string) domain.SearchMode {
	switch searcherType {
	case "lexical", "text":
		return domain.SearchModeTextOnly
	case "semantic":
		return domain.SearchModeSemanticOnly
	default:
		return domain.SearchModeHybrid
	}
}
