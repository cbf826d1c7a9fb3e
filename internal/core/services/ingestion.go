package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-core/internal/registry"
)

var _ driving.IngestionService = (*ingestionService)(nil)

// ingestionService implements the ingestion pipeline: blob fetch, parse,
// chunk, embed, index, with checksum-based deduplication and a PipelineRun
// audit record.
type ingestionService struct {
	registry      *registry.Registry
	blobStore     driven.BlobStore
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	runStore      driven.RunStore
	kbStore       driven.KBStore
	bucket        string
}

// NewIngestionService constructs an IngestionService. bucket names the
// object store bucket DocumentInput.StorageURI keys resolve against.
func NewIngestionService(
	reg *registry.Registry,
	blobStore driven.BlobStore,
	documentStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	runStore driven.RunStore,
	kbStore driven.KBStore,
	bucket string,
) driving.IngestionService {
	return &ingestionService{
		registry:      reg,
		blobStore:     blobStore,
		documentStore: documentStore,
		chunkStore:    chunkStore,
		runStore:      runStore,
		kbStore:       kbStore,
		bucket:        bucket,
	}
}

func (s *ingestionService) Ingest(ctx context.Context, tenantID, kbID string, inputs []driving.DocumentInput, cfg domain.IngestionConfig) (*domain.PipelineRun, error) {
	run := &domain.PipelineRun{
		ID:        "run-" + uuid.NewString(),
		TenantID:  tenantID,
		KBID:      kbID,
		Type:      domain.PipelineTypeIngestion,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.runStore.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("services: create ingestion run: %w", err)
	}

	metrics := domain.RunMetrics{
		StageTimingsMs: map[string]int64{},
		Counters:       map[string]int{},
	}
	started := time.Now()

	parser, chunker, embedder, indexer, err := buildIngestionPipeline(s.registry, cfg)
	if err != nil {
		s.fail(ctx, run, metrics, err)
		return run, err
	}

	collection := indexCollectionName(tenantID, kbID, cfg.Indexer.CollectionName)
	if err := indexer.EnsureCollection(ctx, collection, embedder.Dimensions()); err != nil {
		s.fail(ctx, run, metrics, err)
		return run, err
	}

	var ingested, skipped, failed int
	docResults := make([]domain.DocumentResult, 0, len(inputs))
	for _, input := range inputs {
		result := s.ingestOne(ctx, tenantID, kbID, input, cfg, parser, chunker, embedder, indexer, collection)
		docResults = append(docResults, result)
		switch result.Status {
		case "duplicate":
			skipped++
		case "failed":
			failed++
		default:
			ingested++
		}
	}

	metrics.Counters["ingested"] = ingested
	metrics.Counters["skipped"] = skipped
	metrics.Counters["failed"] = failed
	metrics.Documents = docResults
	metrics.DurationMs = time.Since(started).Milliseconds()

	summary := fmt.Sprintf("ingested=%d skipped=%d failed=%d", ingested, skipped, failed)
	status := domain.RunStatusCompleted
	if failed > 0 && ingested == 0 {
		status = domain.RunStatusFailed
	}
	run.Finalize(status, summary, "", metrics)
	if err := s.runStore.Finalize(ctx, run); err != nil {
		return run, fmt.Errorf("services: finalize ingestion run: %w", err)
	}

	return run, nil
}

func (s *ingestionService) ingestOne(
	ctx context.Context,
	tenantID, kbID string,
	input driving.DocumentInput,
	cfg domain.IngestionConfig,
	parser driven.Parser,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	indexer driven.Indexer,
	collection string,
) domain.DocumentResult {
	result := domain.DocumentResult{Filename: input.Filename}

	content, err := s.fetchBlob(ctx, input.StorageURI)
	if err != nil {
		result.Status = "failed"
		result.Error = fmt.Sprintf("fetch blob %s: %v", input.StorageURI, err)
		return result
	}

	checksum := sha256Hex(content)

	existing, err := s.documentStore.GetByChecksum(ctx, kbID, checksum)
	if err == nil && existing != nil {
		// Invariant I1: (kb, checksum) is unique among live documents.
		// ssot-sourced documents take precedence over user uploads of the
		// same content, so a duplicate user upload of an ssot-owned
		// document is surfaced as a structured result rather than
		// rejected outright.
		dupErr := domain.NewError(domain.KindDuplicateDocument, "duplicate_document",
			fmt.Sprintf("document with checksum %s already exists in kb %s", checksum, kbID), nil)
		result.Status = "duplicate"
		result.ExistingID = existing.ID
		result.ExistingSSOT = existing.SourceType == domain.SourceTypeSSOT
		result.Error = dupErr.Error()
		return result
	}

	doc, err := ingestDocument(ctx, ingestDocumentParams{
		blobStore:     s.blobStore,
		bucket:        s.bucket,
		documentStore: s.documentStore,
		chunkStore:    s.chunkStore,
		indexer:       indexer,
		parser:        parser,
		chunker:       chunker,
		embedder:      embedder,
		tenantID:      tenantID,
		kbID:          kbID,
		input:         input,
		collection:    collection,
		content:       content,
		checksum:      checksum,
		sourceType:    domain.SourceTypeUserUpload,
		version:       1,
	})
	if doc != nil {
		result.DocumentID = doc.ID
	}
	if err != nil {
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}
	result.Status = "ingested"
	return result
}

// ingestDocumentParams bundles everything ingestDocument needs so both the
// ingestion and SSOT-sync orchestrators can drive the same parse-chunk-
// embed-index-persist sequence for one document. Setting documentID reuses
// an existing document's row in place (an ssot content update) instead of
// minting a new one; previousVersion is then stamped onto the surviving row.
type ingestDocumentParams struct {
	blobStore       driven.BlobStore
	bucket          string
	documentStore   driven.DocumentStore
	chunkStore      driven.ChunkStore
	indexer         driven.Indexer
	parser          driven.Parser
	chunker         driven.Chunker
	embedder        driven.EmbeddingService
	tenantID        string
	kbID            string
	input           driving.DocumentInput
	collection      string
	content         []byte
	checksum        string
	sourceType      domain.SourceType
	version         int
	documentID      string
	previousVersion int
}

// ingestDocument runs store-blob -> parse -> chunk -> embed -> index ->
// persist for one already-fetched document. The document row is written in
// Processing status before parsing so a failure anywhere downstream still
// leaves a traceable Failed row rather than silence; ingestDocument returns
// that row alongside the error so the caller can still report its id.
func ingestDocument(ctx context.Context, p ingestDocumentParams) (*domain.Document, error) {
	docID := p.documentID
	if docID == "" {
		docID = "doc-" + uuid.NewString()
	}
	fileType := detectFileType(p.input.Filename)

	storageURI, err := putVersionedBlob(ctx, p.blobStore, p.bucket, p.tenantID, p.kbID, docID, p.version, p.input.Filename, p.content)
	if err != nil {
		return nil, fmt.Errorf("services: store blob for %s: %w", p.input.Filename, err)
	}

	now := time.Now()
	doc := &domain.Document{
		ID:              docID,
		KBID:            p.kbID,
		TenantID:        p.tenantID,
		Filename:        p.input.Filename,
		FileType:        fileType,
		Size:            int64(len(p.content)),
		StorageURI:      storageURI,
		SourceType:      p.sourceType,
		Status:          domain.DocumentStatusProcessing,
		Version:         p.version,
		PreviousVersion: p.previousVersion,
		Checksum:        p.checksum,
		Metadata:        p.input.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}

	if err := p.documentStore.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("services: save document %s: %w", p.input.Filename, err)
	}

	parsed, err := p.parser.Parse(ctx, p.content, fileType)
	if err != nil {
		return doc, failDocument(ctx, p.documentStore, doc, fmt.Errorf("services: parse %s: %w", p.input.Filename, err))
	}
	for k, v := range parsed.Metadata {
		doc.Metadata[k] = v
	}

	spans, err := p.chunker.Chunk(ctx, parsed.Text)
	if err != nil {
		return doc, failDocument(ctx, p.documentStore, doc, fmt.Errorf("services: chunk %s: %w", p.input.Filename, err))
	}
	doc.ChunkCount = len(spans)

	texts := make([]string, len(spans))
	for i, sp := range spans {
		texts[i] = sp.Content
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return doc, failDocument(ctx, p.documentStore, doc, fmt.Errorf("services: embed %s: %w", p.input.Filename, err))
	}

	chunks := make([]*domain.Chunk, len(spans))
	indexedChunks := make([]driven.IndexedChunk, len(spans))
	for i, sp := range spans {
		chunkID := "chunk-" + uuid.NewString()
		startChar, endChar := sp.StartChar, sp.EndChar
		chunks[i] = &domain.Chunk{
			ID:             chunkID,
			DocumentID:     doc.ID,
			Content:        sp.Content,
			ContentHash:    sha256Hex([]byte(sp.Content)),
			Index:          sp.Index,
			StartChar:      &startChar,
			EndChar:        &endChar,
			EmbeddingModel: p.embedder.Model(),
			VectorID:       chunkID,
			Metadata:       map[string]string{},
			CreatedAt:      now,
		}
		indexedChunks[i] = driven.IndexedChunk{
			ID:        chunkID,
			Content:   sp.Content,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"document_id": doc.ID,
				"chunk_index": fmt.Sprintf("%d", sp.Index),
			},
		}
	}

	if err := p.indexer.IndexBatch(ctx, p.collection, indexedChunks); err != nil {
		return doc, failDocument(ctx, p.documentStore, doc, fmt.Errorf("services: index %s: %w", p.input.Filename, err))
	}

	if err := p.chunkStore.SaveBatch(ctx, chunks); err != nil {
		return doc, failDocument(ctx, p.documentStore, doc, fmt.Errorf("services: save chunks for %s: %w", p.input.Filename, err))
	}

	processedAt := time.Now()
	doc.Status = domain.DocumentStatusIndexed
	doc.ProcessedAt = &processedAt
	doc.UpdatedAt = processedAt
	if err := p.documentStore.Save(ctx, doc); err != nil {
		return doc, fmt.Errorf("services: finalize document %s: %w", p.input.Filename, err)
	}

	return doc, nil
}

// putVersionedBlob writes content to a version-namespaced storage key so
// successive versions of the same document never overwrite one another,
// and returns the key the caller should record as the document's StorageURI.
func putVersionedBlob(ctx context.Context, blobStore driven.BlobStore, bucket, tenantID, kbID, docID string, version int, filename string, content []byte) (string, error) {
	key := versionedStorageKey(tenantID, kbID, docID, version, filename)
	return blobStore.Put(ctx, bucket, key, bytes.NewReader(content), int64(len(content)))
}

func versionedStorageKey(tenantID, kbID, docID string, version int, filename string) string {
	return fmt.Sprintf("tenant-%s/kb-%s/%s/v%d/%s", tenantID, kbID, docID, version, filename)
}

// failDocument marks doc Failed with cause's message and persists it so a
// mid-pipeline failure still leaves a queryable row, then returns cause
// unchanged for the caller to propagate.
func failDocument(ctx context.Context, documentStore driven.DocumentStore, doc *domain.Document, cause error) error {
	doc.Status = domain.DocumentStatusFailed
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}
	doc.Metadata["ingest_error"] = cause.Error()
	doc.UpdatedAt = time.Now()
	_ = documentStore.Save(ctx, doc)
	return cause
}

func buildIngestionPipeline(reg *registry.Registry, cfg domain.IngestionConfig) (driven.Parser, driven.Chunker, driven.EmbeddingService, driven.Indexer, error) {
	parserParams, err := flattenParams(cfg.Parser, cfg.Parser.Params)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	parserComponent, err := reg.Build(registry.CategoryParser, cfg.Parser.Type, parserParams)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("services: build parser: %w", err)
	}
	parser, ok := parserComponent.(driven.Parser)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("services: %q is not a Parser", cfg.Parser.Type)
	}

	chunkerParams, err := flattenParams(cfg.Chunker, nil)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	chunkerComponent, err := reg.Build(registry.CategoryChunker, cfg.Chunker.Type, chunkerParams)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("services: build chunker: %w", err)
	}
	chunker, ok := chunkerComponent.(driven.Chunker)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("services: %q is not a Chunker", cfg.Chunker.Type)
	}

	embedderParams, err := flattenParams(cfg.Embedder, cfg.Embedder.Params)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	embedderComponent, err := reg.Build(registry.CategoryEmbedder, cfg.Embedder.Type, embedderParams)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("services: build embedder: %w", err)
	}
	embedder, ok := embedderComponent.(driven.EmbeddingService)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("services: %q is not an EmbeddingService", cfg.Embedder.Type)
	}

	indexerParams, err := flattenParams(cfg.Indexer, cfg.Indexer.Params)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	indexerComponent, err := reg.Build(registry.CategoryIndexer, cfg.Indexer.Type, indexerParams)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("services: build indexer: %w", err)
	}
	indexer, ok := indexerComponent.(driven.Indexer)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("services: %q is not an Indexer", cfg.Indexer.Type)
	}

	return parser, chunker, embedder, indexer, nil
}

func (s *ingestionService) fetchBlob(ctx context.Context, storageURI string) ([]byte, error) {
	rc, err := s.blobStore.Get(ctx, s.bucket, storageURI)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *ingestionService) fail(ctx context.Context, run *domain.PipelineRun, metrics domain.RunMetrics, err error) {
	run.Finalize(domain.RunStatusFailed, "", err.Error(), metrics)
	_ = s.runStore.Finalize(ctx, run)
}

func sha256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func detectFileType(filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	return strings.ToLower(ext)
}

// indexCollectionName namespaces collections per tenant and KB so indexer
// backends never mix content across tenants, falling back to a derived
// name when the config doesn't pin one explicitly.
func indexCollectionName(tenantID, kbID, configured string) string {
	if configured != "" {
		return configured
	}
	return fmt.Sprintf("tenant-%s-kb-%s", tenantID, kbID)
}
