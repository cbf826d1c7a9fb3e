package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-core/internal/registry"
)

var _ driving.SSOTSyncService = (*ssotSyncService)(nil)

// ssotSyncService reconciles an object store prefix against the documents
// already recorded against a knowledge base: new keys are ingested, keys
// whose content changed (new ETag and new checksum) are re-ingested as a new
// version superseding the old one, a new ETag over identical content only
// updates the recorded ETag, and keys no longer present are tombstoned
// rather than deleted outright.
type ssotSyncService struct {
	registry      *registry.Registry
	blobStore     driven.BlobStore
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	runStore      driven.RunStore
	kbStore       driven.KBStore
}

// NewSSOTSyncService constructs an SSOTSyncService.
func NewSSOTSyncService(
	reg *registry.Registry,
	blobStore driven.BlobStore,
	documentStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	runStore driven.RunStore,
	kbStore driven.KBStore,
) driving.SSOTSyncService {
	return &ssotSyncService{
		registry:      reg,
		blobStore:     blobStore,
		documentStore: documentStore,
		chunkStore:    chunkStore,
		runStore:      runStore,
		kbStore:       kbStore,
	}
}

func (s *ssotSyncService) Sync(ctx context.Context, tenantID, kbID, bucket, prefix string) (*driving.SSOTSyncResult, error) {
	run := &domain.PipelineRun{
		ID:        "run-" + uuid.NewString(),
		TenantID:  tenantID,
		KBID:      kbID,
		Type:      domain.PipelineTypeSSOTSync,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.runStore.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("services: create ssot sync run: %w", err)
	}

	metrics := domain.RunMetrics{StageTimingsMs: map[string]int64{}, Counters: map[string]int{}}
	started := time.Now()
	result := &driving.SSOTSyncResult{RunID: run.ID}

	kb, err := s.kbStore.Get(ctx, kbID)
	if err != nil {
		s.fail(ctx, run, metrics, err)
		return result, fmt.Errorf("services: get kb %s: %w", kbID, err)
	}
	var cfg domain.IngestionConfig
	if kb.Defaults.Ingestion != nil {
		cfg = *kb.Defaults.Ingestion
	}

	objects, err := s.blobStore.List(ctx, bucket, prefix)
	if err != nil {
		s.fail(ctx, run, metrics, err)
		return result, fmt.Errorf("services: list %s/%s: %w", bucket, prefix, err)
	}

	existing, err := s.documentStore.ListSSOTDocuments(ctx, kbID)
	if err != nil {
		s.fail(ctx, run, metrics, err)
		return result, fmt.Errorf("services: list ssot documents for kb %s: %w", kbID, err)
	}

	// byKey is indexed by the ssot source object key (not StorageURI, which
	// is version-namespaced and changes every time the object's content
	// changes) so a re-listed object can be matched back to the document
	// that already tracks it.
	byKey := make(map[string]*domain.Document, len(existing))
	for _, doc := range existing {
		if !doc.Tombstoned() {
			byKey[doc.Metadata["ssot_source_key"]] = doc
		}
	}

	seen := make(map[string]bool, len(objects))
	parser, chunker, embedder, indexer, err := buildIngestionPipeline(s.registry, cfg)
	if err != nil {
		s.fail(ctx, run, metrics, err)
		return result, err
	}
	collection := indexCollectionName(tenantID, kbID, cfg.Indexer.CollectionName)
	if err := indexer.EnsureCollection(ctx, collection, embedder.Dimensions()); err != nil {
		s.fail(ctx, run, metrics, err)
		return result, err
	}

	for _, obj := range objects {
		seen[obj.Key] = true
		prior, wasKnown := byKey[obj.Key]

		if wasKnown && prior.Metadata["ssot_etag"] == obj.ETag {
			result.UnchangedCount++
			continue
		}

		content, err := s.fetchBlob(ctx, bucket, obj.Key)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: fetch: %v", obj.Key, err))
			continue
		}
		checksum := sha256Hex(content)

		if wasKnown && prior.Checksum == checksum {
			// ETag moved (e.g. a metadata-only rewrite) but content is
			// identical; refresh the stored etag without a new version.
			prior.Metadata["ssot_etag"] = obj.ETag
			prior.UpdatedAt = time.Now()
			if err := s.documentStore.Save(ctx, prior); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: save: %v", obj.Key, err))
				continue
			}
			result.UnchangedCount++
			continue
		}

		version := 1
		documentID := ""
		previousVersion := 0
		if wasKnown {
			// Content changed under an already-tracked key: update the
			// existing document row in place (same id, bumped version)
			// rather than minting a new one, and drop its superseded
			// chunks/index entries before the new version's land under
			// the same document id.
			documentID = prior.ID
			version = prior.Version + 1
			previousVersion = prior.Version
			if err := s.dropDocument(ctx, indexer, collection, documentID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: drop superseded chunks: %v", obj.Key, err))
				continue
			}
		}

		input := driving.DocumentInput{
			StorageURI: obj.Key,
			Filename:   keyFilename(obj.Key),
			Metadata: map[string]string{
				"ssot_etag":       obj.ETag,
				"ssot_source":     bucket + "/" + prefix,
				"ssot_source_key": obj.Key,
			},
		}

		doc, err := ingestDocument(ctx, ingestDocumentParams{
			blobStore:       s.blobStore,
			bucket:          bucket,
			documentStore:   s.documentStore,
			chunkStore:      s.chunkStore,
			indexer:         indexer,
			parser:          parser,
			chunker:         chunker,
			embedder:        embedder,
			tenantID:        tenantID,
			kbID:            kbID,
			input:           input,
			collection:      collection,
			content:         content,
			checksum:        checksum,
			sourceType:      domain.SourceTypeSSOT,
			version:         version,
			documentID:      documentID,
			previousVersion: previousVersion,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", obj.Key, err))
			continue
		}

		if wasKnown {
			result.ModifiedCount++
		} else {
			result.NewCount++
		}
		byKey[obj.Key] = doc
	}

	for key, doc := range byKey {
		if seen[key] {
			continue
		}
		if err := s.tombstone(ctx, indexer, collection, doc); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: tombstone: %v", key, err))
			continue
		}
		result.DeletedCount++
	}

	metrics.DurationMs = time.Since(started).Milliseconds()
	metrics.Counters["new"] = result.NewCount
	metrics.Counters["modified"] = result.ModifiedCount
	metrics.Counters["deleted"] = result.DeletedCount
	metrics.Counters["unchanged"] = result.UnchangedCount

	summary := fmt.Sprintf("new=%d modified=%d deleted=%d unchanged=%d", result.NewCount, result.ModifiedCount, result.DeletedCount, result.UnchangedCount)
	status := domain.RunStatusCompleted
	if len(result.Errors) > 0 && result.NewCount == 0 && result.ModifiedCount == 0 {
		status = domain.RunStatusFailed
	}
	run.Finalize(status, summary, "", metrics)
	if err := s.runStore.Finalize(ctx, run); err != nil {
		return result, fmt.Errorf("services: finalize ssot sync run: %w", err)
	}

	return result, nil
}

// tombstone marks a document removed from its ssot source without deleting
// its row, preserving retrieval/audit history, and drops its chunks and
// index entries so it stops surfacing in search.
func (s *ssotSyncService) tombstone(ctx context.Context, indexer driven.Indexer, collection string, doc *domain.Document) error {
	if err := s.dropDocument(ctx, indexer, collection, doc.ID); err != nil {
		return err
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}
	doc.Metadata["tombstoned"] = "true"
	doc.Status = domain.DocumentStatusFailed
	doc.UpdatedAt = time.Now()
	return s.documentStore.Save(ctx, doc)
}

// dropDocument removes a document's chunks from both the chunk store and the
// indexer, leaving the document row itself untouched for the caller to
// update or tombstone.
func (s *ssotSyncService) dropDocument(ctx context.Context, indexer driven.Indexer, collection, documentID string) error {
	chunks, err := s.chunkStore.GetByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.VectorID
	}
	if len(ids) > 0 {
		if err := indexer.Delete(ctx, collection, ids); err != nil {
			return err
		}
	}
	return s.chunkStore.DeleteByDocument(ctx, documentID)
}

func (s *ssotSyncService) fetchBlob(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := s.blobStore.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *ssotSyncService) fail(ctx context.Context, run *domain.PipelineRun, metrics domain.RunMetrics, err error) {
	run.Finalize(domain.RunStatusFailed, "", err.Error(), metrics)
	_ = s.runStore.Finalize(ctx, run)
}

// keyFilename returns the last path segment of an object key for use as a
// Document's display filename.
func keyFilename(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}
