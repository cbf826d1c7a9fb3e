package services

import (
	"context"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driving"
)

var _ driving.DocumentService = (*documentService)(nil)

type documentService struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(documentStore driven.DocumentStore, chunkStore driven.ChunkStore) driving.DocumentService {
	return &documentService{documentStore: documentStore, chunkStore: chunkStore}
}

func (s *documentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.documentStore.Get(ctx, id)
}

func (s *documentService) GetWithChunks(ctx context.Context, id string) (*domain.DocumentWithChunks, error) {
	doc, err := s.documentStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunkStore.GetByDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.DocumentWithChunks{Document: doc, Chunks: chunks}, nil
}

func (s *documentService) GetContent(ctx context.Context, id string) (*domain.DocumentContent, error) {
	doc, err := s.documentStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunkStore.GetByDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	var body string
	for _, chunk := range chunks {
		body += chunk.Content
	}

	return &domain.DocumentContent{DocumentID: doc.ID, Filename: doc.Filename, Body: body}, nil
}

func (s *documentService) GetByKB(ctx context.Context, kbID string, limit, offset int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.documentStore.GetByKB(ctx, kbID, limit, offset)
}

func (s *documentService) Count(ctx context.Context) (int, error) {
	return s.documentStore.Count(ctx)
}

func (s *documentService) CountByKB(ctx context.Context, kbID string) (int, error) {
	return s.documentStore.CountByKB(ctx, kbID)
}
