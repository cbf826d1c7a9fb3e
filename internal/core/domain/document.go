package domain

import "time"

// SourceType distinguishes how a Document entered a KnowledgeBase.
type SourceType string

const (
	SourceTypeUserUpload SourceType = "user_upload"
	SourceTypeSSOT       SourceType = "ssot"
)

// DocumentStatus tracks a Document's position in the ingestion pipeline.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusIndexed    DocumentStatus = "indexed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// KnowledgeBase is a tenant-owned container of Documents and their Chunks.
type KnowledgeBase struct {
	ID         string                `json:"id"`
	TenantID   string                `json:"tenant_id"`
	Name       string                `json:"name"`
	Defaults   KnowledgeBaseDefaults `json:"defaults"`
	DocCount   int                   `json:"doc_count"`
	ChunkCount int                   `json:"chunk_count"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// KnowledgeBaseDefaults carries optional default pipeline configs for a KB.
// SSOT sync uses Defaults.Ingestion, when set, as its whole ingestion config;
// no field-level merge is done, and the ingestion and retrieval orchestrators
// do not read these defaults.
type KnowledgeBaseDefaults struct {
	Ingestion *IngestionConfig `json:"ingestion,omitempty"`
	Retrieval *RetrievalConfig `json:"retrieval,omitempty"`
}

// Document belongs to exactly one KnowledgeBase. A re-ingested document with
// the same checksum under the same KB is rejected as a duplicate; a
// re-ingested document with a changed checksum creates a new version and
// points PreviousVersion at the superseded one.
type Document struct {
	ID              string            `json:"id"`
	KBID            string            `json:"kb_id"`
	TenantID        string            `json:"tenant_id"`
	Filename        string            `json:"filename"`
	FileType        string            `json:"file_type"`
	Size            int64             `json:"size"`
	StorageURI      string            `json:"storage_uri"`
	SourceType      SourceType        `json:"source_type"`
	Status          DocumentStatus    `json:"status"`
	Version         int               `json:"version"`
	PreviousVersion int               `json:"previous_version,omitempty"`
	Checksum        string            `json:"checksum"`
	ChunkCount      int               `json:"chunk_count"`
	Error           string            `json:"error,omitempty"`
	Metadata        map[string]string `json:"metadata"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
}

// Tombstoned reports whether an SSOT-deleted document's tombstone marker is set.
func (d *Document) Tombstoned() bool {
	return d.Metadata["tombstoned"] == "true"
}

// Chunk belongs to exactly one Document.
type Chunk struct {
	ID             string            `json:"id"`
	DocumentID     string            `json:"document_id"`
	Content        string            `json:"content"`
	ContentHash    string            `json:"content_hash"`
	Index          int               `json:"chunk_index"`
	StartChar      *int              `json:"start_char,omitempty"`
	EndChar        *int              `json:"end_char,omitempty"`
	EmbeddingModel string            `json:"embedding_model"`
	VectorID       string            `json:"vector_id,omitempty"`
	TextID         string            `json:"text_id,omitempty"`
	Metadata       map[string]string `json:"metadata"`
	CreatedAt      time.Time         `json:"created_at"`
}

// DocumentWithChunks combines a Document with its live Chunks.
type DocumentWithChunks struct {
	Document *Document `json:"document"`
	Chunks   []*Chunk  `json:"chunks"`
}

// DocumentContent reconstructs a Document's full parsed text from its chunks,
// ordered by chunk index.
type DocumentContent struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Body       string `json:"body"`
}
