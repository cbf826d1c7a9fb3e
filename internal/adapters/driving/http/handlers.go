package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// HealthResponse represents the health check response with component status
type HealthResponse struct {
	Status     string                     `json:"status"`               // overall status: "healthy" or "degraded"
	Components map[string]ComponentHealth `json:"components,omitempty"` // individual component health
}

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Status  string `json:"status"`            // "healthy" or "unhealthy"
	Message string `json:"message,omitempty"` // optional message for unhealthy components
}

// handleHealth godoc
// @Summary      Health check
// @Description  Returns 200 if the service is up, with status of each dependency in the body
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse  "Service is up with dependency status"
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]ComponentHealth)
	allHealthy := true

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			components["postgres"] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			allHealthy = false
		} else {
			components["postgres"] = ComponentHealth{Status: "healthy"}
		}
	}

	if s.redis != nil {
		if err := s.redis.Ping(r.Context()); err != nil {
			components["redis"] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			allHealthy = false
		} else {
			components["redis"] = ComponentHealth{Status: "healthy"}
		}
	}

	components["server"] = ComponentHealth{Status: "healthy"}

	resp := HealthResponse{Status: "healthy", Components: components}
	if !allHealthy {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Ingestion endpoints

type ingestRequest struct {
	Documents []driving.DocumentInput `json:"documents"`
	Config    domain.IngestionConfig  `json:"config"`
}

// handleIngest godoc
// @Summary      Ingest documents into a knowledge base
// @Description  Fetches each document from blob storage, parses, chunks, embeds, and indexes it, deduplicating on content checksum
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        kbID     path      string         true  "Knowledge base ID"
// @Param        request  body      ingestRequest  true  "Documents and pipeline config"
// @Success      200      {object}  domain.PipelineRun
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      500      {object}  ErrorResponse  "Ingestion failed"
// @Router       /kb/{kbID}/ingest [post]
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("kbID")
	if kbID == "" {
		writeError(w, http.StatusBadRequest, "missing kb id")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "documents is required")
		return
	}

	tenantID := tenantFromRequest(r)

	run, err := s.ingestionService.Ingest(r.Context(), tenantID, kbID, req.Documents, req.Config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ingestion failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// Retrieval endpoints

type retrieveRequest struct {
	Query  string                 `json:"query"`
	Config domain.RetrievalConfig `json:"config,omitempty"`
}

// handleRetrieve godoc
// @Summary      Retrieve chunks for a query
// @Description  Embeds the query, runs the configured searcher, applies the optimizer chain, and enriches results with document metadata
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Param        kbID     path      string           true  "Knowledge base ID"
// @Param        request  body      retrieveRequest  true  "Query and pipeline config"
// @Success      200      {object}  domain.RetrievalResult
// @Failure      400      {object}  ErrorResponse  "Invalid request or missing query"
// @Failure      500      {object}  ErrorResponse  "Retrieval failed"
// @Router       /kb/{kbID}/retrieve [post]
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("kbID")
	if kbID == "" {
		writeError(w, http.StatusBadRequest, "missing kb id")
		return
	}

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	cfg := req.Config
	if cfg.Searcher.Type == "" {
		cfg = domain.DefaultRetrievalConfig()
	}

	tenantID := tenantFromRequest(r)

	result, err := s.retrievalService.Retrieve(r.Context(), tenantID, kbID, req.Query, cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "retrieval failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SSOT sync endpoints

type ssotSyncRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

// handleSSOTSync godoc
// @Summary      Synchronize a knowledge base against its source-of-truth bucket
// @Description  Diffs the bucket/prefix against stored documents: new objects are ingested, changed objects are re-ingested as a new version, and missing objects are tombstoned
// @Tags         SSOT
// @Accept       json
// @Produce      json
// @Param        kbID     path      string           true  "Knowledge base ID"
// @Param        request  body      ssotSyncRequest  true  "Bucket and prefix to sync"
// @Success      200      {object}  driving.SSOTSyncResult
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      500      {object}  ErrorResponse  "Sync failed"
// @Router       /kb/{kbID}/sync [post]
func (s *Server) handleSSOTSync(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("kbID")
	if kbID == "" {
		writeError(w, http.StatusBadRequest, "missing kb id")
		return
	}

	var req ssotSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Bucket == "" {
		writeError(w, http.StatusBadRequest, "bucket is required")
		return
	}

	tenantID := tenantFromRequest(r)

	result, err := s.ssotSyncService.Sync(r.Context(), tenantID, kbID, req.Bucket, req.Prefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sync failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Document endpoints

// handleGetDocument godoc
// @Summary      Get document
// @Description  Get a document by ID with all its chunks
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.DocumentWithChunks
// @Failure      400  {object}  ErrorResponse  "Missing document ID"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing document id")
		return
	}

	doc, err := s.docService.GetWithChunks(r.Context(), id)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "document not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get document")
		}
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleGetDocumentContent godoc
// @Summary      Get document content
// @Description  Reconstructs a document's full parsed text from its stored chunks
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.DocumentContent
// @Failure      400  {object}  ErrorResponse  "Missing document ID"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/content [get]
func (s *Server) handleGetDocumentContent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing document id")
		return
	}

	content, err := s.docService.GetContent(r.Context(), id)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "document not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get document content")
		}
		return
	}

	writeJSON(w, http.StatusOK, content)
}

// handleListKBDocuments godoc
// @Summary      List documents in a knowledge base
// @Description  Paginated listing of documents belonging to a knowledge base
// @Tags         Documents
// @Produce      json
// @Param        kbID    path   string  true   "Knowledge base ID"
// @Param        limit   query  int     false  "Page size (default 50, max 1000)"
// @Param        offset  query  int     false  "Page offset"
// @Success      200     {array}  domain.Document
// @Failure      500     {object}  ErrorResponse  "Internal server error"
// @Router       /kb/{kbID}/documents [get]
func (s *Server) handleListKBDocuments(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("kbID")
	if kbID == "" {
		writeError(w, http.StatusBadRequest, "missing kb id")
		return
	}

	limit, _ := parseInt(r.URL.Query().Get("limit"))
	offset, _ := parseInt(r.URL.Query().Get("offset"))

	docs, err := s.docService.GetByKB(r.Context(), kbID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	total, err := s.docService.CountByKB(r.Context(), kbID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count documents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// tenantFromRequest extracts the tenant ID from a header, defaulting to a
// single-tenant identifier when the header is absent.
func tenantFromRequest(r *http.Request) string {
	if t := r.Header.Get("X-Tenant-ID"); t != "" {
		return t
	}
	return "default"
}

// parseInt is a helper to parse integer query parameters, returning 0 for an
// empty or unparsable input.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
