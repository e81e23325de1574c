package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/mdsplit/internal/pathstore"
)

const defaultDocumentLimit = 200

// docIDFromURL returns the docID path parameter or writes a 400.
func docIDFromURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	docID := chi.URLParam(r, "docID")
	if err := pathstore.ValidateDocID(docID); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return docID, true
}

// sectionStore returns the configured store or writes a 503.
func (s *Server) sectionStore(w http.ResponseWriter) *pathstore.SectionStore {
	store := s.orchestrator.Store()
	if store == nil {
		jsonError(w, "document store is not configured", http.StatusServiceUnavailable)
	}
	return store
}

// handleListDocuments lists stored document metadata.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	store := s.sectionStore(w)
	if store == nil {
		return
	}

	limit := defaultDocumentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	docs, err := store.ListDocuments(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleGetDocument returns a document's metadata and stored sections.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	store := s.sectionStore(w)
	if store == nil {
		return
	}
	docID, ok := docIDFromURL(w, r)
	if !ok {
		return
	}

	meta, err := store.GetMeta(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to read document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if meta == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	sections, err := store.GetSections(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to read sections: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": meta,
		"sections": sections,
	})
}

// handleDeleteDocument removes a document, its sections and its hash index entry.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	store := s.sectionStore(w)
	if store == nil {
		return
	}
	docID, ok := docIDFromURL(w, r)
	if !ok {
		return
	}

	found, err := store.DeleteDocument(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if !found {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}
