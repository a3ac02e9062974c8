package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/api/shared"
	"github.com/phrazzld/edumind-api/internal/domain"
)

// ContentReader serves generation job status.
type ContentReader interface {
	Get(ctx context.Context, userID, contentID uuid.UUID) (*domain.GeneratedContent, error)
	List(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]*domain.GeneratedContent, error)
}

// ContentHandler serves the /api/content endpoints.
type ContentHandler struct {
	contents ContentReader
}

// NewContentHandler creates a ContentHandler.
func NewContentHandler(contents ContentReader) *ContentHandler {
	return &ContentHandler{contents: contents}
}

// List handles GET /api/content/?project_id=.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projectID, err := queryUUID(r, "project_id")
	if err != nil {
		respondWithServiceError(w, r, err, "")
		return
	}
	contents, err := h.contents.List(r.Context(), userID, projectID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list content")
		return
	}
	resp := make([]ContentResponse, 0, len(contents))
	for _, c := range contents {
		resp = append(resp, contentToResponse(c))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /api/content/{id}/.
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, contentID, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	content, err := h.contents.Get(r.Context(), userID, contentID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load content")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, contentToResponse(content))
}
