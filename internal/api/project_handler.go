package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/api/shared"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/service"
)

// ProjectService manages projects and their source documents.
type ProjectService interface {
	UploadFile(ctx context.Context, userID uuid.UUID, fileName string, data []byte) (*service.UploadedFile, error)
	Create(ctx context.Context, userID uuid.UUID, name, fileKey, originalFileName string) (*domain.Project, error)
	Get(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error)
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error)
	Delete(ctx context.Context, userID, projectID uuid.UUID) error
	UpdateFile(ctx context.Context, userID, projectID uuid.UUID, fileName string, data []byte) (*domain.Project, error)
}

// GenerationService submits generation jobs and writes podcast scripts.
type GenerationService interface {
	Submit(ctx context.Context, userID, projectID uuid.UUID, contentType string, params json.RawMessage) (*domain.GeneratedContent, error)
	SubmitPodcastAudio(ctx context.Context, userID, projectID uuid.UUID, params json.RawMessage) (*domain.GeneratedContent, error)
	GeneratePodcastScript(ctx context.Context, userID, projectID uuid.UUID, params json.RawMessage) (*domain.PodcastScript, error)
}

// ProjectHandler serves the /api/projects endpoints.
type ProjectHandler struct {
	projects       ProjectService
	generation     GenerationService
	maxUploadBytes int64
}

// NewProjectHandler creates a ProjectHandler. maxUploadBytes bounds
// multipart request bodies.
func NewProjectHandler(projects ProjectService, generation GenerationService, maxUploadBytes int64) *ProjectHandler {
	return &ProjectHandler{projects: projects, generation: generation, maxUploadBytes: maxUploadBytes}
}

// UploadFile handles POST /api/projects/upload_file/.
func (h *ProjectHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	name, data, err := readUploadedFile(w, r, h.maxUploadBytes)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to read upload")
		return
	}
	uploaded, err := h.projects.UploadFile(r.Context(), userID, name, data)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to upload file")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, uploaded)
}

// Create handles POST /api/projects/.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	project, err := h.projects.Create(r.Context(), userID, req.Name, req.FileKey, req.OriginalFileName)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create project")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, projectToResponse(project))
}

// List handles GET /api/projects/.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projects, err := h.projects.List(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list projects")
		return
	}
	resp := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, projectToResponse(p))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Get handles GET /api/projects/{id}/.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, projectID, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	project, err := h.projects.Get(r.Context(), userID, projectID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load project")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, projectToResponse(project))
}

// Delete handles DELETE /api/projects/{id}/.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, projectID, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.projects.Delete(r.Context(), userID, projectID); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateFile handles PUT /api/projects/{id}/update_file/.
func (h *ProjectHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	userID, projectID, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	name, data, err := readUploadedFile(w, r, h.maxUploadBytes)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to read upload")
		return
	}
	project, err := h.projects.UpdateFile(r.Context(), userID, projectID, name, data)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update project file")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, projectToResponse(project))
}

// GenerateContent handles POST /api/projects/{id}/generate_content/. The body
// is {content_type, ...options}; the job runs in the background.
func (h *ProjectHandler) GenerateContent(w http.ResponseWriter, r *http.Request) {
	userID, projectID, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var body json.RawMessage
	if err := shared.DecodeJSON(w, r, &body); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	content, err := h.generation.Submit(r.Context(), userID, projectID, req.ContentType, body)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to start content generation")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{
		Message:   "Content generation started",
		TaskID:    content.TaskID,
		ContentID: content.ID,
	})
}

// GeneratePodcastScript handles POST /api/projects/{id}/generate_podcast_script/.
// It answers synchronously with the script.
func (h *ProjectHandler) GeneratePodcastScript(w http.ResponseWriter, r *http.Request) {
	userID, projectID, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	body, ok := decodeOptionalBody(w, r)
	if !ok {
		return
	}
	script, err := h.generation.GeneratePodcastScript(r.Context(), userID, projectID, body)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to generate podcast script")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, script)
}

// GeneratePodcastAudio handles POST /api/projects/{id}/generate_podcast_audio/.
func (h *ProjectHandler) GeneratePodcastAudio(w http.ResponseWriter, r *http.Request) {
	userID, projectID, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var body json.RawMessage
	if err := shared.DecodeJSON(w, r, &body); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	content, err := h.generation.SubmitPodcastAudio(r.Context(), userID, projectID, body)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to start podcast audio generation")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{
		Message:   "Podcast audio generation started",
		TaskID:    content.TaskID,
		ContentID: content.ID,
	})
}

// decodeOptionalBody reads a JSON body where an empty body means defaults.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	var body json.RawMessage
	if err := shared.DecodeJSON(w, r, &body); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return nil, false
	}
	return body, true
}
