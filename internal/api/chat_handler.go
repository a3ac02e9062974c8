package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/api/shared"
	"github.com/phrazzld/edumind-api/internal/domain"
)

// ChatService stores chat messages and lists sessions.
type ChatService interface {
	PostMessage(ctx context.Context, userID, projectID uuid.UUID, text string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]*domain.ChatSession, error)
}

// ChatHandler serves the /api/chat-sessions endpoints.
type ChatHandler struct {
	chats ChatService
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(chats ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// ListSessions handles GET /api/chat-sessions/?project_id=.
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projectID, err := queryUUID(r, "project_id")
	if err != nil {
		respondWithServiceError(w, r, err, "")
		return
	}
	sessions, err := h.chats.ListSessions(r.Context(), userID, projectID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list chat sessions")
		return
	}
	resp := make([]ChatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, sessionToResponse(s))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// PostMessage handles POST /api/chat-sessions/post_message/. The AI reply is
// produced in the background and appears in the session later.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req PostMessageRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	session, err := h.chats.PostMessage(r.Context(), userID, req.ProjectID, req.Message)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to post message")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, MessageAcceptedResponse{
		Message:   "Message received",
		SessionID: session.ID,
	})
}
