package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the body of POST /api/auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UserResponse is returned by GET /api/users/me/.
type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	TokenBalance float64   `json:"token_balance"`
}

// CreateProjectRequest is the body of POST /api/projects/.
type CreateProjectRequest struct {
	Name             string `json:"name"               validate:"required,max=255"`
	FileKey          string `json:"file_key"           validate:"required"`
	OriginalFileName string `json:"original_file_name"`
}

// ProjectResponse describes a project.
type ProjectResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	FileKey          string    `json:"file_key"`
	FileURL          string    `json:"file_url"`
	OriginalFileName string    `json:"original_file_name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func projectToResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:               p.ID,
		Name:             p.Name,
		FileKey:          p.FileKey,
		FileURL:          p.FileURL,
		OriginalFileName: p.OriginalFileName,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// generateRequest holds the content type of POST generate_content. The
// remaining keys of the body are the type's options.
type generateRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

// JobAcceptedResponse is returned with 202 for queued generation jobs.
type JobAcceptedResponse struct {
	Message   string    `json:"message"`
	TaskID    uuid.UUID `json:"task_id"`
	ContentID uuid.UUID `json:"content_id"`
}

// ContentResponse describes a generation job. FileURL is set only on
// success, ErrorMessage only on failure.
type ContentResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProjectID    uuid.UUID       `json:"project_id"`
	ContentType  string          `json:"content_type"`
	TaskStatus   string          `json:"task_status"`
	TaskID       uuid.UUID       `json:"task_id"`
	Options      json.RawMessage `json:"options,omitempty"`
	FileURL      string          `json:"file_url,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Cost         float64         `json:"cost"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func contentToResponse(c *domain.GeneratedContent) ContentResponse {
	resp := ContentResponse{
		ID:          c.ID,
		ProjectID:   c.ProjectID,
		ContentType: string(c.ContentType),
		TaskStatus:  string(c.Status),
		TaskID:      c.TaskID,
		Options:     c.Options,
		Cost:        c.Cost,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	switch c.Status {
	case domain.TaskStatusSuccess:
		resp.FileURL = c.FileURL
	case domain.TaskStatusFailure:
		resp.ErrorMessage = c.ErrorMessage
	}
	return resp
}

// PostMessageRequest is the body of POST /api/chat-sessions/post_message/.
type PostMessageRequest struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
	Message   string    `json:"message"    validate:"required,max=4000"`
}

// MessageAcceptedResponse is returned with 202 once a chat message is stored.
type MessageAcceptedResponse struct {
	Message   string    `json:"message"`
	SessionID uuid.UUID `json:"session_id"`
}

// ChatMessageResponse is one message of a session.
type ChatMessageResponse struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSessionResponse is a session with its messages, oldest first.
type ChatSessionResponse struct {
	ID        uuid.UUID             `json:"id"`
	ProjectID uuid.UUID             `json:"project_id"`
	Messages  []ChatMessageResponse `json:"messages"`
	CreatedAt time.Time             `json:"created_at"`
}

func sessionToResponse(s *domain.ChatSession) ChatSessionResponse {
	msgs := make([]ChatMessageResponse, 0, len(s.Messages))
	for _, m := range s.Messages {
		msgs = append(msgs, ChatMessageResponse{
			ID:        m.ID,
			Sender:    string(m.Sender),
			Message:   m.Message,
			Timestamp: m.CreatedAt,
		})
	}
	return ChatSessionResponse{ID: s.ID, ProjectID: s.ProjectID, Messages: msgs, CreatedAt: s.CreatedAt}
}
