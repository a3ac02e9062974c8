package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentType identifies the kind of artifact generated from a project.
type ContentType string

const (
	ContentTypePresentation ContentType = "PRESENTATION"
	ContentTypeFlashcards   ContentType = "FLASHCARDS"
	ContentTypeQuiz         ContentType = "QUIZ"
	ContentTypePodcast      ContentType = "PODCAST"
)

// contentTypeAliases maps the short codes accepted by older clients.
var contentTypeAliases = map[string]ContentType{
	"PPT":   ContentTypePresentation,
	"FLASH": ContentTypeFlashcards,
	"MCQ":   ContentTypeQuiz,
	"POD":   ContentTypePodcast,
}

// ParseContentType resolves a client-supplied content type, case-insensitively.
func ParseContentType(s string) (ContentType, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if ct, ok := contentTypeAliases[upper]; ok {
		return ct, nil
	}
	ct := ContentType(upper)
	if !ct.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, s)
	}
	return ct, nil
}

// IsValid reports whether ct is one of the known content types.
func (ct ContentType) IsValid() bool {
	switch ct {
	case ContentTypePresentation, ContentTypeFlashcards, ContentTypeQuiz, ContentTypePodcast:
		return true
	default:
		return false
	}
}

// TaskStatus is the lifecycle state of a GeneratedContent row.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailure TaskStatus = "FAILURE"
)

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusSuccess, TaskStatusFailure:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailure
}

var (
	ErrEmptyContentID        = errors.New("content ID cannot be empty")
	ErrEmptyContentProjectID = errors.New("content project ID cannot be empty")
	ErrEmptyArtifactURL      = errors.New("successful content must have an artifact URL")
	ErrUnexpectedArtifactURL = errors.New("only successful content may have an artifact URL")
)

// GeneratedContent is one generation job and, once complete, its artifact.
// It is created PENDING and moves exactly once to SUCCESS or FAILURE.
type GeneratedContent struct {
	ID           uuid.UUID       `json:"id"`
	ProjectID    uuid.UUID       `json:"project_id"`
	ContentType  ContentType     `json:"content_type"`
	Status       TaskStatus      `json:"task_status"`
	TaskID       uuid.UUID       `json:"task_id"`
	Options      json.RawMessage `json:"options,omitempty"`
	FileURL      string          `json:"file_url,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Cost         float64         `json:"cost"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewGeneratedContent creates a PENDING job for projectID.
func NewGeneratedContent(projectID uuid.UUID, contentType ContentType, options json.RawMessage) (*GeneratedContent, error) {
	now := time.Now().UTC()
	c := &GeneratedContent{
		ID:          uuid.New(),
		ProjectID:   projectID,
		ContentType: contentType,
		Status:      TaskStatusPending,
		Options:     options,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the GeneratedContent has valid data, including the
// pairing of status and artifact URL.
func (c *GeneratedContent) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyContentID
	}
	if c.ProjectID == uuid.Nil {
		return ErrEmptyContentProjectID
	}
	if !c.ContentType.IsValid() {
		return ErrInvalidContentType
	}
	if !c.Status.IsValid() {
		return ErrInvalidTaskStatus
	}
	if c.Status == TaskStatusSuccess && c.FileURL == "" {
		return ErrEmptyArtifactURL
	}
	if c.Status != TaskStatusSuccess && c.FileURL != "" {
		return ErrUnexpectedArtifactURL
	}
	return nil
}

// MarkSucceeded records the artifact URL and the cost charged for the job.
func (c *GeneratedContent) MarkSucceeded(fileURL string, cost float64) error {
	if c.Status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, c.Status, TaskStatusSuccess)
	}
	if fileURL == "" {
		return ErrEmptyArtifactURL
	}
	c.Status = TaskStatusSuccess
	c.FileURL = fileURL
	c.Cost = cost
	c.ErrorMessage = ""
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed records a failure. Any artifact URL is cleared.
func (c *GeneratedContent) MarkFailed(message string, cost float64) error {
	if c.Status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, c.Status, TaskStatusFailure)
	}
	c.Status = TaskStatusFailure
	c.FileURL = ""
	c.ErrorMessage = message
	c.Cost = cost
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ArtifactName is the object name suffix used when storing the artifact.
func (ct ContentType) ArtifactName() string {
	switch ct {
	case ContentTypePresentation:
		return "presentation.json"
	case ContentTypeFlashcards:
		return "flashcards.json"
	case ContentTypeQuiz:
		return "mcqs.json"
	case ContentTypePodcast:
		return "podcast.mp3"
	default:
		return "artifact.bin"
	}
}
