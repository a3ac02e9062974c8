package domain

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyProjectID      = errors.New("project ID cannot be empty")
	ErrEmptyProjectUserID  = errors.New("project user ID cannot be empty")
	ErrEmptyProjectName    = errors.New("project name cannot be empty")
	ErrProjectNameTooLong  = errors.New("project name must be at most 255 characters")
	ErrEmptyFileKey        = errors.New("file key cannot be empty")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

const maxProjectNameLength = 255

// SupportedExtensions lists the source document formats text can be extracted from.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

// Project is a user's uploaded source document and the unit content is generated from.
// Each project references exactly one object in the object store.
type Project struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Name             string    `json:"name"`
	FileKey          string    `json:"file_key"`
	FileURL          string    `json:"file_url"`
	OriginalFileName string    `json:"original_file_name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewProject creates a project for userID referencing an uploaded file.
// When originalFileName is empty it is derived from the key.
func NewProject(userID uuid.UUID, name, fileKey, fileURL, originalFileName string) (*Project, error) {
	if originalFileName == "" {
		originalFileName = path.Base(fileKey)
	}
	now := time.Now().UTC()
	p := &Project{
		ID:               uuid.New(),
		UserID:           userID,
		Name:             strings.TrimSpace(name),
		FileKey:          fileKey,
		FileURL:          fileURL,
		OriginalFileName: originalFileName,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks if the Project has valid data.
func (p *Project) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyProjectID
	}
	if p.UserID == uuid.Nil {
		return ErrEmptyProjectUserID
	}
	if p.Name == "" {
		return ErrEmptyProjectName
	}
	if len(p.Name) > maxProjectNameLength {
		return ErrProjectNameTooLong
	}
	if p.FileKey == "" {
		return ErrEmptyFileKey
	}
	return nil
}

// ReplaceFile points the project at a new source object.
func (p *Project) ReplaceFile(fileKey, fileURL, originalFileName string) error {
	if fileKey == "" {
		return ErrEmptyFileKey
	}
	p.FileKey = fileKey
	p.FileURL = fileURL
	p.OriginalFileName = originalFileName
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// IsSupportedFile reports whether name has an extension text can be extracted from.
func IsSupportedFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
