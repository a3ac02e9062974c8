package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/platform/objectstore"
	"github.com/phrazzld/edumind-api/internal/store"
)

// ObjectStore is the subset of objectstore.Store the services use.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// UploadedFile identifies a stored source document.
type UploadedFile struct {
	Key  string `json:"file_key"`
	URL  string `json:"file_url"`
	Name string `json:"file_name"`
}

var documentContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain; charset=utf-8",
}

// ProjectService manages projects and their source documents.
type ProjectService struct {
	db       *sql.DB
	projects store.ProjectStore
	objects  ObjectStore
	maxBytes int64
	logger   *slog.Logger
}

// NewProjectService creates a ProjectService. maxBytes caps uploads.
func NewProjectService(db *sql.DB, projects store.ProjectStore, objects ObjectStore, maxBytes int64, log *slog.Logger) *ProjectService {
	if log == nil {
		log = slog.Default()
	}
	return &ProjectService{
		db:       db,
		projects: projects,
		objects:  objects,
		maxBytes: maxBytes,
		logger:   log.With("component", "project_service"),
	}
}

// UploadFile stores a source document under the user's upload area.
func (s *ProjectService) UploadFile(ctx context.Context, userID uuid.UUID, fileName string, data []byte) (*UploadedFile, error) {
	if !domain.IsSupportedFile(fileName) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, path.Ext(fileName))
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	key := objectstore.UploadKey(userID, fileName)
	url, err := s.objects.Put(ctx, key, data, documentContentTypes[strings.ToLower(path.Ext(fileName))])
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to store upload",
			"error", err,
			"user_id", userID)
		return nil, wrapError("project", "upload_file", "failed to store file", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("source document uploaded",
		"user_id", userID,
		"file_key", key,
		"bytes", len(data))
	return &UploadedFile{Key: key, URL: url, Name: path.Base(fileName)}, nil
}

// Create registers a project for a document previously uploaded by the same
// user. Each uploaded object backs at most one project.
func (s *ProjectService) Create(ctx context.Context, userID uuid.UUID, name, fileKey, originalFileName string) (*domain.Project, error) {
	if !ownsKey(userID, fileKey) {
		return nil, ErrForeignFileKey
	}
	project, err := domain.NewProject(userID, name, fileKey, s.objects.URL(fileKey), originalFileName)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, wrapError("project", "create", "failed to save project", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("project created",
		"project_id", project.ID,
		"user_id", userID)
	return project, nil
}

// Get returns the caller's project.
func (s *ProjectService) Get(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error) {
	project, err := s.projects.GetForUser(ctx, userID, projectID)
	if err != nil {
		return nil, wrapError("project", "get", "failed to load project", err)
	}
	return project, nil
}

// List returns the caller's projects, newest first.
func (s *ProjectService) List(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	projects, err := s.projects.ListByUser(ctx, userID)
	if err != nil {
		return nil, wrapError("project", "list", "failed to list projects", err)
	}
	return projects, nil
}

// Delete removes the project, its generated content and chat, then its
// source object. A failure to delete the object is logged, not returned.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var fileKey string
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		projects := s.projects.WithTx(tx)
		project, err := projects.GetForUser(ctx, userID, projectID)
		if err != nil {
			return err
		}
		fileKey = project.FileKey
		return projects.Delete(ctx, userID, projectID)
	})
	if err != nil {
		return wrapError("project", "delete", "failed to delete project", err)
	}

	if err := s.objects.Delete(ctx, fileKey); err != nil {
		log.Warn("failed to delete source object", "error", err, "file_key", fileKey)
	}
	log.Info("project deleted", "project_id", projectID, "user_id", userID)
	return nil
}

// UpdateFile replaces the project's source document. The previous object is
// deleted once the project points at the new one.
func (s *ProjectService) UpdateFile(ctx context.Context, userID, projectID uuid.UUID, fileName string, data []byte) (*domain.Project, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.projects.GetForUser(ctx, userID, projectID); err != nil {
		return nil, wrapError("project", "update_file", "failed to load project", err)
	}

	uploaded, err := s.UploadFile(ctx, userID, fileName, data)
	if err != nil {
		return nil, err
	}

	var (
		project *domain.Project
		oldKey  string
	)
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		projects := s.projects.WithTx(tx)
		p, err := projects.GetForUser(ctx, userID, projectID)
		if err != nil {
			return err
		}
		oldKey = p.FileKey
		if err := p.ReplaceFile(uploaded.Key, uploaded.URL, uploaded.Name); err != nil {
			return err
		}
		if err := projects.UpdateFile(ctx, p); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		if delErr := s.objects.Delete(ctx, uploaded.Key); delErr != nil {
			log.Warn("failed to delete orphaned upload", "error", delErr, "file_key", uploaded.Key)
		}
		return nil, wrapError("project", "update_file", "failed to update project file", err)
	}

	if oldKey != "" && oldKey != uploaded.Key {
		if err := s.objects.Delete(ctx, oldKey); err != nil {
			log.Warn("failed to delete replaced source object", "error", err, "file_key", oldKey)
		}
	}
	log.Info("project file replaced", "project_id", projectID, "file_key", uploaded.Key)
	return project, nil
}

func ownsKey(userID uuid.UUID, key string) bool {
	prefix := fmt.Sprintf("uploads/%s/", userID)
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix) && path.Clean(key) == key
}
