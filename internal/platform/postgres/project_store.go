package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/store"
)

const projectColumns = `id, user_id, name, file_key, file_url, original_file_name, created_at, updated_at`

// PostgresProjectStore implements store.ProjectStore.
type PostgresProjectStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProjectStore creates a project store.
func NewPostgresProjectStore(db store.DBTX, logger *slog.Logger) *PostgresProjectStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProjectStore{db: db, logger: logger.With("component", "project_store")}
}

var _ store.ProjectStore = (*PostgresProjectStore)(nil)

// Create implements store.ProjectStore.
func (s *PostgresProjectStore) Create(ctx context.Context, p *domain.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.UserID, p.Name, p.FileKey, p.FileURL, p.OriginalFileName, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: user %s not found", store.ErrInvalidEntity, p.UserID)
		}
		if IsUniqueViolation(err) {
			return store.ErrFileKeyInUse
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create project",
			"project_id", p.ID, "error", err)
		return MapError(err)
	}
	return nil
}

// GetByID implements store.ProjectStore.
func (s *PostgresProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

// GetForUser implements store.ProjectStore.
func (s *PostgresProjectStore) GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	return scanProject(row)
}

// ListByUser implements store.ProjectStore.
func (s *PostgresProjectStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list projects", "user_id", userID, "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	projects := []*domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return projects, nil
}

// UpdateFile implements store.ProjectStore.
func (s *PostgresProjectStore) UpdateFile(ctx context.Context, p *domain.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET file_key = $1, file_url = $2, original_file_name = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6
	`, p.FileKey, p.FileURL, p.OriginalFileName, p.UpdatedAt, p.ID, p.UserID)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrFileKeyInUse
		}
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrProjectNotFound)
}

// Delete implements store.ProjectStore.
func (s *PostgresProjectStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete project", "project_id", id, "error", err)
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrProjectNotFound)
}

// WithTx implements store.ProjectStore.
func (s *PostgresProjectStore) WithTx(tx *sql.Tx) store.ProjectStore {
	return &PostgresProjectStore{db: tx, logger: s.logger}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.FileKey, &p.FileURL, &p.OriginalFileName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProjectNotFound
		}
		return nil, MapError(err)
	}
	return &p, nil
}

const contentColumns = `c.id, c.project_id, c.content_type, c.status, c.task_id, c.options,
	c.file_url, c.error_message, c.cost, c.created_at, c.updated_at`

// PostgresContentStore implements store.ContentStore.
type PostgresContentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresContentStore creates a generated content store.
func NewPostgresContentStore(db store.DBTX, logger *slog.Logger) *PostgresContentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresContentStore{db: db, logger: logger.With("component", "content_store")}
}

var _ store.ContentStore = (*PostgresContentStore)(nil)

// Create implements store.ContentStore.
func (s *PostgresContentStore) Create(ctx context.Context, c *domain.GeneratedContent) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generated_content
			(id, project_id, content_type, status, task_id, options, file_url, error_message, cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, c.ProjectID, c.ContentType, c.Status, nullUUID(c.TaskID), optionsJSON(c.Options),
		c.FileURL, c.ErrorMessage, c.Cost, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrProjectNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create content", "content_id", c.ID, "error", err)
		return MapError(err)
	}
	return nil
}

// GetByID implements store.ContentStore.
func (s *PostgresContentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedContent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM generated_content c WHERE c.id = $1`, id)
	return scanContent(row)
}

// GetForUser implements store.ContentStore.
func (s *PostgresContentStore) GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.GeneratedContent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contentColumns+`
		FROM generated_content c
		JOIN projects p ON p.id = c.project_id
		WHERE c.id = $1 AND p.user_id = $2
	`, id, userID)
	return scanContent(row)
}

// ListForUser implements store.ContentStore.
func (s *PostgresContentStore) ListForUser(ctx context.Context, userID uuid.UUID, filter store.ContentFilter) ([]*domain.GeneratedContent, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM generated_content c
		JOIN projects p ON p.id = c.project_id
		WHERE p.user_id = $1`
	args := []any{userID}
	if filter.ProjectID != nil {
		query += ` AND c.project_id = $2`
		args = append(args, *filter.ProjectID)
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list content", "user_id", userID, "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	items := []*domain.GeneratedContent{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return items, nil
}

// Finalize writes the terminal state of c. The WHERE clause makes the
// PENDING to terminal transition happen at most once.
func (s *PostgresContentStore) Finalize(ctx context.Context, c *domain.GeneratedContent) error {
	if !c.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is not terminal", domain.ErrInvalidTaskStatus, c.Status)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE generated_content
		SET status = $1, file_url = $2, error_message = $3, cost = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, c.Status, c.FileURL, c.ErrorMessage, c.Cost, c.UpdatedAt, c.ID, domain.TaskStatusPending)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to finalize content", "content_id", c.ID, "error", err)
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrAlreadyFinalized)
}

// WithTx implements store.ContentStore.
func (s *PostgresContentStore) WithTx(tx *sql.Tx) store.ContentStore {
	return &PostgresContentStore{db: tx, logger: s.logger}
}

func scanContent(row rowScanner) (*domain.GeneratedContent, error) {
	var (
		c       domain.GeneratedContent
		taskID  uuid.NullUUID
		options []byte
	)
	err := row.Scan(&c.ID, &c.ProjectID, &c.ContentType, &c.Status, &taskID, &options,
		&c.FileURL, &c.ErrorMessage, &c.Cost, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrContentNotFound
		}
		return nil, MapError(err)
	}
	if taskID.Valid {
		c.TaskID = taskID.UUID
	}
	if len(options) > 0 {
		c.Options = options
	}
	return &c, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

// optionsJSON returns a JSONB-compatible parameter; empty options are stored as {}.
func optionsJSON(raw []byte) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

// PostgresChatStore implements store.ChatStore.
type PostgresChatStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresChatStore creates a chat store.
func NewPostgresChatStore(db store.DBTX, logger *slog.Logger) *PostgresChatStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresChatStore{db: db, logger: logger.With("component", "chat_store")}
}

var _ store.ChatStore = (*PostgresChatStore)(nil)

// GetOrCreateSession relies on the unique project_id to keep one session per project.
func (s *PostgresChatStore) GetOrCreateSession(ctx context.Context, projectID uuid.UUID) (*domain.ChatSession, error) {
	session, err := domain.NewChatSession(projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id) DO NOTHING
	`, session.ID, session.ProjectID, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return nil, store.ErrProjectNotFound
		}
		return nil, MapError(err)
	}

	var out domain.ChatSession
	err = s.db.QueryRowContext(ctx, `
		SELECT id, project_id, created_at, updated_at FROM chat_sessions WHERE project_id = $1
	`, projectID).Scan(&out.ID, &out.ProjectID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrChatSessionNotFound
		}
		return nil, MapError(err)
	}
	out.Messages = []domain.ChatMessage{}
	return &out, nil
}

// GetSession implements store.ChatStore. Messages are not loaded.
func (s *PostgresChatStore) GetSession(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	var out domain.ChatSession
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, created_at, updated_at FROM chat_sessions WHERE id = $1
	`, id).Scan(&out.ID, &out.ProjectID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrChatSessionNotFound
		}
		return nil, MapError(err)
	}
	out.Messages = []domain.ChatMessage{}
	return &out, nil
}

// ListSessionsForUser implements store.ChatStore with a single join query.
func (s *PostgresChatStore) ListSessionsForUser(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]*domain.ChatSession, error) {
	query := `
		SELECT s.id, s.project_id, s.created_at, s.updated_at,
			m.id, m.sender, m.message, m.created_at
		FROM chat_sessions s
		JOIN projects p ON p.id = s.project_id
		LEFT JOIN chat_messages m ON m.session_id = s.id
		WHERE p.user_id = $1`
	args := []any{userID}
	if projectID != nil {
		query += ` AND s.project_id = $2`
		args = append(args, *projectID)
	}
	query += ` ORDER BY s.created_at DESC, s.id, m.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list chat sessions", "user_id", userID, "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	sessions := []*domain.ChatSession{}
	byID := map[uuid.UUID]*domain.ChatSession{}
	for rows.Next() {
		var (
			sess      domain.ChatSession
			msgID     uuid.NullUUID
			sender    sql.NullString
			message   sql.NullString
			createdAt sql.NullTime
		)
		if err := rows.Scan(&sess.ID, &sess.ProjectID, &sess.CreatedAt, &sess.UpdatedAt,
			&msgID, &sender, &message, &createdAt); err != nil {
			return nil, MapError(err)
		}
		cur, ok := byID[sess.ID]
		if !ok {
			sess.Messages = []domain.ChatMessage{}
			cur = &sess
			byID[sess.ID] = cur
			sessions = append(sessions, cur)
		}
		if msgID.Valid {
			cur.Messages = append(cur.Messages, domain.ChatMessage{
				ID:        msgID.UUID,
				SessionID: cur.ID,
				Sender:    domain.Sender(sender.String),
				Message:   message.String,
				CreatedAt: createdAt.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return sessions, nil
}

// AddMessage inserts msg and touches the session's updated_at.
func (s *PostgresChatStore) AddMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	var replyTo any
	if msg.ReplyTo != nil {
		replyTo = *msg.ReplyTo
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, sender, message, reply_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.SessionID, msg.Sender, msg.Message, replyTo, msg.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrChatSessionNotFound
		}
		if IsUniqueViolation(err) && msg.ReplyTo != nil {
			return store.ErrReplyExists
		}
		return MapError(err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), msg.SessionID,
	); err != nil {
		return MapError(err)
	}
	return nil
}

// GetMessage implements store.ChatStore.
func (s *PostgresChatStore) GetMessage(ctx context.Context, sessionID, messageID uuid.UUID) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	var replyTo uuid.NullUUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, sender, message, reply_to, created_at
		FROM chat_messages
		WHERE id = $1 AND session_id = $2
	`, messageID, sessionID).Scan(&m.ID, &m.SessionID, &m.Sender, &m.Message, &replyTo, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrChatMessageNotFound
		}
		return nil, MapError(err)
	}
	if replyTo.Valid {
		m.ReplyTo = &replyTo.UUID
	}
	return &m, nil
}

// HasReply implements store.ChatStore.
func (s *PostgresChatStore) HasReply(ctx context.Context, messageID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_messages WHERE reply_to = $1)`, messageID,
	).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// MessagesBefore implements store.ChatStore.
func (s *PostgresChatStore) MessagesBefore(ctx context.Context, sessionID uuid.UUID, before time.Time, limit int) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, sender, message, created_at FROM (
			SELECT id, session_id, sender, message, created_at
			FROM chat_messages
			WHERE session_id = $1 AND created_at < $2
			ORDER BY created_at DESC
			LIMIT $3
		) recent ORDER BY created_at ASC
	`, sessionID, before, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return messages, nil
}

// WithTx implements store.ChatStore.
func (s *PostgresChatStore) WithTx(tx *sql.Tx) store.ChatStore {
	return &PostgresChatStore{db: tx, logger: s.logger}
}
