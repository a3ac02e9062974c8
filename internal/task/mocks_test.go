package task

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockTask is a Task with a pluggable Execute.
type MockTask struct {
	TaskID      uuid.UUID
	TaskType    string
	TaskPayload []byte
	TaskStatus  TaskStatus
	ExecuteFn   func(ctx context.Context) error
}

func NewMockTask(taskType string) *MockTask {
	return &MockTask{
		TaskID:      uuid.New(),
		TaskType:    taskType,
		TaskPayload: []byte(`{}`),
		TaskStatus:  TaskStatusPending,
		ExecuteFn:   func(ctx context.Context) error { return nil },
	}
}

func (t *MockTask) ID() uuid.UUID                     { return t.TaskID }
func (t *MockTask) Type() string                      { return t.TaskType }
func (t *MockTask) Payload() []byte                   { return t.TaskPayload }
func (t *MockTask) Status() TaskStatus                { return t.TaskStatus }
func (t *MockTask) Execute(ctx context.Context) error { return t.ExecuteFn(ctx) }

// MockTaskStore keeps task records in memory.
type MockTaskStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	SaveErr error
	history map[uuid.UUID][]TaskStatus
}

func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		records: make(map[uuid.UUID]*Record),
		history: make(map[uuid.UUID][]TaskStatus),
	}
}

func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.put(Record{ID: task.ID(), Type: task.Type(), Payload: task.Payload(), Status: TaskStatusPending})
	return nil
}

// put inserts a record; a zero UpdatedAt means now.
func (s *MockTaskStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	s.records[rec.ID] = &rec
}

func (s *MockTaskStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status TaskStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return errors.New("task not found")
	}
	rec.Status = status
	rec.ErrorMessage = errMsg
	rec.UpdatedAt = time.Now()
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *MockTaskStore) list(status TaskStatus, olderThan time.Duration) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(rec.UpdatedAt) < olderThan {
			continue
		}
		out = append(out, *rec)
	}
	return out
}

func (s *MockTaskStore) GetPendingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error) {
	return s.list(TaskStatusPending, olderThan), nil
}

func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error) {
	return s.list(TaskStatusProcessing, olderThan), nil
}

func (s *MockTaskStore) WithTx(tx *sql.Tx) TaskStore { return s }

func (s *MockTaskStore) Status(id uuid.UUID) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.Status
	}
	return ""
}

func (s *MockTaskStore) History(id uuid.UUID) []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TaskStatus(nil), s.history[id]...)
}

func (s *MockTaskStore) Record(id uuid.UUID) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.records[id]
}

// fakeContents serves and records generation jobs.
type fakeContents struct {
	content *domain.GeneratedContent
	err     error
}

func (f *fakeContents) GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

type fakeProjects struct {
	project *domain.Project
	err     error
}

func (f *fakeProjects) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.project, nil
}

type fakeDocuments struct {
	text      string
	err       error
	lastLimit int
}

func (f *fakeDocuments) ReadText(ctx context.Context, fileKey string, limit int) (string, error) {
	f.lastLimit = limit
	return f.text, f.err
}

type fakeGenerator struct {
	usage     domain.Usage
	err       error
	calls     int
	lastOpts  any
	lastTitle string
	history   []domain.ChatMessage
	question  string
	questions []string
	reply     string
}

func (g *fakeGenerator) GeneratePresentation(ctx context.Context, text string, opts domain.PresentationOptions) (*domain.Presentation, domain.Usage, error) {
	g.calls++
	g.lastOpts = opts
	if g.err != nil {
		return nil, domain.Usage{}, g.err
	}
	return &domain.Presentation{Slides: []domain.Slide{{Title: "Intro", Content: []string{"a"}}}}, g.usage, nil
}

func (g *fakeGenerator) GenerateFlashcards(ctx context.Context, text string, opts domain.FlashcardOptions) (*domain.FlashcardSet, domain.Usage, error) {
	g.calls++
	g.lastOpts = opts
	if g.err != nil {
		return nil, domain.Usage{}, g.err
	}
	return &domain.FlashcardSet{Flashcards: []domain.Flashcard{{Question: "Q", Answer: "A"}}}, g.usage, nil
}

func (g *fakeGenerator) GenerateQuiz(ctx context.Context, text string, opts domain.QuizOptions) (*domain.MCQSet, domain.Usage, error) {
	g.calls++
	g.lastOpts = opts
	if g.err != nil {
		return nil, domain.Usage{}, g.err
	}
	return &domain.MCQSet{MCQs: []domain.MCQ{{QuestionText: "Q"}}}, g.usage, nil
}

func (g *fakeGenerator) GeneratePodcastScript(ctx context.Context, title, text string, opts domain.PodcastScriptOptions) (*domain.PodcastScript, domain.Usage, error) {
	g.calls++
	g.lastOpts = opts
	g.lastTitle = title
	if g.err != nil {
		return nil, domain.Usage{}, g.err
	}
	return &domain.PodcastScript{Title: title, Body: "Welcome to the show."}, g.usage, nil
}

func (g *fakeGenerator) ChatReply(ctx context.Context, text string, history []domain.ChatMessage, question string) (string, domain.Usage, error) {
	g.calls++
	g.history = history
	g.question = question
	g.questions = append(g.questions, question)
	if g.err != nil {
		return "", domain.Usage{}, g.err
	}
	return g.reply, g.usage, nil
}

type fakeSpeech struct {
	err       error
	lastText  string
	lastVoice domain.VoiceOptions
}

func (s *fakeSpeech) Synthesize(ctx context.Context, text string, voice domain.VoiceOptions) ([]byte, error) {
	s.lastText = text
	s.lastVoice = voice
	if s.err != nil {
		return nil, s.err
	}
	return []byte("ID3audio"), nil
}

type fakeArtifacts struct {
	putErr      error
	keys        []string
	contentType string
	data        []byte
	deleted     []string
}

func (a *fakeArtifacts) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if a.putErr != nil {
		return "", a.putErr
	}
	a.keys = append(a.keys, key)
	a.data = data
	a.contentType = contentType
	return "https://bucket.example/" + key, nil
}

func (a *fakeArtifacts) Delete(ctx context.Context, key string) error {
	a.deleted = append(a.deleted, key)
	return nil
}

type fakeFinalizer struct {
	completeErr error
	completed   bool
	url         string
	usage       domain.Usage
	failed      bool
	cause       error
}

func (f *fakeFinalizer) Complete(ctx context.Context, userID, contentID uuid.UUID, fileURL string, usage domain.Usage) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = true
	f.url = fileURL
	f.usage = usage
	return nil
}

func (f *fakeFinalizer) Fail(ctx context.Context, contentID uuid.UUID, cause error) error {
	f.failed = true
	f.cause = cause
	return nil
}

// fakeReplies holds one session's messages in posting order.
type fakeReplies struct {
	messages []domain.ChatMessage
	saved    string
	usage    domain.Usage
	saveErr  error
}

func (r *fakeReplies) Thread(ctx context.Context, sessionID, messageID uuid.UUID, historyLimit int) (*domain.ChatThread, error) {
	for i, m := range r.messages {
		if m.ID != messageID {
			continue
		}
		history := r.messages[:i]
		if len(history) > historyLimit {
			history = history[len(history)-historyLimit:]
		}
		thread := &domain.ChatThread{Question: m, History: append([]domain.ChatMessage{}, history...)}
		for _, other := range r.messages {
			if other.ReplyTo != nil && *other.ReplyTo == messageID {
				thread.Answered = true
			}
		}
		return thread, nil
	}
	return nil, store.ErrChatMessageNotFound
}

func (r *fakeReplies) SaveReply(ctx context.Context, userID, sessionID, questionID uuid.UUID, reply string, usage domain.Usage) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = reply
	r.usage = usage
	r.messages = append(r.messages, domain.ChatMessage{ID: uuid.New(), Sender: domain.SenderAI, Message: reply, ReplyTo: &questionID})
	return nil
}
