package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/generation"
)

// MockGenerator implements generation.Generator. Each method delegates to
// its function field when set and otherwise returns a small fixed result
// with Usage.
type MockGenerator struct {
	mu sync.Mutex

	Usage domain.Usage
	Err   error

	GeneratePodcastScriptFn func(ctx context.Context, title, text string, opts domain.PodcastScriptOptions) (*domain.PodcastScript, domain.Usage, error)
	ChatReplyFn             func(ctx context.Context, text string, history []domain.ChatMessage, question string) (string, domain.Usage, error)

	calls map[string]int
}

var _ generation.Generator = (*MockGenerator)(nil)

func (m *MockGenerator) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times method was invoked.
func (m *MockGenerator) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockGenerator) GeneratePresentation(ctx context.Context, text string, opts domain.PresentationOptions) (*domain.Presentation, domain.Usage, error) {
	m.record("GeneratePresentation")
	if m.Err != nil {
		return nil, domain.Usage{}, m.Err
	}
	return &domain.Presentation{Slides: []domain.Slide{{Title: "Overview", Content: []string{"Key point"}}}}, m.Usage, nil
}

func (m *MockGenerator) GenerateFlashcards(ctx context.Context, text string, opts domain.FlashcardOptions) (*domain.FlashcardSet, domain.Usage, error) {
	m.record("GenerateFlashcards")
	if m.Err != nil {
		return nil, domain.Usage{}, m.Err
	}
	return &domain.FlashcardSet{Flashcards: []domain.Flashcard{{Question: "Q", Answer: "A"}}}, m.Usage, nil
}

func (m *MockGenerator) GenerateQuiz(ctx context.Context, text string, opts domain.QuizOptions) (*domain.MCQSet, domain.Usage, error) {
	m.record("GenerateQuiz")
	if m.Err != nil {
		return nil, domain.Usage{}, m.Err
	}
	return &domain.MCQSet{MCQs: []domain.MCQ{{QuestionText: "Q"}}}, m.Usage, nil
}

func (m *MockGenerator) GeneratePodcastScript(ctx context.Context, title, text string, opts domain.PodcastScriptOptions) (*domain.PodcastScript, domain.Usage, error) {
	m.record("GeneratePodcastScript")
	if m.GeneratePodcastScriptFn != nil {
		return m.GeneratePodcastScriptFn(ctx, title, text, opts)
	}
	if m.Err != nil {
		return nil, domain.Usage{}, m.Err
	}
	return &domain.PodcastScript{Title: title, Body: "Welcome to the show."}, m.Usage, nil
}

func (m *MockGenerator) ChatReply(ctx context.Context, text string, history []domain.ChatMessage, question string) (string, domain.Usage, error) {
	m.record("ChatReply")
	if m.ChatReplyFn != nil {
		return m.ChatReplyFn(ctx, text, history, question)
	}
	if m.Err != nil {
		return "", domain.Usage{}, m.Err
	}
	return "An answer.", m.Usage, nil
}

// MockDocumentReader returns fixed document text.
type MockDocumentReader struct {
	mu        sync.Mutex
	Text      string
	Err       error
	LastKey   string
	LastLimit int
}

func (m *MockDocumentReader) ReadText(ctx context.Context, fileKey string, limit int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastKey = fileKey
	m.LastLimit = limit
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
