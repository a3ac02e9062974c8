package generation

import (
	"context"

	"github.com/phrazzld/edumind-api/internal/domain"
)

// Generator produces study material from document text. Every call reports
// the token usage it consumed so the caller can bill for it.
type Generator interface {
	GeneratePresentation(ctx context.Context, text string, opts domain.PresentationOptions) (*domain.Presentation, domain.Usage, error)
	GenerateFlashcards(ctx context.Context, text string, opts domain.FlashcardOptions) (*domain.FlashcardSet, domain.Usage, error)
	GenerateQuiz(ctx context.Context, text string, opts domain.QuizOptions) (*domain.MCQSet, domain.Usage, error)

	// GeneratePodcastScript writes a narration script for the document titled title.
	GeneratePodcastScript(ctx context.Context, title, text string, opts domain.PodcastScriptOptions) (*domain.PodcastScript, domain.Usage, error)

	// ChatReply answers question about the document given the prior conversation.
	ChatReply(ctx context.Context, text string, history []domain.ChatMessage, question string) (string, domain.Usage, error)
}

// Synthesizer converts narration text to MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice domain.VoiceOptions) ([]byte, error)
}
