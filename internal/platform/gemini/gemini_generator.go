package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/edumind-api/internal/config"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/generation"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"google.golang.org/genai"
)

const (
	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 2
)

// modelAPI is the subset of genai's Models service used by GeminiGenerator.
type modelAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements generation.Generator using the Gemini API.
type GeminiGenerator struct {
	logger     *slog.Logger
	models     modelAPI
	model      string
	maxRetries int
	baseDelay  time.Duration
	prompts    *template.Template
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini client from cfg.
func NewGeminiGenerator(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	return newGenerator(client.Models, log, cfg)
}

func newGenerator(models modelAPI, log *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	prompts, err := loadPrompts()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidConfig, err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		log.Warn("invalid max retries value, using default", "max_retries", defaultMaxRetries)
		maxRetries = defaultMaxRetries
	}
	delaySeconds := cfg.RetryDelaySeconds
	if delaySeconds < 1 {
		delaySeconds = defaultRetryDelaySeconds
	}

	return &GeminiGenerator{
		logger:     log.With("component", "gemini_generator", "model", cfg.ModelName),
		models:     models,
		model:      cfg.ModelName,
		maxRetries: maxRetries,
		baseDelay:  time.Duration(delaySeconds) * time.Second,
		prompts:    prompts,
		sleep:      sleepContext,
	}, nil
}

// GeneratePresentation implements generation.Generator.
func (g *GeminiGenerator) GeneratePresentation(ctx context.Context, text string, opts domain.PresentationOptions) (*domain.Presentation, domain.Usage, error) {
	var out domain.Presentation
	usage, err := g.generateJSON(ctx, promptPresentation, promptData{Text: text, Options: opts}, &out)
	if err != nil {
		return nil, usage, err
	}
	if len(out.Slides) == 0 {
		return nil, usage, fmt.Errorf("%w: no slides in response", generation.ErrInvalidResponse)
	}
	for i, s := range out.Slides {
		if strings.TrimSpace(s.Title) == "" {
			return nil, usage, fmt.Errorf("%w: slide %d missing title", generation.ErrInvalidResponse, i)
		}
		if !opts.IncludeImages {
			out.Slides[i].ImagePrompt = ""
		}
	}
	return &out, usage, nil
}

// GenerateFlashcards implements generation.Generator.
func (g *GeminiGenerator) GenerateFlashcards(ctx context.Context, text string, opts domain.FlashcardOptions) (*domain.FlashcardSet, domain.Usage, error) {
	var out domain.FlashcardSet
	usage, err := g.generateJSON(ctx, promptFlashcards, promptData{Text: text, Options: opts}, &out)
	if err != nil {
		return nil, usage, err
	}
	if len(out.Flashcards) == 0 {
		return nil, usage, fmt.Errorf("%w: no flashcards in response", generation.ErrInvalidResponse)
	}
	for i, c := range out.Flashcards {
		if strings.TrimSpace(c.Question) == "" || strings.TrimSpace(c.Answer) == "" {
			return nil, usage, fmt.Errorf("%w: flashcard %d missing question or answer", generation.ErrInvalidResponse, i)
		}
	}
	return &out, usage, nil
}

// GenerateQuiz implements generation.Generator.
func (g *GeminiGenerator) GenerateQuiz(ctx context.Context, text string, opts domain.QuizOptions) (*domain.MCQSet, domain.Usage, error) {
	var out domain.MCQSet
	usage, err := g.generateJSON(ctx, promptQuiz, promptData{Text: text, Options: opts}, &out)
	if err != nil {
		return nil, usage, err
	}
	if len(out.MCQs) == 0 {
		return nil, usage, fmt.Errorf("%w: no questions in response", generation.ErrInvalidResponse)
	}
	for i, q := range out.MCQs {
		if strings.TrimSpace(q.QuestionText) == "" || len(q.Options) < 2 {
			return nil, usage, fmt.Errorf("%w: question %d is incomplete", generation.ErrInvalidResponse, i)
		}
		if q.CorrectCount() == 0 {
			return nil, usage, fmt.Errorf("%w: question %d has no correct option", generation.ErrInvalidResponse, i)
		}
	}
	return &out, usage, nil
}

// GeneratePodcastScript implements generation.Generator.
func (g *GeminiGenerator) GeneratePodcastScript(ctx context.Context, title, text string, opts domain.PodcastScriptOptions) (*domain.PodcastScript, domain.Usage, error) {
	var out struct {
		Script domain.PodcastScript `json:"script"`
	}
	usage, err := g.generateJSON(ctx, promptPodcast, promptData{Title: title, Text: text, Options: opts}, &out)
	if err != nil {
		return nil, usage, err
	}
	if strings.TrimSpace(out.Script.Body) == "" {
		return nil, usage, fmt.Errorf("%w: podcast script has no body", generation.ErrInvalidResponse)
	}
	if out.Script.Title == "" {
		out.Script.Title = title
	}
	return &out.Script, usage, nil
}

// ChatReply implements generation.Generator.
func (g *GeminiGenerator) ChatReply(ctx context.Context, text string, history []domain.ChatMessage, question string) (string, domain.Usage, error) {
	if strings.TrimSpace(question) == "" {
		return "", domain.Usage{}, generation.ErrEmptyInput
	}
	prompt, err := renderPrompt(g.prompts, promptChat, promptData{Text: text, History: history, Question: question})
	if err != nil {
		return "", domain.Usage{}, err
	}
	reply, usage, err := g.callGeminiWithRetry(ctx, prompt, nil)
	if err != nil {
		return "", usage, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", usage, fmt.Errorf("%w: empty reply", generation.ErrInvalidResponse)
	}
	return reply, usage, nil
}

// generateJSON renders the named prompt, calls the model in JSON mode and
// decodes the reply into target.
func (g *GeminiGenerator) generateJSON(ctx context.Context, name string, data promptData, target any) (domain.Usage, error) {
	if strings.TrimSpace(data.Text) == "" {
		return domain.Usage{}, generation.ErrEmptyInput
	}
	prompt, err := renderPrompt(g.prompts, name, data)
	if err != nil {
		return domain.Usage{}, err
	}

	text, usage, err := g.callGeminiWithRetry(ctx, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return usage, err
	}
	if err := json.Unmarshal([]byte(cleanJSONBlock(text)), target); err != nil {
		logger.FromContextOrDefault(ctx, g.logger).Warn("unparseable model response",
			"prompt", name, "response_length", len(text), "error", err)
		return usage, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	return usage, nil
}

// callGeminiWithRetry calls the model up to maxRetries+1 times. Only
// transient failures are retried.
func (g *GeminiGenerator) callGeminiWithRetry(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, domain.Usage, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	for attempt := 0; ; attempt++ {
		text, usage, err := g.call(ctx, prompt, cfg)
		if err == nil {
			log.Debug("gemini call succeeded", "attempt", attempt+1,
				"prompt_tokens", usage.PromptTokens, "completion_tokens", usage.CompletionTokens)
			return text, usage, nil
		}
		if ctx.Err() != nil {
			return "", domain.Usage{}, ctx.Err()
		}
		if !errors.Is(err, generation.ErrTransientFailure) {
			log.Warn("permanent gemini error, not retrying", "attempt", attempt+1, "error", err)
			return "", usage, err
		}
		if attempt >= g.maxRetries {
			log.Error("gemini retries exhausted", "max_retries", g.maxRetries, "error", err)
			return "", domain.Usage{}, fmt.Errorf("exceeded maximum retry attempts (%d): %w", g.maxRetries, err)
		}

		delay := g.backoff(attempt)
		log.Info("retrying gemini call", "attempt", attempt+1, "delay", delay, "error", err)
		if err := g.sleep(ctx, delay); err != nil {
			return "", domain.Usage{}, err
		}
	}
}

// backoff returns baseDelay * 2^attempt scaled by a jitter factor in [0.5, 1.0).
func (g *GeminiGenerator) backoff(attempt int) time.Duration {
	factor := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(g.baseDelay) * math.Pow(2, float64(attempt)) * factor)
}

func (g *GeminiGenerator) call(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, domain.Usage, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", domain.Usage{}, classifyError(err)
	}
	if resp == nil {
		return "", domain.Usage{}, fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}

	usage := usageOf(resp)
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", usage, fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", usage, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		return "", usage, fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", usage, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}
	return sb.String(), usage, nil
}

func usageOf(resp *genai.GenerateContentResponse) domain.Usage {
	if resp.UsageMetadata == nil {
		return domain.Usage{}
	}
	return domain.Usage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
	}
}

// classifyError marks rate limits, server errors and transport failures as
// transient. Other API errors are permanent.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
}

// cleanJSONBlock strips a markdown code fence around a JSON reply.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "```json"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "```json"), "```")
	case strings.HasPrefix(text, "```"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	}
	return strings.TrimSpace(text)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
