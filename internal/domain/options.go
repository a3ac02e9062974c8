package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var optionsValidator = newOptionsValidator()

// newOptionsValidator reports fields by their JSON names.
func newOptionsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Options are the type-specific generation parameters stored with a job.
type Options interface {
	ContentType() ContentType
}

// PresentationOptions parameterizes slide deck generation.
type PresentationOptions struct {
	SlidesCount   int  `json:"slides_count"   validate:"gte=3,lte=20"`
	IncludeImages bool `json:"include_images"`
}

// FlashcardOptions parameterizes flashcard generation.
type FlashcardOptions struct {
	CardsCount int    `json:"cards_count" validate:"gte=5,lte=50"`
	CardType   string `json:"card_type"   validate:"oneof=qa true_false fill_blank"`
	Difficulty string `json:"difficulty"  validate:"oneof=easy medium hard mixed"`
}

// QuizOptions parameterizes multiple-choice question generation.
type QuizOptions struct {
	QuestionsCount int    `json:"questions_count" validate:"gte=5,lte=30"`
	QuestionsType  string `json:"questions_type"  validate:"oneof=single_correct multiple_correct true_false"`
	Difficulty     string `json:"difficulty"      validate:"oneof=easy medium hard mixed"`
}

// VoiceOptions selects the narration voice for podcasts.
type VoiceOptions struct {
	VoiceStyle  string `json:"voice_style"  validate:"oneof=neutral enthusiastic formal conversational"`
	VoiceGender string `json:"voice_gender" validate:"oneof=male female"`
	VoiceAccent string `json:"voice_accent" validate:"oneof=american british indian australian canadian"`
}

// PodcastScriptOptions parameterizes podcast script writing.
type PodcastScriptOptions struct {
	PodcastLength string `json:"podcast_length" validate:"oneof=quick medium comprehensive"`
	ContentFocus  string `json:"content_focus"  validate:"oneof=full_document key_concepts summary"`
}

// PodcastOptions parameterizes full podcast generation: script and narration.
type PodcastOptions struct {
	PodcastScriptOptions
	VoiceOptions
}

// PodcastAudioOptions narrates a script supplied by the client.
type PodcastAudioOptions struct {
	ScriptText string `json:"script_text" validate:"required,max=100000"`
	VoiceOptions
}

func (*PresentationOptions) ContentType() ContentType { return ContentTypePresentation }
func (*FlashcardOptions) ContentType() ContentType    { return ContentTypeFlashcards }
func (*QuizOptions) ContentType() ContentType         { return ContentTypeQuiz }
func (*PodcastOptions) ContentType() ContentType      { return ContentTypePodcast }
func (*PodcastAudioOptions) ContentType() ContentType { return ContentTypePodcast }

func defaultVoice() VoiceOptions {
	return VoiceOptions{VoiceStyle: "neutral", VoiceGender: "female", VoiceAccent: "american"}
}

func defaultScript() PodcastScriptOptions {
	return PodcastScriptOptions{PodcastLength: "medium", ContentFocus: "full_document"}
}

// DefaultOptions returns the parameters used when a client omits them.
func DefaultOptions(ct ContentType) (Options, error) {
	switch ct {
	case ContentTypePresentation:
		return &PresentationOptions{SlidesCount: 10}, nil
	case ContentTypeFlashcards:
		return &FlashcardOptions{CardsCount: 20, CardType: "qa", Difficulty: "mixed"}, nil
	case ContentTypeQuiz:
		return &QuizOptions{QuestionsCount: 15, QuestionsType: "single_correct", Difficulty: "mixed"}, nil
	case ContentTypePodcast:
		return &PodcastOptions{PodcastScriptOptions: defaultScript(), VoiceOptions: defaultVoice()}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentType, ct)
	}
}

// ParseOptions decodes raw over the defaults for ct and validates the result.
// Unknown keys, such as content_type itself, are ignored.
func ParseOptions(ct ContentType, raw json.RawMessage) (Options, error) {
	opts, err := DefaultOptions(ct)
	if err != nil {
		return nil, err
	}
	if err := decodeAndValidate(raw, opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// ParsePodcastScriptOptions decodes and validates script-only podcast parameters.
func ParsePodcastScriptOptions(raw json.RawMessage) (*PodcastScriptOptions, error) {
	opts := defaultScript()
	if err := decodeAndValidate(raw, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// ParsePodcastAudioOptions decodes and validates a narration request.
func ParsePodcastAudioOptions(raw json.RawMessage) (*PodcastAudioOptions, error) {
	opts := PodcastAudioOptions{VoiceOptions: defaultVoice()}
	if err := decodeAndValidate(raw, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

func decodeAndValidate(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOption, err)
		}
	}
	if err := optionsValidator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %s", ErrInvalidOption, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	return nil
}
