package generation

import "errors"

var (
	// ErrGenerationFailed is returned when generation fails for a non-retryable reason.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrInvalidResponse is returned when the model output cannot be parsed into the expected shape.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model refuses the input on safety grounds.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure marks errors worth retrying: rate limits, 5xx, timeouts.
	ErrTransientFailure = errors.New("transient error during content generation")

	// ErrInvalidConfig is returned when a client is constructed with bad settings.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyInput is returned when there is no text to work from.
	ErrEmptyInput = errors.New("no input text for generation")

	// ErrSynthesisFailed is returned when speech synthesis produces no audio.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)
