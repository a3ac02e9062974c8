package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/edumind-api/internal/api/shared"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/platform/objectstore"
	"github.com/phrazzld/edumind-api/internal/redact"
	"github.com/phrazzld/edumind-api/internal/service"
	"github.com/phrazzld/edumind-api/internal/service/auth"
	"github.com/phrazzld/edumind-api/internal/store"
)

// badRequestErrors are validation failures whose messages are safe to show.
var badRequestErrors = []error{
	store.ErrInvalidEntity,
	domain.ErrValidation,
	domain.ErrInvalidID,
	domain.ErrInvalidContentType,
	domain.ErrInvalidOption,
	domain.ErrUnsupportedFileType,
	domain.ErrEmptyProjectName,
	domain.ErrProjectNameTooLong,
	domain.ErrEmptyFileKey,
	domain.ErrEmptyMessage,
	domain.ErrMessageTooLong,
	domain.ErrEmptyEmail,
	domain.ErrInvalidEmail,
	domain.ErrEmptyPassword,
	domain.ErrPasswordTooShort,
	domain.ErrPasswordTooLong,
	service.ErrEmptyFile,
	service.ErrForeignFileKey,
	shared.ErrEmptyBody,
}

// MapErrorToStatusCode maps service and domain errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, store.ErrInsufficientTokens):
		return http.StatusPaymentRequired

	case store.IsNotFoundError(err):
		return http.StatusNotFound

	case store.IsDuplicateError(err):
		return http.StatusConflict

	case errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, objectstore.ErrObjectTooLarge),
		errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	}

	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a client-facing message for err. Validation
// messages are passed through after redaction; everything else gets a fixed
// message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, store.ErrInsufficientTokens):
		return "Insufficient tokens"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrProjectNotFound):
		return "Project not found"
	case errors.Is(err, store.ErrContentNotFound):
		return "Content not found"
	case errors.Is(err, store.ErrChatSessionNotFound):
		return "Chat session not found"
	case store.IsNotFoundError(err):
		return "Not found"
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrFileKeyInUse):
		return "File is already used by another project"
	case MapErrorToStatusCode(err) == http.StatusRequestEntityTooLarge:
		return "File too large"
	case MapErrorToStatusCode(err) == http.StatusBadRequest:
		return redact.Message(err)
	default:
		return "An unexpected error occurred"
	}
}

// respondWithServiceError writes the mapped status and safe message for err.
// fallback replaces the generic message for server errors.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
