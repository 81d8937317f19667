package analyses

import (
	"context"
	"errors"
	"strings"

	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/extract"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrJobQueueNotConfigured = errors.New("job queue not configured")
	ErrFileTooLarge          = errors.New("file too large")
	ErrEmptyInput            = errors.New("text or file is required")
	errStorage               = errors.New("storage")
)

const (
	ErrorCodeValidation       = "VALIDATION_ERROR"
	ErrorCodeUnsupportedFile  = "UNSUPPORTED_FILE"
	ErrorCodeUnreadableFile   = "UNREADABLE_FILE"
	ErrorCodeModelUnavailable = "MODEL_UNAVAILABLE"
	ErrorCodeTimeout          = "ANALYSIS_TIMEOUT"
	ErrorCodeStorage          = "STORAGE_ERROR"
	ErrorCodeInternal         = "INTERNAL_ERROR"
)

// classifyFailure maps a processing error to a stored error code and
// whether a retry may succeed.
func classifyFailure(err error) (string, bool) {
	switch {
	case err == nil:
		return ErrorCodeInternal, false
	case errors.Is(err, extract.ErrUnsupported):
		return ErrorCodeUnsupportedFile, false
	case errors.Is(err, extract.ErrUnreadable):
		return ErrorCodeUnreadableFile, false
	case errors.Is(err, ErrFileTooLarge):
		return ErrorCodeValidation, false
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout, true
	case errors.Is(err, errStorage):
		return ErrorCodeStorage, true
	}
	switch engine.KindOf(err) {
	case engine.KindModelUnavailable:
		return ErrorCodeModelUnavailable, true
	case engine.KindTimeout:
		return ErrorCodeTimeout, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

// IsRetryable reports whether a failed analysis may succeed when retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	_, retryable := classifyFailure(err)
	return retryable
}
