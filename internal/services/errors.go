package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying with backoff (network or
	// service hiccups).
	ErrTransient = errors.New("transient failure")
	// ErrValidation marks malformed input fatal to the current job.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or inconsistent settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks lookups against missing external resources.
	ErrNotFound = errors.New("not found")
	// ErrExternalTool marks failures reported by an external binary or API.
	ErrExternalTool = errors.New("external tool error")
	// ErrStageFailure marks a sub-task that exhausted its retry budget and
	// fails the whole job.
	ErrStageFailure = errors.New("stage failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a failure should be retried locally before
// escalating. Validation and configuration problems never heal on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrStageFailure) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrExternalTool)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
