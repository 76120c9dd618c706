package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks a stage payload that remained unparseable after
	// rehabilitation. Fatal for the session.
	ErrValidation = errors.New("validation error")
	// ErrUpstream marks a failure reported by a stage worker. Fatal.
	ErrUpstream = errors.New("upstream error")
	// ErrTimeout marks a stage that produced no response within its bound. Fatal.
	ErrTimeout = errors.New("timeout")
	// ErrAssetMissing marks a referenced audio asset that could not be read.
	// Recovered inside the compositor; never fatal on its own.
	ErrAssetMissing = errors.New("asset missing")
	// ErrComposition marks a mixing pipeline failure. Fatal.
	ErrComposition = errors.New("composition error")
	// ErrConfiguration marks unusable runtime configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a lookup miss (unknown session, absent record).
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUpstream
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether a stage error must terminate the session. Only asset
// misses are survivable; the compositor swallows them per layer.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrAssetMissing)
}

// Kind returns the short classification string for an error, matching the
// sentinel that tagged it. Unrecognized errors classify as "upstream".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrAssetMissing):
		return "asset_missing"
	case errors.Is(err, ErrComposition):
		return "composition"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "upstream"
	}
}

// Message extracts the human-readable portion of a wrapped error: everything
// after the sentinel prefix. Falls back to the full error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrUpstream, ErrTimeout, ErrAssetMissing, ErrComposition, ErrConfiguration, ErrNotFound} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
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
