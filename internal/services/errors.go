package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse marks an unrecognizable date token in a partition name. The
	// partition is excluded from the run; processing continues.
	ErrParse = errors.New("parse error")
	// ErrFetch marks raw-input unavailability. The partition fails this run
	// and is retried by resubmission on the next run.
	ErrFetch = errors.New("fetch error")
	// ErrEncode marks an external encoder failure. The artifact is not
	// advanced and the error is surfaced in the run report.
	ErrEncode = errors.New("encode error")
	// ErrTierUnavailable marks a transient remote tier failure. Resolution
	// degrades to a conservative miss for that tier only.
	ErrTierUnavailable = errors.New("tier unavailable")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrState marks a failure to load or persist processing state. This is
	// the only error class that aborts a run.
	ErrState = errors.New("state error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrFetch
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether the error must abort the whole run rather than be
// isolated to a single artifact key.
func Fatal(err error) bool {
	return errors.Is(err, ErrState) || errors.Is(err, ErrConfiguration)
}

// Retryable reports whether the failure is expected to self-heal on the next
// run without operator action.
func Retryable(err error) bool {
	return errors.Is(err, ErrFetch) || errors.Is(err, ErrTierUnavailable)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
