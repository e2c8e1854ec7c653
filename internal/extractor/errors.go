package extractor

import (
	"errors"
	"fmt"
)

// Sentinel errors for the extractor package.
var (
	// ErrExtractionFailed is returned when the extractor exits non-zero for an unrecognized reason.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrRateLimited indicates the source throttled the request.
	ErrRateLimited = errors.New("rate limited by source")

	// ErrAgeRestricted indicates the media requires a signed-in, age-verified session.
	ErrAgeRestricted = errors.New("age restricted")

	// ErrUnavailable indicates the media is private, removed or otherwise gone.
	ErrUnavailable = errors.New("media unavailable")

	// ErrScheduledLive indicates the media is a premiere or live event that has not started.
	ErrScheduledLive = errors.New("scheduled live event not started")

	// ErrTimeout is returned when an invocation exceeds its wall-clock bound.
	ErrTimeout = errors.New("extraction timed out")
)

// Kind sub-classifies a non-zero extractor exit.
type Kind string

const (
	KindGeneric       Kind = "generic"
	KindRateLimited   Kind = "rate_limited"
	KindAgeRestricted Kind = "age_restricted"
	KindUnavailable   Kind = "unavailable"
	KindScheduledLive Kind = "scheduled_live"
)

// Message returns a caller-facing explanation for the kind.
func (k Kind) Message() string {
	switch k {
	case KindRateLimited:
		return "The source is rate limiting requests. Try again later."
	case KindAgeRestricted:
		return "This video is age restricted and needs a signed-in session (configure extractor.cookies_file)."
	case KindUnavailable:
		return "This video is unavailable. It may be private or removed."
	case KindScheduledLive:
		return "This video is a scheduled live event that has not started yet."
	default:
		return "The extractor could not process this URL."
	}
}

// ExtractionError describes a non-zero extractor exit.
type ExtractionError struct {
	Kind       Kind
	Stage      string // "analyze", "probe", "acquire"
	ExitCode   int
	Diagnostic string
}

func (e *ExtractionError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("%s: %s (exit %d)", e.Stage, e.Kind, e.ExitCode)
	}
	return fmt.Sprintf("%s: %s (exit %d): %s", e.Stage, e.Kind, e.ExitCode, e.Diagnostic)
}

// Unwrap exposes the sentinel for the kind so callers can use errors.Is.
func (e *ExtractionError) Unwrap() error {
	switch e.Kind {
	case KindRateLimited:
		return ErrRateLimited
	case KindAgeRestricted:
		return ErrAgeRestricted
	case KindUnavailable:
		return ErrUnavailable
	case KindScheduledLive:
		return ErrScheduledLive
	default:
		return ErrExtractionFailed
	}
}
