package models

import (
	"context"
	"errors"
)

// Outcome tags the result of a call to an external provider.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeError       Outcome = "error"
	OutcomeRateLimited Outcome = "rate_limited"
)

// ClassifyOutcome maps an error returned by a provider call to its outcome tag.
// rateLimited reports whether err is the provider's own rate-limit signal.
func ClassifyOutcome(err error, rateLimited func(error) bool) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case rateLimited != nil && rateLimited(err):
		return OutcomeRateLimited
	default:
		return OutcomeError
	}
}
