package service

import (
	"errors"
	"fmt"
)

// ErrProviderMisconfigured means the provider credentials are absent; no
// outbound call is attempted in that state.
var ErrProviderMisconfigured = errors.New("generation provider is not configured")

// InvalidInputError rejects generation content before any external call.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

const (
	QuotaKindQuizLimit     = "quiz_limit"
	QuotaKindDailyAttempts = "daily_attempts"
)

// QuotaExceededError carries the concrete numbers so callers can tell the
// user exactly where they stand. CurrentCount/MaxLimit are set for
// quiz_limit, AttemptsUsed/RemainingAttempts for daily_attempts.
type QuotaExceededError struct {
	Kind              string
	CurrentCount      int
	MaxLimit          int
	AttemptsUsed      int
	RemainingAttempts int
}

func (e *QuotaExceededError) Error() string {
	if e.Kind == QuotaKindQuizLimit {
		return fmt.Sprintf("quiz limit reached (%d/%d)", e.CurrentCount, e.MaxLimit)
	}
	return fmt.Sprintf("daily generation attempts exhausted (%d used, %d remaining)", e.AttemptsUsed, e.RemainingAttempts)
}

type ProviderErrorKind string

const (
	ProviderQuotaExceeded ProviderErrorKind = "provider_quota_exceeded"
	ProviderRateLimited   ProviderErrorKind = "provider_rate_limited"
	ProviderUnavailable   ProviderErrorKind = "provider_unavailable"
)

// ProviderError wraps a failure from the text-generation provider.
// Transient failures are retried exactly once by the client.
type ProviderError struct {
	Kind      ProviderErrorKind
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type NormalizationErrorKind string

const (
	MalformedProviderOutput   NormalizationErrorKind = "malformed_provider_output"
	InvalidShape              NormalizationErrorKind = "invalid_shape"
	TooFewQuestions           NormalizationErrorKind = "too_few_questions"
	InvalidCorrectAnswerCount NormalizationErrorKind = "invalid_correct_answer_count"
)

// NormalizationError reports unusable provider output. QuestionIndex is the
// zero-based offending question, or -1 when the failure is not tied to one.
type NormalizationError struct {
	Kind          NormalizationErrorKind
	QuestionIndex int
	Detail        string
}

func (e *NormalizationError) Error() string {
	if e.QuestionIndex >= 0 {
		return fmt.Sprintf("%s (question %d): %s", e.Kind, e.QuestionIndex, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}
