package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"

	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
)

// FailureKind drives the failover policy for a provider error.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureRateLimited: rate limit, quota or unusable credential. Switch credential, never retry it.
	FailureRateLimited
	// FailureTransient: timeout, network, 5xx, empty or malformed output. Retry, then fail over.
	FailureTransient
	// FailureFatal: the request itself is bad. Not retried.
	FailureFatal
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureRateLimited:
		return "rate_limited"
	case FailureTransient:
		return "transient"
	case FailureFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyResponse     = errors.New("provider returned an empty response")
	ErrMalformedResponse = errors.New("provider returned malformed output")
)

// ProviderError is a classified failure from one provider credential.
type ProviderError struct {
	Provider   string
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s (%s, status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is lets callers test errors.Is(err, common.ErrRateLimited).
func (e *ProviderError) Is(target error) bool {
	return target == common.ErrRateLimited && e.Kind == FailureRateLimited
}

// NewProviderError classifies err (when kind is FailureNone) and tags it with the provider name.
func NewProviderError(provider string, kind FailureKind, status int, err error) *ProviderError {
	if kind == FailureNone {
		kind = Classify(err)
	}
	return &ProviderError{Provider: provider, Kind: kind, StatusCode: status, Err: err}
}

// Malformed marks output that could not be parsed or validated. Model output is
// nondeterministic, so this is retryable.
func Malformed(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: FailureTransient, Err: errors.Join(ErrMalformedResponse, err)}
}

// Classify maps an arbitrary provider error onto a FailureKind.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, common.ErrRateLimited) {
		return FailureRateLimited
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrMalformedResponse) {
		return FailureTransient
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return FailureTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureTransient
	}

	msg := err.Error()
	switch {
	case rateLimitText.MatchString(msg):
		return FailureRateLimited
	case transientText.MatchString(msg):
		return FailureTransient
	}
	return FailureFatal
}

// Whole-word matches on messages from errors that lost their type, such as
// provider SDK errors flattened to strings.
var (
	rateLimitText = regexp.MustCompile(`(?i)\b(429|rate[ _-]?limit(ed|s)?|too many requests|quotas?)\b`)
	transientText = regexp.MustCompile(`(?i)\b(time[ d]?out|timed out|connection (reset|refused)|unexpected eof|eof)\b`)
)

// ClassifyStatus maps an HTTP status from a provider onto a FailureKind.
func ClassifyStatus(status int) FailureKind {
	switch {
	case status == 429:
		return FailureRateLimited
	case status == 401 || status == 403:
		// the credential is unusable; another credential may still work
		return FailureRateLimited
	case status == 408 || status == 409 || status >= 500:
		return FailureTransient
	case status >= 400:
		return FailureFatal
	default:
		return FailureTransient
	}
}
