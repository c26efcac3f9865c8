package common

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline errors
var (
	// ErrFormat marks unreadable or corrupt input. Fatal for the document, never retried.
	ErrFormat = errors.New("unreadable document")
	// ErrRateLimited marks a provider credential that signalled rate limiting or quota exhaustion.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrProviderExhausted is returned once every configured provider has failed.
	ErrProviderExhausted = errors.New("all providers exhausted")
	// ErrCancelled is returned when a run is aborted; in-flight results are discarded.
	ErrCancelled = errors.New("run cancelled")
)

// Error codes carried by AppError.
const (
	CodeFormat    = "FORMAT_ERROR"
	CodeConfig    = "CONFIG_ERROR"
	CodeExhausted = "PROVIDER_EXHAUSTED"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewFormatError builds a FormatError. errors.Is(err, ErrFormat) holds for the result.
func NewFormatError(message string, cause error) *AppError {
	return NewAppError(CodeFormat, message, errors.Join(ErrFormat, cause))
}

// StageError attaches the pipeline stage (and page, when known) to a terminal failure.
type StageError struct {
	Stage constants.Stage
	Page  int // 1-based; 0 when the failure is not tied to a page
	Err   error
}

func (e *StageError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s (page %d): %v", e.Stage, e.Page, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AtStage wraps err with a stage label. An error that already carries a stage keeps it.
func AtStage(stage constants.Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// AtPage is AtStage for a page-scoped failure; page is 0-based and reported 1-based.
func AtPage(stage constants.Stage, page int, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Page: page + 1, Err: err}
}

// StageOf returns the stage recorded on err, or "" when there is none.
func StageOf(err error) constants.Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// IsFormatError reports whether err is (or wraps) a FormatError.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrFormat)
}

// IsProviderExhausted reports whether every provider failed for err's operation.
func IsProviderExhausted(err error) bool {
	return errors.Is(err, ErrProviderExhausted)
}
