package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a structural failure rejected at the engine boundary.
//
// Epistemic outcomes (ambiguous binding, conflicting facts, low confidence,
// unresolved reference) are never returned as Error; they are states on
// result values. The exceptions are the Must* helpers that turn an
// ambiguous or conflicting result into an error for callers that need a
// single answer.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// DocumentID identifies the affected document, when there is one.
	DocumentID string

	// IDs names the identities involved: the duplicate fact, the tied
	// candidates, the missing provenance links.
	IDs []string

	// Details contains additional context.
	Details map[string]string

	err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeDuplicateFact indicates a fact identity already stored with different content.
	ErrCodeDuplicateFact ErrorCode = "DUPLICATE_FACT"

	// ErrCodeAmbiguousBinding indicates tied binding candidates where one answer was required.
	ErrCodeAmbiguousBinding ErrorCode = "AMBIGUOUS_BINDING"

	// ErrCodeConflictingFacts indicates equal-precedence facts that disagree where one answer was required.
	ErrCodeConflictingFacts ErrorCode = "CONFLICTING_FACTS"

	// ErrCodeInvalidInference indicates an inference request that cannot be stored.
	ErrCodeInvalidInference ErrorCode = "INVALID_INFERENCE"

	// ErrCodeBrokenProvenance indicates a provenance chain with a missing link.
	ErrCodeBrokenProvenance ErrorCode = "BROKEN_PROVENANCE"

	// ErrCodeOverrideCycle indicates an override pointer that would close a loop.
	ErrCodeOverrideCycle ErrorCode = "OVERRIDE_CYCLE"

	// ErrCodeNotFound indicates a referenced document, clause or record does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidInput indicates a record that failed boundary validation.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.DocumentID != "" {
		fmt.Fprintf(&b, " (document=%s)", e.DocumentID)
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.IDs, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.err
}

func newError(code ErrorCode, documentID, msg string, ids ...string) *Error {
	return &Error{Code: code, Message: msg, DocumentID: documentID, IDs: ids}
}

// wrapError attaches a cause to a new Error.
func wrapError(code ErrorCode, documentID string, cause error, msg string, ids ...string) *Error {
	e := newError(code, documentID, msg, ids...)
	e.err = cause
	return e
}

// CodeOf returns the ErrorCode of err, or "" when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsDuplicateFact reports whether err is a duplicate fact rejection.
func IsDuplicateFact(err error) bool { return CodeOf(err) == ErrCodeDuplicateFact }

// IsAmbiguousBinding reports whether err reports an ambiguous binding.
func IsAmbiguousBinding(err error) bool { return CodeOf(err) == ErrCodeAmbiguousBinding }

// IsConflictingFacts reports whether err reports conflicting facts.
func IsConflictingFacts(err error) bool { return CodeOf(err) == ErrCodeConflictingFacts }

// IsInvalidInference reports whether err is an inference rejection.
func IsInvalidInference(err error) bool { return CodeOf(err) == ErrCodeInvalidInference }

// IsBrokenProvenance reports whether err is a broken provenance chain.
func IsBrokenProvenance(err error) bool { return CodeOf(err) == ErrCodeBrokenProvenance }

// IsOverrideCycle reports whether err is an override cycle rejection.
func IsOverrideCycle(err error) bool { return CodeOf(err) == ErrCodeOverrideCycle }

// IsNotFound reports whether err reports a missing record.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsInvalidInput reports whether err is a validation failure.
func IsInvalidInput(err error) bool { return CodeOf(err) == ErrCodeInvalidInput }
