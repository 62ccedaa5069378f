// Package errors provides standardized error handling for the loan
// conversation engine and its collaborator clients.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Extraction / GenAI errors
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	ErrCodeGenAITimeout     ErrorCode = "GENAI_TIMEOUT"
	ErrCodeGenAIFailed      ErrorCode = "GENAI_FAILED"

	// Verification errors
	ErrCodeDocumentValidationFailed ErrorCode = "DOCUMENT_VALIDATION_FAILED"
	ErrCodeInvalidPANFormat         ErrorCode = "INVALID_PAN_FORMAT"

	// Underwriting errors
	ErrCodeInvalidLoanRequest ErrorCode = "INVALID_LOAN_REQUEST"
	ErrCodeBureauUnavailable  ErrorCode = "BUREAU_UNAVAILABLE"

	// Sanction errors
	ErrCodeLetterRenderFailed ErrorCode = "LETTER_RENDER_FAILED"

	// Registry / storage errors
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeDatabaseFailed       ErrorCode = "DATABASE_FAILED"

	// Document intake errors
	ErrCodeDocumentIntakeFailed ErrorCode = "DOCUMENT_INTAKE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf returns the error code carried by err, or "" if err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	var se *StandardError
	return errors.As(err, &se) && se.Retryable
}

// ==========================
// 2. Error Constructors
// ==========================

// NewExtractionFailedError marks malformed structured output from the GenAI
// extractor. Recovered locally: the turn is retained, the user re-prompted.
func NewExtractionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailed,
		Message:   "Could not parse structured fields from extractor response",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenAITimeoutError creates a retryable GenAI timeout error.
func NewGenAITimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenAITimeout,
		Message:   "GenAI service call timed out",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenAIFailedError creates a retryable GenAI transport error.
func NewGenAIFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenAIFailed,
		Message:   "GenAI service call failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentValidationFailedError creates a non-retryable checklist error.
func NewDocumentValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentValidationFailed,
		Message:   "Document checklist validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPANFormatError creates a non-retryable PAN format error.
func NewInvalidPANFormatError(pan string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPANFormat,
		Message:   "PAN number does not match the required format",
		Details:   fmt.Sprintf("pan: %s", pan),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidLoanRequestError marks an invariant violation: a non-positive
// loan amount or salary must never reach the eligibility calculator.
func NewInvalidLoanRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidLoanRequest,
		Message:   "Loan request violates a calculator precondition",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBureauUnavailableError creates a retryable credit bureau error.
func NewBureauUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBureauUnavailable,
		Message:   "Credit bureau lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLetterRenderFailedError creates a retryable letter rendering error.
func NewLetterRenderFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLetterRenderFailed,
		Message:   "Sanction letter rendering failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversationNotFoundError creates a non-retryable lookup error.
func NewConversationNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversationNotFound,
		Message:   "Conversation not found",
		Details:   fmt.Sprintf("conversationId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseFailedError creates a retryable database error.
func NewDatabaseFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseFailed,
		Message:   "Database operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentIntakeFailedError creates a retryable document intake error.
func NewDocumentIntakeFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentIntakeFailed,
		Message:   "Document intake failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
