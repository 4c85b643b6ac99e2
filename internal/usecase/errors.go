package usecase

import (
	"errors"
	"fmt"
)

var errInactiveAgent = errors.New("agent account is deactivated")

const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeAmbiguous     = "AMBIGUOUS"
	CodeAccount       = "ACCOUNT_ERROR"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeConflict      = "CONFLICT"
	CodeTransient     = "TRANSIENT"
)

// DomainError is a failure the sender can act on. Identifier, Count and Label
// are only filled for NOT_FOUND and AMBIGUOUS.
type DomainError struct {
	Code       string
	Message    string
	Identifier string
	Count      int
	Label      string
	Err        error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// ErrorCode returns the Code of the first DomainError or TechnicalError in the
// chain, or "" for anything else.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func NewValidationError(msg string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: msg}
}

func NewNotFoundError(identifier string) *DomainError {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    "lead not found: " + identifier,
		Identifier: identifier,
	}
}

func NewAmbiguousError(count int, label, identifier string) *DomainError {
	return &DomainError{
		Code:       CodeAmbiguous,
		Message:    fmt.Sprintf("%d leads match %s %q", count, label, identifier),
		Identifier: identifier,
		Count:      count,
		Label:      label,
	}
}

func NewAccountError(err error) *DomainError {
	return &DomainError{Code: CodeAccount, Message: "agent account error: " + err.Error(), Err: err}
}

func NewConfigurationError(msg string) *DomainError {
	return &DomainError{Code: CodeConfiguration, Message: msg}
}

// TechnicalError wraps store and network failures with no better classification.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func NewTransientError(op string, err error) *TechnicalError {
	return &TechnicalError{Code: CodeTransient, Message: op + ": " + err.Error(), Err: err}
}
