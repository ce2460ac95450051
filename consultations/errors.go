package consultations

import (
	"errors"

	"github.com/CarrieMorar/FHELegalConsultation/constants"
)

type notFoundError struct {
}

func NewNotFoundError() error {
	return &notFoundError{}
}

func (err *notFoundError) Error() string {
	return "The requested record was not found"
}

type unauthorizedError struct {
	message string
}

func NewUnauthorizedError(message string) error {
	return &unauthorizedError{message: message}
}

func (err *unauthorizedError) Error() string {
	if err.message != "" {
		return err.message
	}
	return "The caller is not allowed to perform this operation"
}

type invalidInputError struct {
	message string
}

func NewInvalidInputError(message string) error {
	return &invalidInputError{message: message}
}

func (err *invalidInputError) Error() string {
	return err.message
}

type rateLimitedError struct {
}

func NewRateLimitedError() error {
	return &rateLimitedError{}
}

func (err *rateLimitedError) Error() string {
	return "Too many submissions in the current period"
}

type invalidStateTransitionError struct {
	message string
}

func NewInvalidStateTransitionError(message string) error {
	return &invalidStateTransitionError{message: message}
}

func (err *invalidStateTransitionError) Error() string {
	return err.message
}

type deadlineExceededError struct {
	message string
}

func NewDeadlineExceededError(message string) error {
	return &deadlineExceededError{message: message}
}

func (err *deadlineExceededError) Error() string {
	return err.message
}

type proofInvalidError struct {
}

func NewProofInvalidError() error {
	return &proofInvalidError{}
}

func (err *proofInvalidError) Error() string {
	return "The decryption proof did not verify"
}

type transferFailedError struct {
	cause error
}

// NewTransferFailedError is fatal for the enclosing operation: no partial
// state is committed when value movement fails.
func NewTransferFailedError(cause error) error {
	return &transferFailedError{cause: cause}
}

func (err *transferFailedError) Error() string {
	return "Value transfer failed: " + err.cause.Error()
}

func (err *transferFailedError) Unwrap() error {
	return err.cause
}

// ErrorCode maps a service error onto the shared error taxonomy for the API
// layer.
func ErrorCode(err error) string {
	var notFound *notFoundError
	var unauthorized *unauthorizedError
	var invalidInput *invalidInputError
	var rateLimited *rateLimitedError
	var invalidState *invalidStateTransitionError
	var deadline *deadlineExceededError
	var proofInvalid *proofInvalidError
	var transferFailed *transferFailedError

	switch {
	case errors.As(err, &notFound):
		return constants.ERROR_NOT_FOUND
	case errors.As(err, &unauthorized):
		return constants.ERROR_UNAUTHORIZED
	case errors.As(err, &invalidInput):
		return constants.ERROR_INVALID_INPUT
	case errors.As(err, &rateLimited):
		return constants.ERROR_RATE_LIMITED
	case errors.As(err, &invalidState):
		return constants.ERROR_INVALID_STATE_TRANSITION
	case errors.As(err, &deadline):
		return constants.ERROR_DEADLINE_EXCEEDED
	case errors.As(err, &proofInvalid):
		return constants.ERROR_PROOF_INVALID
	case errors.As(err, &transferFailed):
		return constants.ERROR_TRANSFER_FAILED
	default:
		return constants.ERROR_INTERNAL
	}
}
