package tally

import (
	"errors"
	"fmt"
)

// Category errors. Every failure surfaced by the package matches exactly
// one of these under errors.Is.
var (
	ErrAuthorization = errors.New("authorization failed")
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrState         = errors.New("state transition not permitted")
	ErrConflict      = errors.New("concurrent mutation conflict")
	ErrPersistence   = errors.New("persistence failed")
)

// Fine-grained error values, each wrapping its category.
var (
	ErrNotSessionOwner  = fmt.Errorf("%w: actor is not the session owner", ErrAuthorization)
	ErrNotSessionMember = fmt.Errorf("%w: actor is not a session member", ErrAuthorization)

	ErrSessionArchived = fmt.Errorf("%w: session is archived", ErrState)
	ErrGameCompleted   = fmt.Errorf("%w: game already completed", ErrState)
	ErrDebtAlreadyPaid = fmt.Errorf("%w: debt already paid", ErrState)

	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrGameNotFound    = fmt.Errorf("%w: game", ErrNotFound)
	ErrDebtNotFound    = fmt.Errorf("%w: debt record", ErrNotFound)

	ErrDuplicateMember = fmt.Errorf("%w: player already joined", ErrConflict)

	ErrInvalidPlayerID      = fmt.Errorf("%w: invalid player id", ErrValidation)
	ErrInvalidSessionID     = fmt.Errorf("%w: invalid session id", ErrValidation)
	ErrInvalidGameID        = fmt.Errorf("%w: invalid game id", ErrValidation)
	ErrInvalidDebtID        = fmt.Errorf("%w: invalid debt id", ErrValidation)
	ErrInvalidAmountCents   = fmt.Errorf("%w: invalid amount cents", ErrValidation)
	ErrInvalidSessionName   = fmt.Errorf("%w: invalid session name", ErrValidation)
	ErrInvalidSessionStatus = fmt.Errorf("%w: invalid session status", ErrValidation)
	ErrInvalidGameStatus    = fmt.Errorf("%w: invalid game status", ErrValidation)
	ErrInvalidMetadataJSON  = fmt.Errorf("%w: invalid metadata json", ErrValidation)
	ErrInvalidRankingSet    = fmt.Errorf("%w: invalid ranking set", ErrValidation)
	ErrInvalidDebtParties   = fmt.Errorf("%w: payer and payee must differ", ErrValidation)
	ErrInvalidServiceConfig = fmt.Errorf("%w: invalid service config", ErrValidation)
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
