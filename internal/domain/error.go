package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound                = errors.New("entity not found")
	ErrForbidden               = errors.New("operation not allowed for this user")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrAlreadyExists           = errors.New("entity already exists")
	ErrSignatureMismatch       = errors.New("payment signature mismatch")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable")
	ErrConfigMissing           = errors.New("required configuration missing")
	ErrInvalidStatusTransition = errors.New("purchase status cannot move backward")

	// Storage-layer errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrInvalidExecContext = errors.New("invalid transaction context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
