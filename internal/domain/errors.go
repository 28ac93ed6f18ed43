package domain

import "fmt"

// Error types for consistent error handling across the portal API.

// GenericLoginError is the single user-facing message for every failed
// login, regardless of cause. Wrong password, unknown email and inactive
// profile must be indistinguishable to the caller.
const GenericLoginError = "Invalid email or password"

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the caller is authenticated but lacks
// permission for the operation. Unlike login failures, the specific
// reason may be disclosed.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrConflict indicates a resource already exists (e.g. duplicate email).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrLastOwner indicates an attempt to deactivate or demote the last
// active owner. The operation is always refused and state is unchanged.
type ErrLastOwner struct{}

func (e *ErrLastOwner) Error() string {
	return "Cannot deactivate or change the role of the last owner"
}

// ErrPartialFailure indicates a multi-step workflow committed its first
// step(s) but a later step failed. The committed state is not rolled
// back; the message names what succeeded and what failed.
type ErrPartialFailure struct {
	Succeeded string
	Failed    string
	Err       error
}

func (e *ErrPartialFailure) Error() string {
	return fmt.Sprintf("%s created, but %s failed: %v", e.Succeeded, e.Failed, e.Err)
}

func (e *ErrPartialFailure) Unwrap() error {
	return e.Err
}

// ErrSpam indicates a contact submission tripped an anti-abuse check.
// Surfaced as a rejection without disclosing which signal fired.
type ErrSpam struct{}

func (e *ErrSpam) Error() string {
	return "submission rejected"
}
