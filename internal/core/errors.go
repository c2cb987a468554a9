package core

import (
	"errors"
	"fmt"
)

var ErrStoreUnavailable = errors.New("memory store unavailable")

// ExternalServiceError wraps failures of the memory store, the chat transport
// or the reasoning component.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func NewExternalServiceError(service string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalServiceError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalServiceError{Service: service, Err: err}
}

// ValidationError rejects a trigger before a run starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PolicyViolation is raised when outbound text would expose a system entry.
type PolicyViolation struct {
	EntryID string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("outbound message exposes system entry %s", e.EntryID)
}
