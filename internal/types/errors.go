package types

import (
	"errors"
	"fmt"
)

// ErrNoContent indicates the model endpoint answered successfully but the
// response carried no completion text.
var ErrNoContent = errors.New("no response content from model")

// TransportError represents a single failed request to the model endpoint.
// Status holds the HTTP status code when known, 0 otherwise. Detail carries
// the provider's own error message when one could be extracted.
type TransportError struct {
	Status int
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Detail != "":
		return fmt.Sprintf("model request failed (status %d): %s", e.Status, e.Detail)
	case e.Status != 0:
		return fmt.Sprintf("model request failed (status %d): %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("model request failed: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a provider error with its HTTP status when known.
func NewTransportError(status int, err error) error {
	return &TransportError{Status: status, Err: err}
}

// ExhaustedError is returned once every attempt for one request has failed.
// It wraps the last failure observed so callers can still inspect it.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// PhaseError records which phase of a workflow failed. Phase is 1 for the
// analysis call and 2 for the deliverable call.
type PhaseError struct {
	Workflow string
	Phase    int
	Err      error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("workflow %s phase %d: %v", e.Workflow, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
