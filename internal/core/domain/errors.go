package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrProbeFailed   = errors.New("probe reported unhealthy")
	ErrProbePanicked = errors.New("probe panicked")
)

type EndpointError struct {
	Err       error
	Operation string
	Address   string
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("%s failed for endpoint %s: %v", e.Operation, e.Address, e.Err)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

type HealthCheckError struct {
	Err       error
	Check     string
	Endpoint  string
	ErrorType HealthCheckErrorType
	Attempts  int
	Latency   time.Duration
}

func (e *HealthCheckError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("health check %s failed after %d attempt(s) in %v (%s): %v",
			e.Check, e.Attempts, e.Latency, e.ErrorType, e.Err)
	}
	return fmt.Sprintf("health check %s failed for %s after %d attempt(s) in %v (%s): %v",
		e.Check, e.Endpoint, e.Attempts, e.Latency, e.ErrorType, e.Err)
}

func (e *HealthCheckError) Unwrap() error {
	return e.Err
}

type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s=%v: %s", e.Field, e.Value, e.Reason)
}

type ListenerError struct {
	Err      error
	Listener string
	Event    EventKind
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s failed handling %s: %v", e.Listener, e.Event, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}

func NewEndpointError(operation, address string, err error) *EndpointError {
	return &EndpointError{
		Operation: operation,
		Address:   address,
		Err:       err,
	}
}

func NewConfigValidationError(field string, value interface{}, reason string) *ConfigValidationError {
	return &ConfigValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}
