package daemon

import "fmt"

// ServiceErrorKind classifies a handler failure so the transport layer
// can map it to a status code without inspecting messages.
type ServiceErrorKind string

const (
	ServiceErrorInvalid     ServiceErrorKind = "invalid"
	ServiceErrorNotFound    ServiceErrorKind = "not_found"
	ServiceErrorUnavailable ServiceErrorKind = "unavailable"
	ServiceErrorConflict    ServiceErrorKind = "conflict"
)

type ServiceError struct {
	Kind    ServiceErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *ServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newServiceError(kind ServiceErrorKind, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Err: err}
}

func invalidError(message string, err error) *ServiceError {
	return newServiceError(ServiceErrorInvalid, message, err)
}

func notFoundError(message string, err error) *ServiceError {
	return newServiceError(ServiceErrorNotFound, message, err)
}

func unavailableError(message string, err error) *ServiceError {
	return newServiceError(ServiceErrorUnavailable, message, err)
}

func conflictError(message string, err error) *ServiceError {
	return newServiceError(ServiceErrorConflict, message, err)
}
