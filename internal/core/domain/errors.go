package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError ошибка входных данных от клиента, никогда не ретраится
type InvalidInputError struct {
	Message string
	Fields  []string
}

func NewInvalidInput(message string, fields ...string) *InvalidInputError {
	return &InvalidInputError{Message: message, Fields: fields}
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// UpstreamTransportError не-2xx ответ или сетевая ошибка внешнего сервиса
type UpstreamTransportError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamTransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream responded %d: %s", e.Operation, e.StatusCode, strings.TrimSpace(e.Body))
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *UpstreamTransportError) Unwrap() error {
	return e.Err
}

// UpstreamDataError 2xx ответ с некорректным содержимым
type UpstreamDataError struct {
	Reason string
	Err    error
}

func (e *UpstreamDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid upstream data: %s: %v", e.Reason, e.Err)
	}
	return "invalid upstream data: " + e.Reason
}

func (e *UpstreamDataError) Unwrap() error {
	return e.Err
}

type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindInvalidInput      ErrorKind = "invalid_input"
	ErrorKindUpstreamTransport ErrorKind = "upstream_transport"
	ErrorKindUpstreamData      ErrorKind = "upstream_data"
	ErrorKindRejected          ErrorKind = "rejected"
	ErrorKindUnexpected        ErrorKind = "unexpected"
)

func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var transportErr *UpstreamTransportError
	var dataErr *UpstreamDataError
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ErrorKindInvalidInput
	case errors.As(err, &dataErr):
		return ErrorKindUpstreamData
	case errors.As(err, &transportErr):
		return ErrorKindUpstreamTransport
	default:
		return ErrorKindUnexpected
	}
}
