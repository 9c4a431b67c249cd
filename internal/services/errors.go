package services

import "errors"

var (
	// ErrGenerationUnavailable means the provider call itself failed: network,
	// quota on the provider side, blocked or empty output.
	ErrGenerationUnavailable = errors.New("worksheet generation unavailable")

	// ErrInvalidResponseFormat means the provider answered but the body is not
	// a worksheet of the declared shape.
	ErrInvalidResponseFormat = errors.New("invalid worksheet response format")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }
