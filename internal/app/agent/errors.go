package agent

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("validation_error")
	ErrNameTaken      = errors.New("name_taken")
	ErrRateLimited    = errors.New("rate_limited")
	ErrUnauthorized   = errors.New("invalid_api_key")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidRequest.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
