package rest

import (
	"errors"
	"fmt"
)

// Package-level error definitions for REST client operations.
var (
	ErrMissingToken   = errors.New("api token is required")
	ErrMissingBaseURL = errors.New("base url is required")
)

// APIError is a structured error response from the platform.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}
