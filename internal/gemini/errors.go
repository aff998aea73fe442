package gemini

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey     = errors.New("missing API key")
	ErrMalformedResponse = errors.New("received an empty or malformed response from the API")
)

// APIError is a non-2xx answer from the completion endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("API request failed with status: %d", status)
	}
	return &APIError{StatusCode: status, Message: message}
}
