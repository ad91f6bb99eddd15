package webservice

import (
	"fmt"
	"net/http"
)

// NetworkError is returned when the service answers with a non-200 status
type NetworkError struct {
	Endpoint   string
	StatusCode int
	Status     string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s returned %s", e.Endpoint, e.StatusText())
}

// StatusText is the text shown to the user, e.g. "503 Service Unavailable"
func (e *NetworkError) StatusText() string {
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ParseError is returned when a response body is not the expected JSON array
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing %s JSON: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
