package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeTeamHasMembers = "TEAM_HAS_MEMBERS"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUpstream       = "UPSTREAM_ERROR"
	ErrCodeUnavailable    = "UPSTREAM_UNAVAILABLE"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// Domain errors
var (
	ErrTransport      = errors.New("request failed")
	ErrTeamHasMembers = errors.New("team still has members")
	ErrNotFound       = errors.New("not found")
)

// APIError is returned for any non-2xx response. The body is not parsed.
type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error: %d %s", e.StatusCode, e.Status)
}

// Is lets a 404 from the server match ErrNotFound
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// ClientError reports a 4xx response, which the server raises for requests it rejects
func (e *APIError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ValidationError reports a missing or malformed input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// MapErrorToCode maps domain error to API error code
func MapErrorToCode(err error) string {
	var validation *ValidationError
	var apiErr *APIError
	switch {
	case errors.As(err, &validation):
		return ErrCodeInvalidRequest
	case errors.Is(err, ErrTeamHasMembers):
		return ErrCodeTeamHasMembers
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.As(err, &apiErr):
		return ErrCodeUpstream
	case errors.Is(err, ErrTransport):
		return ErrCodeUnavailable
	default:
		return ErrCodeInternalError
	}
}
