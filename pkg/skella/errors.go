package skella

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is the error body returned by the API for non-2xx responses.
type APIError struct {
	StatusCode int    `json:"-"`
	ID         string `json:"id"               yaml:"id"`
	Message    string `json:"message"          yaml:"message"`
	Detail     string `json:"error,omitempty"  yaml:"error,omitempty"`
	URL        string `json:"url,omitempty"    yaml:"url,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.ID == "" && e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}

	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s (status: %d)", e.ID, e.Message, e.Detail, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.ID, e.Message, e.StatusCode)
}

// Error identifiers published by the API.
const (
	ErrorIDNotLoggedIn       = "not_logged_in"
	ErrorIDForbidden         = "forbidden"
	ErrorIDFileNotFound      = "file_not_found"
	ErrorIDJSONParse         = "json_parse_error"
	ErrorIDIncorrectVersion  = "incorrect_version"
	ErrorIDMethodNotAllowed  = "method_not_allowed"
	ErrorIDBadRequest        = "bad_request"
	ErrorIDFormParse         = "form_parse"
	ErrorIDUnprocessable     = "unprocessable_error"
	ErrorIDInternalServer    = "internal_server_error"
	ErrorIDResourceNotFound  = "not_found"
	ErrorIDIncorrectPassword = "incorrect_password"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrSchemaURLRequired    = errors.New("schema requires an API root or schema URL")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrResourceNotFound     = errors.New("resource not found in schema")
	ErrNotAList             = errors.New("resource is not a list")
	ErrNotASingle           = errors.New("resource is not a single entity")
	ErrInvalidCredentials   = errors.New("email and password are required")
	ErrUnsupportedParams    = errors.New("unsupported parameter type")
	ErrNilForm              = errors.New("form is required")
	ErrCacheMiss            = errors.New("key not found")
	ErrCacheEntryExpired    = errors.New("entry expired")
	ErrCacheDisabled        = errors.New("cache disabled")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrFileConfigRequired   = errors.New("file configuration required for file cache")
	ErrKeyNotFoundInCaches  = errors.New("key not found in any cache")
	ErrNoMoreItems          = errors.New("no more items")
	ErrUnsupportedOperation = errors.New("unsupported batch operation")
	ErrModelRequired        = errors.New("batch operation has no model")
)

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

// IsNotLoggedIn checks if the API rejected the request for lack of a session.
func IsNotLoggedIn(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.ID == ErrorIDNotLoggedIn
	}

	return false
}

func hasStatus(err error, status int) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}

	return false
}

// ParseAPIError parses an error body. Bodies that are not JSON still yield an
// APIError carrying the status code.
func ParseAPIError(statusCode int, data []byte) *APIError {
	apiErr := &APIError{}

	if len(data) > 0 {
		err := json.Unmarshal(data, apiErr)
		if err != nil {
			apiErr = &APIError{Message: string(data)}
		}
	}

	apiErr.StatusCode = statusCode

	return apiErr
}
