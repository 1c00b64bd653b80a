package authapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrInvalidConfig = errors.New("authapi: invalid config")
	// ErrTransport covers network failures and malformed responses.
	ErrTransport = errors.New("authapi: transport failure")
)

// APIError is a non-2xx response from the auth backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authapi: %d: %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err is a backend rejection of credentials or
// token (401/403).
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// parseAPIError extracts the backend's error message from a failed response.
// The backend is inconsistent about the field name across endpoints, so
// several are tried before falling back to the HTTP status text.
func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}

	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.ErrorDescription != "":
			apiErr.Message = payload.ErrorDescription
		case payload.Msg != "":
			apiErr.Message = payload.Msg
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}
