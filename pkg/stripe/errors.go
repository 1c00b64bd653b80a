package stripe

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates no secret key is set; donations cannot
	// be processed until the deployment is configured.
	ErrNotConfigured = errors.New("stripe: not configured")

	ErrInvalidParams = errors.New("stripe: invalid params")
	ErrTransport     = errors.New("stripe: transport failure")

	ErrInvalidSignature = errors.New("stripe: invalid webhook signature")
	ErrInvalidPayload   = errors.New("stripe: invalid webhook payload")
)

// ProviderError is a non-2xx response from the payment provider.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stripe: %d: %s", e.StatusCode, e.Message)
}
