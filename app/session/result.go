package session

import "net/http"

// ErrorKind classifies an operation failure for the UI layer.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// KindValidation: the backend rejected the input (missing or malformed
	// fields, weak password, duplicate account).
	KindValidation
	// KindAuth: credentials or token rejected.
	KindAuth
	// KindTimeout: the client-enforced deadline expired.
	KindTimeout
	// KindTransport: network failure or malformed response.
	KindTransport
	// KindNotConfigured: a server-side integration lacks configuration.
	KindNotConfigured
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// Result is the outcome of a session operation. Operations never return Go
// errors to the UI layer; every failure is folded into a Result so callers
// always get a value they can render.
type Result struct {
	Success bool
	Kind    ErrorKind
	Error   string
}

func ok() Result {
	return Result{Success: true}
}

func fail(kind ErrorKind, message string) Result {
	return Result{Kind: kind, Error: message}
}

// kindFromStatus maps backend HTTP status codes to error kinds.
func kindFromStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusServiceUnavailable:
		return KindNotConfigured
	default:
		return KindTransport
	}
}
