package authapi

import "time"

// Config for the auth backend client. The service key is only needed by the
// server-side signup proxy; clients that never create users can omit it.
type Config struct {
	BaseURL    string `env:"AUTH_API_URL,required"`
	AnonKey    string `env:"AUTH_ANON_KEY,required"`
	ServiceKey string `env:"AUTH_SERVICE_KEY"`
	// RequestTimeout bounds each call to the auth backend.
	RequestTimeout time.Duration `env:"AUTH_REQUEST_TIMEOUT" envDefault:"15s"`
}
