package stripe

import "time"

// Config holds the payment provider keys. Both are optional: without a
// secret key the donation module reports the integration as not configured,
// and without a webhook secret incoming events are accepted unverified
// (development only; set it in production).
type Config struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	// RequestTimeout bounds each call to the payment provider.
	RequestTimeout time.Duration `env:"STRIPE_REQUEST_TIMEOUT" envDefault:"15s"`
}
