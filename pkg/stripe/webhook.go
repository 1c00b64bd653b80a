package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is how old a webhook signature may be before it is
// rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

// Event is a webhook event envelope. Data.Object carries the event's
// subject (for checkout.session.completed, the checkout session).
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// EventCheckoutCompleted marks a checkout session the payer finished paying.
const EventCheckoutCompleted = "checkout.session.completed"

// signatureHeader is the parsed form of the provider's signature header:
// "t=<unix>,v1=<hex hmac>[,v1=...]".
type signatureHeader struct {
	timestamp  int64
	signatures []string
}

func parseSignatureHeader(header string) (signatureHeader, error) {
	var parsed signatureHeader
	if header == "" {
		return parsed, fmt.Errorf("%w: empty signature header", ErrInvalidSignature)
	}

	for _, pair := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return parsed, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			parsed.timestamp = ts
		case "v1":
			parsed.signatures = append(parsed.signatures, v)
		}
	}

	if parsed.timestamp == 0 || len(parsed.signatures) == 0 {
		return parsed, fmt.Errorf("%w: missing timestamp or signature", ErrInvalidSignature)
	}
	return parsed, nil
}

// VerifySignature checks the payload against the provider's signature
// header. The signature is HMAC-SHA256 over "<timestamp>.<payload>";
// the timestamp is bound into the signature and checked against tolerance
// to prevent replays. Comparison is constant-time.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: webhook secret is required", ErrInvalidSignature)
	}

	parsed, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(parsed.timestamp, 0))
		if age > tolerance {
			return fmt.Errorf("%w: timestamp too old: %v", ErrInvalidSignature, age)
		}
		// Small negative skew is fine; far-future timestamps are not.
		if age < -time.Minute {
			return fmt.Errorf("%w: timestamp is in the future", ErrInvalidSignature)
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", parsed.timestamp, payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range parsed.signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
}

// ConstructEvent verifies and parses a webhook payload. When secret is
// empty, verification is skipped and the payload is parsed as-is; that mode
// exists for unconfigured development deployments only.
func ConstructEvent(payload []byte, header, secret string) (Event, error) {
	var event Event
	if secret != "" {
		if err := VerifySignature(payload, header, secret, DefaultTolerance); err != nil {
			return event, err
		}
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return event, nil
}

// SignPayload produces a valid signature header for payload. Tests use it to
// exercise webhook handlers end to end.
func SignPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
