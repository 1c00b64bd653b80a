package stripe_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purenote/purenote/pkg/deadline"
	"github.com/purenote/purenote/pkg/stripe"
)

func TestClient_Configured(t *testing.T) {
	t.Parallel()
	assert.False(t, stripe.New(stripe.Config{}).Configured())
	assert.True(t, stripe.New(stripe.Config{SecretKey: "sk_test"}).Configured())
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/checkout/sessions", r.URL.Path)
			assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "payment", r.PostForm.Get("mode"))
			assert.Equal(t, "eur", r.PostForm.Get("line_items[0][price_data][currency]"))
			assert.Equal(t, "2500", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
			assert.Equal(t, "donation", r.PostForm.Get("metadata[type]"))

			_ = json.NewEncoder(w).Encode(map[string]string{
				"id":  "cs_123",
				"url": "https://checkout.example.com/cs_123",
			})
		}))
		t.Cleanup(srv.Close)

		client := stripe.New(stripe.Config{SecretKey: "sk_test"}, stripe.WithBaseURL(srv.URL))
		session, err := client.CreateCheckoutSession(ctx, stripe.CheckoutParams{
			AmountCents: 2500,
			Currency:    "eur",
			ProductName: "Donation",
			SuccessURL:  "https://purenote.app?donation=success",
			CancelURL:   "https://purenote.app?donation=cancelled",
			Metadata:    map[string]string{"type": "donation"},
		})
		require.NoError(t, err)
		assert.Equal(t, "cs_123", session.ID)
		assert.Equal(t, "https://checkout.example.com/cs_123", session.URL)
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		_, err := stripe.New(stripe.Config{}).CreateCheckoutSession(ctx, stripe.CheckoutParams{AmountCents: 100})
		assert.ErrorIs(t, err, stripe.ErrNotConfigured)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		t.Parallel()
		client := stripe.New(stripe.Config{SecretKey: "sk_test"})
		_, err := client.CreateCheckoutSession(ctx, stripe.CheckoutParams{AmountCents: 0})
		assert.ErrorIs(t, err, stripe.ErrInvalidParams)
	})

	t.Run("provider error surfaced", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"message": "Your card was declined.", "type": "card_error"},
			})
		}))
		t.Cleanup(srv.Close)

		client := stripe.New(stripe.Config{SecretKey: "sk_test"}, stripe.WithBaseURL(srv.URL))
		_, err := client.CreateCheckoutSession(ctx, stripe.CheckoutParams{
			AmountCents: 100, Currency: "eur", ProductName: "Donation",
			SuccessURL: "https://x", CancelURL: "https://x",
		})

		var provErr *stripe.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, http.StatusPaymentRequired, provErr.StatusCode)
		assert.Equal(t, "Your card was declined.", provErr.Message)
	})

	t.Run("hung provider hits the deadline", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Drain the body so the server detects the client going away;
			// otherwise r.Context() is never cancelled and Cleanup deadlocks.
			_, _ = io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		}))
		t.Cleanup(srv.Close)

		client := stripe.New(
			stripe.Config{SecretKey: "sk_test", RequestTimeout: 50 * time.Millisecond},
			stripe.WithBaseURL(srv.URL),
		)

		start := time.Now()
		_, err := client.CreateCheckoutSession(ctx, stripe.CheckoutParams{
			AmountCents: 100, Currency: "eur", ProductName: "Donation",
			SuccessURL: "https://x", CancelURL: "https://x",
		})
		require.Error(t, err)
		assert.True(t, deadline.Exceeded(err))
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
