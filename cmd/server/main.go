// Command server runs the Pure Note API: auth proxying, reviews, donations,
// contact form and plan tracking behind a single flat HTTP surface.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/purenote/purenote/modules/auth"
	"github.com/purenote/purenote/modules/contact"
	"github.com/purenote/purenote/modules/donations"
	"github.com/purenote/purenote/modules/plans"
	"github.com/purenote/purenote/modules/reviews"
	"github.com/purenote/purenote/pkg/authapi"
	"github.com/purenote/purenote/pkg/config"
	"github.com/purenote/purenote/pkg/email"
	"github.com/purenote/purenote/pkg/httpserver"
	"github.com/purenote/purenote/pkg/httpx"
	"github.com/purenote/purenote/pkg/kv"
	"github.com/purenote/purenote/pkg/logger"
	"github.com/purenote/purenote/pkg/stripe"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	Server httpserver.Config
	Redis  kv.Config
	Auth   authapi.Config
	Stripe stripe.Config
	Email  email.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	var log *slog.Logger
	if cfg.Env == "production" {
		log = logger.New(logger.WithProduction("purenote-api"))
	} else {
		log = logger.New(logger.WithDevelopment("purenote-api"))
	}
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	redisClient, err := kv.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	store := kv.NewStore(redisClient)

	authClient, err := authapi.New(cfg.Auth)
	if err != nil {
		return err
	}

	stripeClient := stripe.New(cfg.Stripe)
	if !stripeClient.Configured() {
		log.Warn("stripe is not configured, donations are disabled")
	}

	sender, err := buildSender(cfg, log)
	if err != nil {
		return err
	}

	authSvc := auth.NewService(authClient, log)
	reviewsSvc := reviews.NewService(store, authClient, log)
	donationsSvc := donations.NewService(stripeClient, store, cfg.Stripe.WebhookSecret, log)
	contactSvc := contact.NewService(sender, cfg.Email.SupportEmail, store, log)
	plansSvc := plans.NewService(store, authClient, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", health(stripeClient, kv.Healthcheck(redisClient)))

	handleAll(r, authSvc.Handle(), "/signin", "/signup", "/profile")
	handleAll(r, donationsSvc.Handle(), "/create-checkout", "/stripe-webhook")
	handleAll(r, contactSvc.Handle(), "/send-contact-email", "/save-contact-message")
	handleAll(r, plansSvc.Handle(), "/user-plan", "/update-plan")
	r.Mount("/reviews", reviewsSvc.Handle())

	srv := httpserver.NewFromConfig(cfg.Server, log)
	return srv.Run(ctx, r)
}

// handleAll registers the same handler for several flat paths. The module
// routers match on the full request path, so no prefix stripping is needed.
func handleAll(r chi.Router, h http.Handler, paths ...string) {
	for _, p := range paths {
		r.Handle(p, h)
	}
}

// buildSender picks the mail transport: Postmark when configured, a
// log-only sender in development, none otherwise. Without a sender the
// contact module reports the service as unavailable.
func buildSender(cfg appConfig, log *slog.Logger) (email.Sender, error) {
	if cfg.Email.Configured() {
		return email.NewPostmarkClient(cfg.Email)
	}
	if cfg.Env != "production" {
		log.Warn("no mail provider configured, using the log-only sender")
		return email.NewDevSender(log), nil
	}
	log.Warn("no mail provider configured, contact email is disabled")
	return nil, nil
}

func health(payments *stripe.Client, ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":    "degraded",
				"error":     "storage unreachable",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		stripeStatus := "not configured"
		if payments.Configured() {
			stripeStatus = "configured"
		}
		httpx.JSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"stripe":    stripeStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// cors mirrors the permissive policy of the hosted deployment: the site is
// served from a different origin than the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Max-Age", "600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
