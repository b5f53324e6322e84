package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reachpay/internal/mailer"
	"reachpay/internal/ratelimiter"
	"reachpay/internal/reach"
	"reachpay/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type application struct {
	config      config
	store       store.Storage
	logger      *zap.SugaredLogger
	gateway     *reach.Client
	mailer      mailer.Client
	rateLimiter *ratelimiter.FixedWindowRateLimiter
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	frontendURL string
	reach       reachConfig
	mail        mailConfig
	auth        authConfig
	rateLimiter ratelimiterConfig
}

type reachConfig struct {
	merchantID string
	secret     string
	test       bool
}

type authConfig struct {
	basic basicConfig
}

type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	fromEmail     string
	operatorEmail string
	smtp          smtpConfig
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
}

type dbConfig struct {
	addr        string
	maxConns    int
	maxIdleTime string
}

type ratelimiterConfig struct {
	requestsPerTimeFrame int
	timeFrame            time.Duration
	enabled              bool
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Post("/checkout", app.createCheckoutHandler)

		r.Get("/payment-methods", app.getPaymentMethodsHandler)
		r.Get("/badge", app.getBadgeHandler)
		r.Get("/card-info", app.getCardInfoHandler)

		// Back office operations on existing orders.
		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Use(app.BasicAuthMiddleware())
			r.Get("/", app.getOrderHandler)
			r.Post("/capture", app.captureOrderHandler)
			r.Post("/cancel", app.cancelOrderHandler)
			r.Post("/modify", app.modifyOrderHandler)
			r.Post("/refund", app.refundOrderHandler)
		})
	})

	// Processor callbacks, addressed by the URLs sent in checkout payloads.
	r.Route("/reach", func(r chi.Router) {
		r.Post("/notifications", app.notificationHandler)
		r.Get("/return", app.returnHandler)
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
