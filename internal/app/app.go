// Package app wires the checkout service together and runs its HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/handler"
	"github.com/xenking/kart-checkout/internal/notify"
	"github.com/xenking/kart-checkout/internal/payment"
	"github.com/xenking/kart-checkout/internal/storage/postgres"
	"github.com/xenking/kart-checkout/pkg/health"
	"github.com/xenking/kart-checkout/pkg/httpmiddleware"
)

const serviceName = "checkout-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))

	h, err := newHandler(ctx, lg, cfg, pool, healthSvc, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           h,
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		defer healthSvc.Stop()

		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

// newHandler builds the checkout service and its HTTP surface on top of pool.
func newHandler(
	ctx context.Context,
	lg *zap.Logger,
	cfg *Config,
	pool *pgxpool.Pool,
	healthSvc *health.Health,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (http.Handler, error) {
	payments, err := payment.New(payment.Config{
		BaseURL:     cfg.Payment.URL,
		Timeout:     cfg.Payment.Timeout,
		MaxFailures: cfg.Payment.MaxFailures,
		OpenTimeout: cfg.Payment.OpenTimeout,
	},
		payment.WithLogger(lg.Named("payment")),
		payment.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(tp),
				otelhttp.WithMeterProvider(mp),
			),
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create payment client")
	}

	notifier, err := newNotifier(cfg.Mail, lg.Named("notify"))
	if err != nil {
		return nil, errors.Wrap(err, "create notifier")
	}

	orders := postgres.NewOrderRepository(pool)
	svc := checkout.NewService(payments, orders, notifier,
		checkout.WithLogger(lg.Named("checkout")),
		checkout.WithCurrencySymbol(cfg.Currency.Symbol),
		checkout.WithTracerProvider(tp),
		checkout.WithMeterProvider(mp),
	)

	hcfg := handler.Config{Timeout: 30 * time.Second}
	if cfg.APIKeyPepper != "" {
		hcfg.Keys = postgres.NewAPIKeyRepository(pool)
		hcfg.Pepper = []byte(cfg.APIKeyPepper)
	} else {
		lg.Warn("API key pepper is not set, api_key authentication is disabled")
	}
	h := handler.New(hcfg, svc, orders)

	proxies, err := httpmiddleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return nil, errors.Wrap(err, "parse trusted proxies")
	}

	r := chi.NewRouter()
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	r.Route("/api", h.Routes)

	return otelhttp.NewHandler(
		httpmiddleware.Wrap(r,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			cors.Handler(cors.Options{
				AllowedOrigins:   cfg.CORS.Origins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders:   []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				ExposedHeaders:   []string{"Location", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:            cfg.RateLimit.Max,
				Window:         cfg.RateLimit.Window,
				TrustedProxies: proxies,
			}),
			httpmiddleware.LogRequests(),
		),
		serviceName,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithMeterProvider(mp),
	), nil
}

// newNotifier delivers through SendGrid when an API key is configured and
// falls back to logging otherwise.
func newNotifier(cfg MailConfig, lg *zap.Logger) (checkout.Notifier, error) {
	if cfg.SendGridAPIKey == "" {
		lg.Warn("SendGrid API key is not set, notifications will only be logged")
		return notify.NewLog(lg), nil
	}
	sg, err := notify.NewSendGrid(notify.SendGridConfig{
		APIKey:   cfg.SendGridAPIKey,
		Host:     cfg.SendGridHost,
		From:     cfg.From,
		FromName: cfg.FromName,
	}, lg)
	if err != nil {
		return nil, err
	}
	return sg, nil
}
