//go:build integration

package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/storage/postgres"
	"github.com/xenking/kart-checkout/pkg/health"
)

const testPepper = "integration-pepper"

type mailbox struct {
	mu   sync.Mutex
	mail []string
}

func (m *mailbox) add(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mail = append(m.mail, s)
}

func (m *mailbox) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.mail...)
}

func startAPI(t *testing.T) (*httptest.Server, *mailbox, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ctr, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("checkout"),
		tcpostgres.WithUsername("checkout"),
		tcpostgres.WithPassword("checkout"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %s", err)
		}
	})
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.RunMigrations(ctx, pool))

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(string(body), `"decline"`) {
			_, _ = io.WriteString(w, `{"success":false}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	t.Cleanup(gateway.Close)

	box := &mailbox{}
	sendgrid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		box.add(string(body))
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(sendgrid.Close)

	key := "ck_integration"
	_, err = postgres.NewAPIKeyRepository(pool).Create(ctx, "integration",
		auth.Hash([]byte(testPepper), key), []string{auth.ScopeCheckout, auth.ScopeOrdersRead})
	require.NoError(t, err)

	cfg := &Config{
		APIKeyPepper: testPepper,
		Currency:     CurrencyConfig{Symbol: "$"},
		Payment:      PaymentConfig{URL: gateway.URL, Timeout: 5 * time.Second, MaxFailures: 5, OpenTimeout: time.Second},
		Mail:         MailConfig{SendGridAPIKey: "SG.test", SendGridHost: sendgrid.URL, From: "orders@kart.example"},
		RateLimit:    RateLimitConfig{Max: 100, Window: time.Minute},
		CORS:         CORSConfig{Origins: []string{"*"}},
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", time.Second, func(ctx context.Context) error { return pool.Ping(ctx) })
	healthSvc.Start(ctx, time.Second)
	healthSvc.SetReady(true)
	t.Cleanup(healthSvc.Stop)

	h, err := newHandler(ctx, zap.NewNop(), cfg, pool, healthSvc,
		tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, box, key
}

func call(t *testing.T, method, url, key, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("api_key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestCheckoutEndToEnd(t *testing.T) {
	srv, box, key := startAPI(t)

	resp, _ := call(t, http.MethodGet, srv.URL+"/readyz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	premium := `{
		"customer": {"id": "2", "name": "Mary Premium", "email": "premium@email.com", "tier": "PREMIUM"},
		"items": [{"name": "Notebook", "price": "150.00"}, {"name": "Mouse", "price": 50}],
		"paymentToken": "tok_ok"
	}`

	t.Run("unauthorized", func(t *testing.T) {
		resp, _ := call(t, http.MethodPost, srv.URL+"/api/checkout", "", premium)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("premium order", func(t *testing.T) {
		resp, body := call(t, http.MethodPost, srv.URL+"/api/checkout", key, premium)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
		assert.Contains(t, body, `"total":"180.00"`)
		assert.Contains(t, body, `"status":"PROCESSED"`)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

		location := resp.Header.Get("Location")
		require.NotEmpty(t, location)
		resp, body = call(t, http.MethodGet, srv.URL+location, key, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"subtotal":"200.00"`)
		assert.Contains(t, body, `"name":"Notebook"`)

		mail := box.all()
		require.Len(t, mail, 1)
		assert.Contains(t, mail[0], "premium@email.com")
		assert.Contains(t, mail[0], "Your Order has been Approved!")
		assert.Contains(t, mail[0], "for the amount of $180")
	})

	t.Run("declined", func(t *testing.T) {
		declined := strings.Replace(premium, "tok_ok", "decline", 1)
		resp, body := call(t, http.MethodPost, srv.URL+"/api/checkout", key, declined)
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
		assert.JSONEq(t, `{"code":402,"message":"payment declined"}`, body)
		assert.Len(t, box.all(), 1, "no email for declined payment")
	})

	t.Run("missing order", func(t *testing.T) {
		resp, _ := call(t, http.MethodGet, srv.URL+"/api/orders/999999", key, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
