// Command checkout-apikey provisions an API key for the checkout API and
// prints it once. Only the key's HMAC is stored.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		pepper      string
		name        string
		key         string
		scopes      string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper, must match the server (or CHECKOUT_API_KEY_PEPPER env)")
	flag.StringVar(&name, "name", "default", "key name shown in request logs")
	flag.StringVar(&key, "key", "", "key to store; generated when empty")
	flag.StringVar(&scopes, "scopes", auth.ScopeCheckout+","+auth.ScopeOrdersRead, "comma-separated scopes")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if pepper == "" {
		pepper = os.Getenv("CHECKOUT_API_KEY_PEPPER")
	}
	if databaseURL == "" || pepper == "" {
		lg.Fatal("Database URL and API key pepper are required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	created, err := run(ctx, lg, databaseURL, pepper, name, key, splitScopes(scopes))
	if err != nil {
		lg.Fatal("Provisioning failed", zap.Error(err))
	}
	fmt.Println(created)
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, pepper, name, key string, scopes []string) (string, error) {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return "", errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return "", errors.Wrap(err, "run migrations")
	}

	if key == "" {
		key, err = generateKey()
		if err != nil {
			return "", err
		}
	}

	stored, err := postgres.NewAPIKeyRepository(pool).Create(ctx, name, auth.Hash([]byte(pepper), key), scopes)
	if err != nil {
		return "", errors.Wrap(err, "store api key")
	}
	lg.Info("API key created",
		zap.Int64("id", stored.ID),
		zap.String("name", stored.Name),
		zap.Strings("scopes", stored.Scopes),
	)
	return key, nil
}

func generateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate key")
	}
	return "ck_" + hex.EncodeToString(buf), nil
}

func splitScopes(s string) []string {
	var out []string
	for _, scope := range strings.Split(s, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			out = append(out, scope)
		}
	}
	return out
}
