//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

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

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// Migrations must be safe to re-run on every start.
	require.NoError(t, RunMigrations(ctx, pool))

	return pool
}

func TestOrderRepository(t *testing.T) {
	repo := NewOrderRepository(setupPool(t))
	ctx := context.Background()

	t.Run("Save assigns increasing IDs", func(t *testing.T) {
		in := checkout.Order{
			CustomerID: "2",
			Status:     checkout.StatusProcessed,
			Subtotal:   decimal.RequireFromString("200.00"),
			Total:      decimal.RequireFromString("180.00"),
			Items: []checkout.Item{
				{Name: "Notebook", Price: decimal.RequireFromString("150.00")},
				{Name: "Mouse", Price: decimal.RequireFromString("50.00")},
			},
		}

		first, err := repo.Save(ctx, in)
		require.NoError(t, err)
		assert.NotZero(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())
		assert.Equal(t, in.CustomerID, first.CustomerID)
		assert.True(t, in.Total.Equal(first.Total))
		assert.Zero(t, in.ID, "input order must not be mutated")

		second, err := repo.Save(ctx, in)
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)

		got, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, checkout.StatusProcessed, got.Status)
		assert.True(t, decimal.RequireFromString("180").Equal(got.Total))
		assert.True(t, decimal.RequireFromString("200").Equal(got.Subtotal))
		require.Len(t, got.Items, 2)
		assert.Equal(t, "Notebook", got.Items[0].Name)
		assert.True(t, decimal.RequireFromString("150").Equal(got.Items[0].Price))
	})

	t.Run("Save empty order", func(t *testing.T) {
		saved, err := repo.Save(ctx, checkout.Order{
			CustomerID: "1",
			Status:     checkout.StatusProcessed,
			Subtotal:   decimal.Zero,
			Total:      decimal.Zero,
		})
		require.NoError(t, err)

		got, err := repo.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.True(t, got.Total.IsZero())
		assert.Empty(t, got.Items)
	})

	t.Run("FindByID missing", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 987654)
		require.ErrorIs(t, err, checkout.ErrOrderNotFound)
	})
}

func TestAPIKeyRepository(t *testing.T) {
	pool := setupPool(t)
	repo := NewAPIKeyRepository(pool)
	ctx := context.Background()

	hash := auth.Hash([]byte("pepper"), "k-1")
	created, err := repo.Create(ctx, "storefront", hash, []string{auth.ScopeCheckout})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := repo.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "storefront", got.Name)
	assert.True(t, got.Allows(auth.ScopeCheckout))

	_, err = repo.Create(ctx, "dup", hash, nil)
	require.Error(t, err)

	_, err = pool.Exec(ctx, `UPDATE api_keys SET active = FALSE WHERE id = $1`, created.ID)
	require.NoError(t, err)
	_, err = repo.FindByHash(ctx, hash)
	require.ErrorIs(t, err, auth.ErrKeyNotFound)

	_, err = repo.FindByHash(ctx, "missing")
	require.ErrorIs(t, err, auth.ErrKeyNotFound)
}
