package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

const (
	insertOrderSQL = `INSERT INTO orders (customer_id, status, subtotal, total, items)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at`

	getOrderByIDSQL = `SELECT id, customer_id, status, subtotal, total, items, created_at
	FROM orders WHERE id = $1`
)

var _ checkout.OrderRepository = (*OrderRepository)(nil)

// OrderRepository implements checkout.OrderRepository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Save inserts the order and returns a copy carrying the database-assigned ID
// and creation time. Items are stored in a JSONB column.
func (r *OrderRepository) Save(ctx context.Context, o checkout.Order) (*checkout.Order, error) {
	items := o.Items
	if items == nil {
		items = []checkout.Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshaling order items: %w", err)
	}

	err = r.pool.QueryRow(ctx, insertOrderSQL,
		o.CustomerID, string(o.Status), o.Subtotal, o.Total, itemsJSON,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating order for customer %q: %w", o.CustomerID, err)
	}

	return &o, nil
}

// FindByID returns a persisted order. It returns checkout.ErrOrderNotFound
// when no order has the given ID.
func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*checkout.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (checkout.Order, error) {
	var (
		o         checkout.Order
		status    string
		itemsJSON []byte
	)
	if err := row.Scan(
		&o.ID, &o.CustomerID, &status, &o.Subtotal, &o.Total, &itemsJSON, &o.CreatedAt,
	); err != nil {
		return o, err
	}
	o.Status = checkout.Status(status)

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order %d items: %w", o.ID, err)
	}
	return o, nil
}
