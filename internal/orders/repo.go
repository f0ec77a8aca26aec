package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var (
	ErrNotFound = errors.New("not found")

	// ErrOversold means the ledger decrement would go negative: the cache
	// counter diverged from the ledger. The caller must compensate and
	// resync the counter from the stock value returned alongside.
	ErrOversold = errors.New("oversold")
)

// CreateOrder persists the order in pending status inside a transaction.
// Idempotent on the order id: a duplicate job (at-least-once delivery)
// reports created=false and leaves the existing row alone.
func (r *Repo) CreateOrder(ctx context.Context, o Order) (created bool, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, product_id, status, total_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, o.ID, o.UserID, o.ProductID, string(StatusPending), o.TotalCents)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) OrderExists(ctx context.Context, orderID string) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE id=$1`, orderID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repo) UpdateOrderStatus(ctx context.Context, orderID string, s Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, string(s))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	var s string
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, product_id, status, total_cents, created_at, updated_at
		FROM orders WHERE id=$1
	`, orderID).Scan(&o.ID, &o.UserID, &o.ProductID, &s, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(s)
	return o, nil
}

func (r *Repo) GetProduct(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, stock, price_cents, created_at, updated_at
		FROM products WHERE id=$1
	`, productID).Scan(&p.ID, &p.Name, &p.Stock, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, stock, price_cents, created_at, updated_at
                                FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Settle is the only place durable stock is mutated. Under a row lock it
// re-checks the ledger, decrements one unit and confirms the order in the
// same transaction. If the decrement would go negative nothing is
// committed and ErrOversold is returned with the ledger's true stock so
// the caller can resync the cache counter.
func (r *Repo) Settle(ctx context.Context, orderID, productID string) (stock int, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	if stock-1 < 0 {
		return stock, ErrOversold // rollback via defer
	}

	if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - 1, updated_at=now() WHERE id=$1`, productID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, string(StatusConfirmed)); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return stock - 1, nil
}
