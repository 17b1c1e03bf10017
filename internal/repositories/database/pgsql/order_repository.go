package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/feastly/ledger_backend/internal/apperrors"
	"github.com/feastly/ledger_backend/internal/core/domain"
	portsrepo "github.com/feastly/ledger_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxOrderRepository implements orchestrator order-state persistence using pgx
type PgxOrderRepository struct {
	BaseRepository
}

// newPgxOrderRepository creates a new order repository
func newPgxOrderRepository(pool *pgxpool.Pool) *PgxOrderRepository {
	return &PgxOrderRepository{BaseRepository{Pool: pool}}
}

const orderColumns = `order_ref, state, subtotal, delivery_fee, commission_rate, payment_method, restaurant_ref, courier_ref, client_ref, flagged, flag_reason, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.OrderRef, &o.State, &o.Subtotal, &o.DeliveryFee, &o.CommissionRate,
		&o.PaymentMethod, &o.RestaurantRef, &o.CourierRef, &o.ClientRef, &o.Flagged, &o.FlagReason, &o.UpdatedAt)
	return o, err
}

// FindOrder retrieves the orchestrator state for an order.
func (r *PgxOrderRepository) FindOrder(ctx context.Context, orderRef string) (*domain.Order, error) {
	order, err := scanOrder(r.Pool.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE order_ref = $1`, orderRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapDBError(err, "failed to find order")
	}
	return &order, nil
}

// ListFlaggedOrders returns orders excluded from automated processing, most
// recently touched first.
func (r *PgxOrderRepository) ListFlaggedOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE flagged ORDER BY updated_at DESC, order_ref`)
	if err != nil {
		return nil, wrapDBError(err, "failed to query flagged orders")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrapDBError(err, "failed to scan order row")
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "failed iterating order rows")
	}
	return orders, nil
}

// SaveOrder inserts or updates the order state row. Flag fields are not
// overwritten here; FlagOrder owns them.
func (r *PgxOrderRepository) SaveOrder(ctx context.Context, order domain.Order) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO orders (order_ref, state, subtotal, delivery_fee, commission_rate, payment_method,
			restaurant_ref, courier_ref, client_ref, flagged, flag_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_ref) DO UPDATE SET
			state = EXCLUDED.state,
			subtotal = EXCLUDED.subtotal,
			delivery_fee = EXCLUDED.delivery_fee,
			commission_rate = EXCLUDED.commission_rate,
			payment_method = EXCLUDED.payment_method,
			restaurant_ref = EXCLUDED.restaurant_ref,
			courier_ref = EXCLUDED.courier_ref,
			client_ref = EXCLUDED.client_ref,
			updated_at = EXCLUDED.updated_at`,
		order.OrderRef, order.State, order.Subtotal, order.DeliveryFee, order.CommissionRate,
		order.PaymentMethod, order.RestaurantRef, order.CourierRef, order.ClientRef,
		order.Flagged, order.FlagReason, order.UpdatedAt)
	if err != nil {
		return wrapDBError(err, "failed to save order")
	}
	return nil
}

// FlagOrder marks an order as a reconciliation conflict with a reason.
func (r *PgxOrderRepository) FlagOrder(ctx context.Context, orderRef string, reason string) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE orders SET flagged = TRUE, flag_reason = $1, updated_at = $2 WHERE order_ref = $3`,
		reason, time.Now().UTC(), orderRef)
	if err != nil {
		return wrapDBError(err, "failed to flag order")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

var _ portsrepo.OrderRepositoryFacade = (*PgxOrderRepository)(nil)
