package postgres

import (
	"errors"

	"context"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"edupay/internal/domain"
	"edupay/internal/domain/model"
	"edupay/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

// DB columns: id UUID PK, provider TEXT, provider_checkout_id TEXT, user_id UUID,
// plan_id UUID, batch_id UUID, amount BIGINT, currency TEXT, status TEXT,
// provider_payment_id TEXT NULL, paid_at TIMESTAMPTZ NULL, valid_until TIMESTAMPTZ NULL,
// metadata JSONB, created_at TIMESTAMPTZ, updated_at TIMESTAMPTZ,
// UNIQUE (provider, provider_checkout_id).
type purchaseRepo struct{ pool *pgxpool.Pool }

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, provider, provider_checkout_id, user_id, plan_id, batch_id, amount, currency, status, provider_payment_id, paid_at, valid_until, metadata, created_at, updated_at`

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	p := &model.Purchase{}
	var paymentID *string
	if err := row.Scan(&p.ID, &p.Provider, &p.ProviderCheckoutID, &p.UserID, &p.PlanID, &p.BatchID, &p.Amount, &p.Currency, &p.Status, &paymentID, &p.PaidAt, &p.ValidUntil, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if paymentID != nil {
		p.ProviderPaymentID = *paymentID
	}
	return p, nil
}

func (r *purchaseRepo) Create(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	const q = `
INSERT INTO purchases (` + purchaseColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),$11,$12,$13,$14,$15);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Provider, p.ProviderCheckoutID, p.UserID, p.PlanID, p.BatchID, p.Amount, p.Currency,
		string(p.Status), p.ProviderPaymentID, p.PaidAt, p.ValidUntil, p.Metadata, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *purchaseRepo) FindByCheckoutID(ctx context.Context, tx repository.Tx, provider, checkoutID string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE provider=$1 AND provider_checkout_id=$2`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, provider, checkoutID)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

// UpsertPaid performs the atomic insert-if-absent-then-apply-update on the
// (provider, provider_checkout_id) idempotency key. The insert arm writes the
// full purchase shape together with the success fields; the conflict arm
// applies the success fields only, with paid_at/valid_until COALESCEd so they
// are set exactly once. Rows already failed/canceled are excluded by the
// conflict WHERE clause, which keeps the status machine strictly forward.
func (r *purchaseRepo) UpsertPaid(ctx context.Context, tx repository.Tx, p *model.Purchase) (*model.Purchase, error) {
	const q = `
INSERT INTO purchases (` + purchaseColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'paid',$9,$10,$11,$12,NOW(),NOW())
ON CONFLICT (provider, provider_checkout_id) DO UPDATE SET
  status              = 'paid',
  provider_payment_id = EXCLUDED.provider_payment_id,
  paid_at             = COALESCE(purchases.paid_at, EXCLUDED.paid_at),
  valid_until         = COALESCE(purchases.valid_until, EXCLUDED.valid_until),
  metadata            = COALESCE(EXCLUDED.metadata, purchases.metadata),
  updated_at          = NOW()
WHERE purchases.status IN ('pending','paid')
RETURNING ` + purchaseColumns + `;`

	row, err := pickRow(ctx, r.pool, tx, q,
		p.ID, p.Provider, p.ProviderCheckoutID, p.UserID, p.PlanID, p.BatchID, p.Amount, p.Currency,
		p.ProviderPaymentID, p.PaidAt, p.ValidUntil, p.Metadata)
	if err != nil {
		return nil, err
	}
	stored, err := scanPurchase(row)
	if errors.Is(err, domain.ErrNotFound) {
		// The conflict row exists but is in a terminal failed/canceled state.
		return nil, domain.ErrInvalidStatusTransition
	}
	return stored, err
}

func (r *purchaseRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Purchase, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
