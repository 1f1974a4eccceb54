package repository

import (
	"context"
	"time"

	"edupay/internal/domain/model"
)

// PurchaseRepository is the durable ledger of checkout attempts.
// Rows are unique on (provider, provider_checkout_id).
type PurchaseRepository interface {
	// Create inserts a new pending row. A duplicate idempotency key is an error.
	Create(ctx context.Context, tx Tx, p *model.Purchase) error

	// FindByCheckoutID resolves a purchase by its idempotency key.
	FindByCheckoutID(ctx context.Context, tx Tx, provider, checkoutID string) (*model.Purchase, error)

	// UpsertPaid is the atomic insert-if-absent-then-apply-success-fields step
	// keyed on (provider, provider_checkout_id). If no row exists, the full
	// purchase shape plus success fields are written in one statement; if a row
	// exists, only the success fields are applied, with paid_at/valid_until set
	// once and never overwritten. A row already in a terminal failed/canceled
	// state is left untouched and ErrInvalidStatusTransition is returned.
	// Returns the row as stored after the operation.
	UpsertPaid(ctx context.Context, tx Tx, p *model.Purchase) (*model.Purchase, error)

	// ListPendingOlderThan returns stale pending purchases for reconciliation.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Purchase, error)
}
