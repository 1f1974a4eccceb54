package repository

import (
	"context"

	"edupay/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// SetActiveBatch points the user at the batch of their most recently
	// fulfilled purchase. Returns ErrNotFound if the user vanished.
	SetActiveBatch(ctx context.Context, tx Tx, userID, batchID string) error
}
