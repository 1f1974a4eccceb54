package repository

import (
	"context"

	"edupay/internal/domain/model"
)

// PlanRepository is read-only for the payment pipeline.
type PlanRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	// FindActiveByKey resolves a plan by its client-facing key; inactive plans
	// are treated as not found.
	FindActiveByKey(ctx context.Context, tx Tx, key string) (*model.Plan, error)
}
