package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"edupay/internal/domain"
	"edupay/internal/domain/model"
	"edupay/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*planRepo)(nil)

// DB columns: id UUID PK, key TEXT UNIQUE, name TEXT, amount BIGINT,
// currency TEXT, duration_days INT, batch_id UUID, course_ids TEXT[],
// active BOOL, created_at TIMESTAMPTZ. duration_days <= 0 means perpetual.
type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planColumns = `id, key, name, amount, currency, duration_days, batch_id, course_ids, active, created_at`

func scanPlan(row pgx.Row) (*model.Plan, error) {
	p := &model.Plan{}
	if err := row.Scan(&p.ID, &p.Key, &p.Name, &p.Amount, &p.Currency, &p.DurationDays, &p.BatchID, &p.CourseIDs, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) FindActiveByKey(ctx context.Context, tx repository.Tx, key string) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE key=$1 AND active;`
	row, err := pickRow(ctx, r.pool, tx, q, key)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}
