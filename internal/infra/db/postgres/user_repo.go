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

var _ repository.UserRepository = (*userRepo)(nil)

// DB columns: id UUID PK, email TEXT, role TEXT, active_batch_id UUID NULL,
// created_at TIMESTAMPTZ.
type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, email, role, active_batch_id, created_at FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Role, &u.ActiveBatchID, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

func (r *userRepo) SetActiveBatch(ctx context.Context, tx repository.Tx, userID, batchID string) error {
	const q = `UPDATE users SET active_batch_id=$2 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, batchID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
