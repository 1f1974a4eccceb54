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

var _ repository.EnrollmentRepository = (*enrollmentRepo)(nil)

// DB columns: id UUID PK, student_id UUID, course_id UUID, batch_id UUID,
// enrolled_at TIMESTAMPTZ, UNIQUE (student_id, course_id).
type enrollmentRepo struct{ pool *pgxpool.Pool }

func NewEnrollmentRepo(pool *pgxpool.Pool) *enrollmentRepo {
	return &enrollmentRepo{pool: pool}
}

// CreateIfAbsent relies on ON CONFLICT DO NOTHING against the (student, course)
// uniqueness constraint; zero rows affected means the enrollment already
// existed, reported as (false, nil) rather than an error.
func (r *enrollmentRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, e *model.Enrollment) (bool, error) {
	const q = `
INSERT INTO enrollments (id, student_id, course_id, batch_id, enrolled_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (student_id, course_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, e.ID, e.StudentID, e.CourseID, e.BatchID, e.EnrolledAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *enrollmentRepo) ListByStudent(ctx context.Context, tx repository.Tx, studentID string) ([]*model.Enrollment, error) {
	const q = `SELECT id, student_id, course_id, batch_id, enrolled_at FROM enrollments WHERE student_id=$1 ORDER BY enrolled_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, studentID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Enrollment
	for rows.Next() {
		e := &model.Enrollment{}
		if err := rows.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.BatchID, &e.EnrolledAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}
