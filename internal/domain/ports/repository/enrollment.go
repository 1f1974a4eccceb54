package repository

import (
	"context"

	"edupay/internal/domain/model"
)

type EnrollmentRepository interface {
	// CreateIfAbsent inserts the enrollment unless one already exists for
	// (student, course). The bool reports whether a row was created; an
	// existing enrollment is (false, nil), not an error.
	CreateIfAbsent(ctx context.Context, tx Tx, e *model.Enrollment) (bool, error)

	ListByStudent(ctx context.Context, tx Tx, studentID string) ([]*model.Enrollment, error)
}
