package model

import (
	"time"

	"edupay/internal/domain"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// CanPurchase reports whether the role is allowed to open a checkout.
// Only paying customers (students) may buy plans; staff accounts are rejected.
func (r Role) CanPurchase() bool { return r == RoleStudent }

// User is the slice of the platform user record the payment pipeline touches.
// ActiveBatchID always reflects the batch of the most recently fulfilled
// purchase (last fulfillment wins).
type User struct {
	ID            string
	Email         string
	Role          Role
	ActiveBatchID *string
	CreatedAt     time.Time
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

func NewUser(id, email string, role Role) (*User, error) {
	if id == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	if role == "" {
		role = RoleStudent
	}
	return &User{ID: id, Email: email, Role: role, CreatedAt: time.Now()}, nil
}
