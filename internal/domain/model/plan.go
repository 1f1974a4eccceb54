package model

import (
	"time"

	"edupay/internal/domain"
)

// Plan is a purchasable bundle of courses tied to a batch. It is read-only
// for the payment pipeline: consumed, never mutated.
type Plan struct {
	ID           string
	Key          string // stable external identifier used by clients
	Name         string
	Amount       int64 // price in integer minor currency units
	Currency     string
	DurationDays int // <= 0 means perpetual access
	BatchID      string
	CourseIDs    []string // ordered list of included courses
	Active       bool
	CreatedAt    time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// Perpetual reports whether the plan grants unlimited-duration access.
func (p *Plan) Perpetual() bool { return p.DurationDays <= 0 }

// NewPlan validates and constructs a plan.
func NewPlan(id, key, name string, amount int64, currency string, durationDays int, batchID string, courseIDs []string) (*Plan, error) {
	if id == "" || key == "" || name == "" || amount <= 0 || currency == "" || batchID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:           id,
		Key:          key,
		Name:         name,
		Amount:       amount,
		Currency:     currency,
		DurationDays: durationDays,
		BatchID:      batchID,
		CourseIDs:    courseIDs,
		Active:       true,
		CreatedAt:    time.Now(),
	}, nil
}
