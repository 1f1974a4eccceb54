package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"edupay/internal/domain"
	"edupay/internal/domain/model"
	"edupay/internal/domain/ports/adapter"
	"edupay/internal/domain/ports/repository"
	"edupay/internal/infra/metrics"
)

// Compile-time check
var _ FulfillmentUseCase = (*fulfillmentUC)(nil)

// FulfillmentSource tags which entry point drove a fulfillment.
type FulfillmentSource string

const (
	SourceClient     FulfillmentSource = "client"
	SourceWebhook    FulfillmentSource = "webhook"
	SourceReconciler FulfillmentSource = "reconciler"
)

// FulfillmentRequest is a verified (provider, checkoutID, paymentID) tuple plus
// the purchase context resolved from the pending row.
type FulfillmentRequest struct {
	Provider   string
	CheckoutID string
	PaymentID  string
	UserID     string
	PlanID     string
	Metadata   map[string]string
	Source     FulfillmentSource
}

type FulfillmentUseCase interface {
	// Confirm is the synchronous client path: ownership check, signature check,
	// then fulfillment.
	Confirm(ctx context.Context, userID, orderID, paymentID, signature string) (*model.Purchase, error)

	// HandleGatewayConfirmation is the asynchronous path (webhook, reconciler):
	// the payload signature has already been verified by the receiver; this
	// matches the order to an existing purchase and fulfills it.
	HandleGatewayConfirmation(ctx context.Context, source FulfillmentSource, orderID, paymentID string, meta map[string]string) (*model.Purchase, error)

	// Fulfill is the idempotent core. Calling it twice with the same verified
	// tuple yields the same final purchase, batch assignment, and enrollment
	// set as calling it once.
	Fulfill(ctx context.Context, req FulfillmentRequest) (*model.Purchase, error)
}

type fulfillmentUC struct {
	purchases   repository.PurchaseRepository
	plans       repository.PlanRepository
	users       repository.UserRepository
	enrollments repository.EnrollmentRepository
	verifier    adapter.SignatureVerifier
	tm          repository.TransactionManager
	provider    string
	log         *zerolog.Logger
}

func NewFulfillmentUseCase(
	purchases repository.PurchaseRepository,
	plans repository.PlanRepository,
	users repository.UserRepository,
	enrollments repository.EnrollmentRepository,
	verifier adapter.SignatureVerifier,
	tm repository.TransactionManager,
	provider string,
	logger *zerolog.Logger,
) *fulfillmentUC {
	return &fulfillmentUC{
		purchases:   purchases,
		plans:       plans,
		users:       users,
		enrollments: enrollments,
		verifier:    verifier,
		tm:          tm,
		provider:    provider,
		log:         logger,
	}
}

func (uc *fulfillmentUC) Confirm(ctx context.Context, userID, orderID, paymentID, signature string) (*model.Purchase, error) {
	p, err := uc.purchases.FindByCheckoutID(ctx, repository.NoTX, uc.provider, orderID)
	if err != nil {
		return nil, fmt.Errorf("confirm: resolve order %s: %w", orderID, err)
	}
	if p.UserID != userID {
		uc.log.Warn().Str("order_id", orderID).Str("caller", userID).Str("owner", p.UserID).
			Msg("confirmation for an order owned by another user")
		return nil, fmt.Errorf("confirm: order %s: %w", orderID, domain.ErrForbidden)
	}
	if err := uc.verifier.VerifyCheckout(orderID, paymentID, signature); err != nil {
		// Logged for abuse monitoring; no state is mutated on mismatch.
		uc.log.Warn().Str("order_id", orderID).Str("payment_id", paymentID).Str("user_id", userID).
			Msg("invalid checkout signature")
		return nil, fmt.Errorf("confirm: order %s: %w", orderID, err)
	}

	return uc.Fulfill(ctx, FulfillmentRequest{
		Provider:   uc.provider,
		CheckoutID: orderID,
		PaymentID:  paymentID,
		UserID:     p.UserID,
		PlanID:     p.PlanID,
		Source:     SourceClient,
	})
}

func (uc *fulfillmentUC) HandleGatewayConfirmation(ctx context.Context, source FulfillmentSource, orderID, paymentID string, meta map[string]string) (*model.Purchase, error) {
	p, err := uc.purchases.FindByCheckoutID(ctx, repository.NoTX, uc.provider, orderID)
	if err != nil {
		// A notification that matches no purchase is rejected; the gateway's
		// retry covers the window where the pending insert is not yet visible.
		return nil, fmt.Errorf("gateway confirmation: resolve order %s: %w", orderID, err)
	}

	return uc.Fulfill(ctx, FulfillmentRequest{
		Provider:   uc.provider,
		CheckoutID: orderID,
		PaymentID:  paymentID,
		UserID:     p.UserID,
		PlanID:     p.PlanID,
		Metadata:   meta,
		Source:     source,
	})
}

func (uc *fulfillmentUC) Fulfill(ctx context.Context, req FulfillmentRequest) (*model.Purchase, error) {
	start := time.Now()

	plan, err := uc.plans.FindByID(ctx, repository.NoTX, req.PlanID)
	if err != nil {
		// The plan was present at checkout; its absence now is an integrity
		// fault needing manual reconciliation, not a retriable condition.
		uc.log.Error().Str("plan_id", req.PlanID).Str("order_id", req.CheckoutID).Err(err).
			Msg("fulfillment references a missing plan")
		metrics.IncFulfillment(string(req.Source), "integrity_error")
		return nil, fmt.Errorf("fulfill order %s: plan %s: %w", req.CheckoutID, req.PlanID, err)
	}
	user, err := uc.users.FindByID(ctx, repository.NoTX, req.UserID)
	if err != nil {
		uc.log.Error().Str("user_id", req.UserID).Str("order_id", req.CheckoutID).Err(err).
			Msg("fulfillment references a missing user")
		metrics.IncFulfillment(string(req.Source), "integrity_error")
		return nil, fmt.Errorf("fulfill order %s: user %s: %w", req.CheckoutID, req.UserID, err)
	}

	now := time.Now()
	var validUntil *time.Time
	if !plan.Perpetual() {
		vu := now.AddDate(0, 0, plan.DurationDays)
		validUntil = &vu
	}

	paid := &model.Purchase{
		ID:                 uuid.NewString(), // used only when the row is absent
		Provider:           req.Provider,
		ProviderCheckoutID: req.CheckoutID,
		UserID:             user.ID,
		PlanID:             plan.ID,
		BatchID:            plan.BatchID,
		Amount:             plan.Amount,
		Currency:           plan.Currency,
		Status:             model.PurchaseStatusPaid,
		ProviderPaymentID:  req.PaymentID,
		PaidAt:             &now,
		ValidUntil:         validUntil,
		Metadata:           req.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var (
		final           *model.Purchase
		enrolledCreated int
	)
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Single atomic insert-if-absent-then-apply-update on the idempotency
		// key. Concurrent invocations (webhook racing the client confirm, a
		// gateway retry) converge on exactly one logical fulfillment here.
		stored, err := uc.purchases.UpsertPaid(ctx, tx, paid)
		if err != nil {
			return err
		}
		final = stored

		// Last successful fulfillment wins the active batch.
		if err := uc.users.SetActiveBatch(ctx, tx, user.ID, plan.BatchID); err != nil {
			return fmt.Errorf("set active batch %s for user %s: %w", plan.BatchID, user.ID, err)
		}

		for _, courseID := range plan.CourseIDs {
			created, err := uc.enrollments.CreateIfAbsent(ctx, tx, model.NewEnrollment(uuid.NewString(), user.ID, courseID, plan.BatchID))
			if err != nil {
				// A true datastore fault, not a duplicate: abort. Re-running
				// the same fulfillment is safe and completes the remainder.
				return fmt.Errorf("enroll user %s in course %s: %w", user.ID, courseID, err)
			}
			if created {
				enrolledCreated++
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStatusTransition) {
			uc.log.Warn().Str("order_id", req.CheckoutID).
				Msg("payment confirmation for a purchase already in a terminal failed/canceled state")
			metrics.IncFulfillment(string(req.Source), "stale")
			return nil, err
		}
		metrics.IncFulfillment(string(req.Source), "error")
		return nil, fmt.Errorf("fulfill order %s: %w", req.CheckoutID, err)
	}

	metrics.IncFulfillment(string(req.Source), "ok")
	metrics.AddEnrollmentsCreated(enrolledCreated)
	metrics.ObserveFulfillmentDuration(string(req.Source), time.Since(start))
	uc.log.Info().
		Str("order_id", req.CheckoutID).
		Str("payment_id", req.PaymentID).
		Str("user_id", user.ID).
		Str("batch_id", plan.BatchID).
		Int("enrollments_created", enrolledCreated).
		Str("source", string(req.Source)).
		Msg("purchase fulfilled")

	return final, nil
}
