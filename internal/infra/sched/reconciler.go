package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"edupay/internal/domain/ports/adapter"
	"edupay/internal/domain/ports/repository"
	"edupay/internal/usecase"
)

// Reconciler periodically scans for stale pending purchases and asks the
// gateway whether a payment was actually captured, re-driving fulfillment for
// the ones that were. This covers confirmations lost to closed browser tabs,
// dropped webhooks, or a crash mid-fulfillment; re-running is safe because the
// fulfillment engine is idempotent.
type Reconciler struct {
	uc         usecase.FulfillmentUseCase
	purchases  repository.PurchaseRepository
	gateway    adapter.PaymentGateway
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending purchase must be to retry
	batchSize  int
	log        *zerolog.Logger
}

func NewReconciler(
	uc usecase.FulfillmentUseCase,
	purchases repository.PurchaseRepository,
	gateway adapter.PaymentGateway,
	interval, staleAfter time.Duration,
	batchSize int,
	logger *zerolog.Logger,
) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Reconciler{
		uc:         uc,
		purchases:  purchases,
		gateway:    gateway,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		log:        logger,
	}
}

func (w *Reconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Reconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.purchases.ListPendingOlderThan(ctx, repository.NoTX, cutoff, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list pending purchases")
		return
	}

	for _, p := range pending {
		payments, err := w.gateway.FetchOrderPayments(ctx, p.ProviderCheckoutID)
		if err != nil {
			w.log.Warn().Str("order_id", p.ProviderCheckoutID).Err(err).
				Msg("reconciler: fetch order payments")
			continue
		}
		for _, gp := range payments {
			if gp.Status != "captured" {
				continue
			}
			if _, err := w.uc.HandleGatewayConfirmation(ctx, usecase.SourceReconciler, p.ProviderCheckoutID, gp.ID, nil); err != nil {
				w.log.Warn().Str("order_id", p.ProviderCheckoutID).Str("payment_id", gp.ID).Err(err).
					Msg("reconciler: fulfillment failed")
				continue
			}
			w.log.Info().Str("order_id", p.ProviderCheckoutID).Str("payment_id", gp.ID).
				Msg("reconciler: purchase reconciled")
			break
		}
	}
}
