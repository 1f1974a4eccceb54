package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"edupay/internal/domain/ports/adapter"
	"edupay/internal/usecase"
)

// EventDedup short-circuits duplicate webhook deliveries by event id.
// Implementations are advisory: correctness comes from the ledger.
type EventDedup interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Server wires the payment routes to their use cases.
type Server struct {
	checkoutUC usecase.CheckoutUseCase
	fulfillUC  usecase.FulfillmentUseCase
	verifier   adapter.SignatureVerifier
	auth       *AuthManager
	dedup      EventDedup // may be nil
	timeout    time.Duration
	log        *zerolog.Logger
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	fulfillUC usecase.FulfillmentUseCase,
	verifier adapter.SignatureVerifier,
	auth *AuthManager,
	dedup EventDedup,
	timeout time.Duration,
	logger *zerolog.Logger,
) *Server {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Server{
		checkoutUC: checkoutUC,
		fulfillUC:  fulfillUC,
		verifier:   verifier,
		auth:       auth,
		dedup:      dedup,
		timeout:    timeout,
		log:        logger,
	}
}

// Routes builds the router. The webhook route is unauthenticated by design:
// the gateway is the caller and authenticates via payload signature.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Timeout(s.timeout))

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.auth.Authenticate)
			r.Post("/checkout", s.handleCheckout)
			r.Post("/confirm", s.handleConfirm)
		})
		r.Post("/webhook", s.handleWebhook)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
