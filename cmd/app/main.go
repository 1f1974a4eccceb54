// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"edupay/internal/config"
	"edupay/internal/infra/api"
	pg "edupay/internal/infra/db/postgres"
	"edupay/internal/infra/logging"
	"edupay/internal/infra/metrics"
	pay "edupay/internal/infra/payment"
	red "edupay/internal/infra/redis"
	"edupay/internal/infra/sched"
	"edupay/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis (optional: webhook dedup only) ----
	var dedup api.EventDedup
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		dedup = red.NewWebhookDedup(redisClient, cfg.Redis.TTL)
	} else {
		logger.Warn().Msg("redis not configured; webhook dedup disabled")
	}

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	enrollmentRepo := pg.NewEnrollmentRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Gateway & verifier ----
	rz := cfg.Payment.Razorpay
	gateway := pay.NewRazorpayGateway(rz.KeyID, rz.KeySecret, rz.BaseURL)
	if rz.KeyID == "" || rz.KeySecret == "" {
		logger.Warn().Msg("razorpay credentials not set; checkout will fail until configured")
	}
	if rz.WebhookSecret == "" {
		logger.Warn().Msg("razorpay webhook secret not set; webhook signature check disabled")
	}
	verifier := pay.NewHMACVerifier(rz.KeySecret, rz.WebhookSecret)

	// ---- Use cases ----
	checkoutUC := usecase.NewCheckoutUseCase(userRepo, planRepo, purchaseRepo, gateway, logger)
	fulfillUC := usecase.NewFulfillmentUseCase(purchaseRepo, planRepo, userRepo, enrollmentRepo, verifier, tm, gateway.Name(), logger)

	// ---- Reconciler ----
	if cfg.Reconciler.Enabled {
		rec := sched.NewReconciler(fulfillUC, purchaseRepo, gateway,
			cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.BatchSize, logger)
		go rec.Start(ctx)
	}

	// ---- HTTP server ----
	auth := api.NewAuthManager(cfg.Auth.JWTSecret)
	server := api.NewServer(checkoutUC, fulfillUC, verifier, auth, dedup, cfg.Server.RequestTimeout, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Routes(),
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
