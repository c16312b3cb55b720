package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"organlink/internal/audit"
	"organlink/internal/auth"
	"organlink/internal/dashboard"
	"organlink/internal/db"
	"organlink/internal/metrics"
	"organlink/internal/review"
	"organlink/internal/server"
	"organlink/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	config, err := loadConfig()
	if err != nil {
		return err
	}
	if config.IsDevelopment() {
		logger.SetLevel(logrus.DebugLevel)
	}

	tokens, err := auth.NewTokens(config.JWTSecret, time.Duration(config.TokenTTLHours)*time.Hour)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := store.NewUserRepository(pool)
	applicationRepo := store.NewApplicationRepository(pool)
	auditRepo := store.NewAuditRepository(pool)
	organRequestRepo := store.NewOrganRequestRepository(pool)
	donationRepo := store.NewDonationRepository(pool)
	approvalRepo := store.NewApprovalRepository(pool)
	transportRepo := store.NewTransportRepository(pool)

	recorder := audit.NewRecorder(auditRepo, logger)
	m := metrics.New()

	srv, err := server.New(config, logger, server.Dependencies{
		Users:         userRepo,
		Applications:  applicationRepo,
		AuditLogs:     auditRepo,
		OrganRequests: organRequestRepo,
		Donations:     donationRepo,
		Approvals:     approvalRepo,
		Transports:    transportRepo,

		Reviews:   review.NewService(store.NewReviewStore(pool), recorder, m, logger),
		Dashboard: dashboard.NewService(userRepo, organRequestRepo, transportRepo),
		Auditor:   recorder,
		Tokens:    tokens,
		Metrics:   m,
	})
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
