package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kural1554/Finance/internal/auth"
	"github.com/kural1554/Finance/internal/config"
	"github.com/kural1554/Finance/internal/db"
	"github.com/kural1554/Finance/internal/domain/applicant"
	"github.com/kural1554/Finance/internal/domain/loan"
	"github.com/kural1554/Finance/internal/domain/sequence"
	"github.com/kural1554/Finance/internal/domain/staff"
	"github.com/kural1554/Finance/internal/http/handlers"
	"github.com/kural1554/Finance/internal/observability"
	postgresrepo "github.com/kural1554/Finance/internal/repository/postgres"
	"github.com/kural1554/Finance/internal/server"
	"github.com/kural1554/Finance/internal/ws"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	staffService := staff.NewService(
		postgresrepo.NewStaffRepository(pool),
		postgresrepo.NewAdminAuditRepository(pool),
		observability.Component(logger, "staff"),
	)
	created, err := staffService.EnsureBootstrapAdmin(ctx, cfg.AuthBootstrapAdminUsername, cfg.AuthBootstrapAdminPassword)
	if err != nil {
		logger.Error("failed to bootstrap admin", "err", err)
		os.Exit(1)
	}
	if created {
		logger.Info("bootstrap admin created", "username", cfg.AuthBootstrapAdminUsername)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)
	authService := auth.NewService(db.NewAuthRepository(pool), jwtManager, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	authHandler := handlers.NewAuthHandler(authService, auth.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	allocator := sequence.NewAllocator(sequence.Config{
		Prefix:      cfg.LoanIDPrefix,
		MinWidth:    int(cfg.LoanIDMinWidth),
		MaxAttempts: int(cfg.LoanIDMaxAttempts),
	}, observability.Component(logger, "sequence"))
	loanService := loan.NewService(postgresrepo.NewStore(pool), allocator, cfg.LoanPaidEpsilon, observability.Component(logger, "loan"))
	applicantService := applicant.NewService(postgresrepo.NewApplicantRepository(pool))

	hub := ws.NewHub()
	notifier := ws.NewNotifier(postgresrepo.NewEventRepository(pool), hub, cfg.RealtimePollInterval, observability.Component(logger, "realtime"))

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:           pool,
		AuthHandler:      authHandler,
		LoanHandler:      handlers.NewLoanHandler(loanService),
		ApplicantHandler: handlers.NewApplicantHandler(applicantService),
		StaffHandler:     handlers.NewStaffHandler(staffService),
		WSHandler:        ws.NewHandler(hub),
		JWTManager:       jwtManager,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := notifier.Run(sigCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("realtime notifier stopped", "err", err)
		}
	}()

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}
