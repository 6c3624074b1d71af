// Package main запускает HTTP-сервер сервиса заказов столовой кампуса.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/campus-canteen/internal/config"
	"github.com/mmeshcher/campus-canteen/internal/handler"
	"github.com/mmeshcher/campus-canteen/internal/middleware"
	"github.com/mmeshcher/campus-canteen/internal/payment"
	"github.com/mmeshcher/campus-canteen/internal/repository"
	"github.com/mmeshcher/campus-canteen/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if cfg.JWTSecret == "" {
		sugar.Fatal("JWT_SECRET is required")
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var gateway service.Gateway
	if cfg.PaymentEnabled() {
		gateway = payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentKeyID, cfg.PaymentKeySecret)
	} else {
		sugar.Warn("payment gateway keys are not set, gateway checkout is disabled")
	}

	svc := service.NewService(repo, gateway, logger, service.Options{
		StrictTransitions: cfg.StrictTransitions,
		MaxOrderTotal:     cfg.MaxOrderTotal,
		MaxTopUp:          cfg.MaxTopUp,
		Currency:          cfg.PaymentCurrency,
	})
	defer svc.Close()

	store, err := middleware.NewLimiterStore(cfg.RedisURL, "canteen")
	if err != nil {
		sugar.Fatalw("rate limiter initialization error", "error", err.Error())
	}
	loginLimiter := middleware.NewLoginLimiter(store, cfg.LoginAttempts, cfg.LoginWindow)

	var apiLimiter func(http.Handler) http.Handler
	if cfg.APIRateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(cfg.APIRateLimit)
		if err != nil {
			sugar.Fatalw("invalid API_RATE_LIMIT", "error", err.Error())
		}
		apiLimiter = middleware.RateLimit(store, rate)
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, loginLimiter, apiLimiter)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Периодическая сверка балансов с журналом проводок
	g.Go(func() error {
		svc.StartBalanceAudit(ctx, cfg.AuditInterval)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting canteen server", "addr", cfg.RunAddress, "strict", cfg.StrictTransitions)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
