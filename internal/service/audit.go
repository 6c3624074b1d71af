package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/repository"
)

// AuditBalances сверяет кэшированные балансы с журналом проводок и логирует расхождения.
func (s *Service) AuditBalances(ctx context.Context) ([]repository.BalanceMismatch, error) {
	res, err := s.repo.AuditBalances(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range res {
		s.logger.Error("balance mismatch",
			zap.String("kind", m.Kind),
			zap.Int64("id", m.ID),
			zap.String("cached", m.Cached.StringFixed(2)),
			zap.String("computed", m.Computed.StringFixed(2)),
		)
	}
	return res, nil
}

// StartBalanceAudit периодически сверяет балансы до отмены контекста.
// interval <= 0 отключает сверку.
func (s *Service) StartBalanceAudit(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.AuditBalances(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("balance audit failed", zap.Error(err))
			}
		}
	}
}
