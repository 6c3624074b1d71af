package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/campus-canteen/internal/model"
	"github.com/mmeshcher/campus-canteen/internal/repository"
	"github.com/mmeshcher/campus-canteen/internal/validation"
)

// GetWallet возвращает баланс и последние проводки пользователя.
func (s *Service) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.repo.GetWallet(ctx, userID)
}

// TopUpWallet пополняет кошелёк и записывает проводку в одной транзакции.
func (s *Service) TopUpWallet(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !validation.IsValidAmount(amount, s.opts.MaxTopUp) {
		return decimal.Zero, fmt.Errorf("%w: amount must be between 0 and %s", ErrValidation, s.opts.MaxTopUp.StringFixed(2))
	}

	var balance decimal.Decimal
	err := s.repo.WithinTx(ctx, func(l repository.Ledger) error {
		var err error
		balance, err = l.CreditUser(ctx, userID, amount)
		if err != nil {
			return err
		}
		return l.AppendUserTransaction(ctx, userID, model.Transaction{
			Amount:      amount,
			Type:        model.TxCredit,
			Funding:     model.FundingWallet,
			Description: "Wallet top-up",
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("wallet topped up", zap.Int64("userID", userID), zap.String("amount", amount.StringFixed(2)))
	return balance, nil
}
