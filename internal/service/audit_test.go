package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditBalances_CleanAfterSettlements(t *testing.T) {
	svc, _, gw := newTestService(t, "100")
	ctx := context.Background()

	_, err := svc.PlaceWalletOrder(ctx, payerID, PlaceOrderRequest{Items: mixedCart()})
	require.NoError(t, err)
	_, err = svc.VerifyPayment(ctx, payerID, capturedPayment(t, svc, gw, "pay_A", 1, vendorOneCart()))
	require.NoError(t, err)
	_, err = svc.TopUpWallet(ctx, payerID, decimal.NewFromInt(10))
	require.NoError(t, err)

	res, err := svc.AuditBalances(ctx)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestAuditBalances_ReportsDrift(t *testing.T) {
	svc, repo, _ := newTestService(t, "100")

	u := repo.st.users[payerID]
	u.WalletBalance = decimal.RequireFromString("99.99")
	repo.st.users[payerID] = u

	res, err := svc.AuditBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "user", res[0].Kind)
	assert.Equal(t, payerID, res[0].ID)
	assert.True(t, res[0].Computed.Equal(decimal.NewFromInt(100)))
}

func TestStartBalanceAudit_Stops(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
	}{
		{name: "disabled", interval: 0},
		{name: "cancelled", interval: 10 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t, "0")

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				svc.StartBalanceAudit(ctx, tt.interval)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatalf("StartBalanceAudit did not return")
			}
		})
	}
}
