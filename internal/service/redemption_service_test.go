package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"vouchersystem/internal/model"
	"vouchersystem/internal/repository"

	"github.com/stretchr/testify/require"
)

func issuedCard(t *testing.T, env *testEnv, amount int64) *model.Card {
	t.Helper()
	wallet := fundedWallet(t, env, amount)
	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)
	card, err := issuance.IssueCard(context.Background(), &IssueCardRequest{
		RequestID: "card-" + t.Name(),
		WalletID:  wallet.ID,
		Amount:    amount,
		IssuedBy:  "admin",
	})
	require.NoError(t, err)
	return card
}

func TestRedeemCardCreatesUseLog(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	card := issuedCard(t, env, 50)
	redemption := NewRedemptionService(env.db, env.rdb, env.cfg)

	useLog, err := redemption.RedeemCard(ctx, card.CardNo, "clerk", "迎新活动")
	require.NoError(t, err)
	require.Equal(t, card.ID, useLog.CardID)
	require.Equal(t, "clerk", useLog.UsedBy)
	require.Equal(t, "迎新活动", useLog.Context)

	after, err := repository.NewCardRepository(env.db).GetByCardNo(ctx, card.CardNo)
	require.NoError(t, err)
	require.Equal(t, model.CardStatusUsed, after.Status)

	// 核销不触碰余额
	wallet, err := repository.NewWalletRepository(env.db).GetByID(ctx, card.WalletID)
	require.NoError(t, err)
	require.Equal(t, int64(0), wallet.Balance)
}

func TestRedeemTwiceFails(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	card := issuedCard(t, env, 50)
	redemption := NewRedemptionService(env.db, env.rdb, env.cfg)

	_, err := redemption.RedeemCard(ctx, card.CardNo, "clerk", "")
	require.NoError(t, err)

	_, err = redemption.RedeemCard(ctx, card.CardNo, "clerk", "")
	require.ErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestRedeemVoidedCard(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	card := issuedCard(t, env, 50)
	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)
	redemption := NewRedemptionService(env.db, env.rdb, env.cfg)

	_, err := issuance.VoidCard(ctx, card.CardNo, "admin")
	require.NoError(t, err)

	_, err = redemption.RedeemCard(ctx, card.CardNo, "clerk", "")
	require.ErrorIs(t, err, ErrVoidedCard)
}

func TestRedeemCardNotFound(t *testing.T) {
	env := setupEnv(t)

	redemption := NewRedemptionService(env.db, env.rdb, env.cfg)
	_, err := redemption.RedeemCard(context.Background(), "VCH00000000000000000000", "clerk", "")
	require.ErrorIs(t, err, repository.ErrCardNotFound)
}

// K 个并发核销同一张券：恰好 1 个成功，其余失败，核销记录恰好一条
func TestConcurrentRedemptionAtMostOnce(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	card := issuedCard(t, env, 50)
	redemption := NewRedemptionService(env.db, env.rdb, env.cfg)

	const k = 8
	errs := make([]error, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = redemption.RedeemCard(ctx, card.CardNo, "clerk", "并发核销")
		}(i)
	}
	wg.Wait()

	var success, redeemed int
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrAlreadyRedeemed):
			redeemed++
		default:
			t.Fatalf("预期之外的错误: %v", err)
		}
	}
	require.Equal(t, 1, success)
	require.Equal(t, k-1, redeemed)

	// 核销记录恰好一条
	count, err := repository.NewUseLogRepository(env.db).CountByCardID(ctx, card.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
