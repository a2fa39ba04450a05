package service

import (
	"context"
	"sync"
	"testing"

	"vouchersystem/internal/model"
	"vouchersystem/internal/repository"

	"github.com/stretchr/testify/require"
)

func TestIssueCardDebitsBalance(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	wallet := fundedWallet(t, env, 100)
	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)

	card, err := issuance.IssueCard(ctx, &IssueCardRequest{
		RequestID: "issue-1",
		WalletID:  wallet.ID,
		Amount:    30,
		IssuedBy:  "admin",
	})
	require.NoError(t, err)
	require.Equal(t, model.CardStatusIssued, card.Status)
	require.Equal(t, int64(30), card.Amount)

	after, err := repository.NewWalletRepository(env.db).GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(70), after.Balance)
}

func TestIssueCardInvalidAmount(t *testing.T) {
	env := setupEnv(t)

	wallet := fundedWallet(t, env, 100)
	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)

	_, err := issuance.IssueCard(context.Background(), &IssueCardRequest{
		RequestID: "issue-bad",
		WalletID:  wallet.ID,
		Amount:    0,
		IssuedBy:  "admin",
	})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestIssueCardInsufficientBalance(t *testing.T) {
	env := setupEnv(t)

	wallet := fundedWallet(t, env, 20)
	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)

	_, err := issuance.IssueCard(context.Background(), &IssueCardRequest{
		RequestID: "issue-2",
		WalletID:  wallet.ID,
		Amount:    50,
		IssuedBy:  "admin",
	})
	require.ErrorIs(t, err, repository.ErrBalanceNotEnough)
}

func TestIssueCardWalletNotFound(t *testing.T) {
	env := setupEnv(t)

	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)
	_, err := issuance.IssueCard(context.Background(), &IssueCardRequest{
		RequestID: "issue-3",
		WalletID:  99999,
		Amount:    10,
		IssuedBy:  "admin",
	})
	require.ErrorIs(t, err, repository.ErrWalletNotFound)
}

func TestIssueCardIdempotent(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	wallet := fundedWallet(t, env, 100)
	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)

	first, err := issuance.IssueCard(ctx, &IssueCardRequest{
		RequestID: "issue-dup",
		WalletID:  wallet.ID,
		Amount:    40,
		IssuedBy:  "admin",
	})
	require.NoError(t, err)

	second, err := issuance.IssueCard(ctx, &IssueCardRequest{
		RequestID: "issue-dup",
		WalletID:  wallet.ID,
		Amount:    40,
		IssuedBy:  "admin",
	})
	require.NoError(t, err)
	require.Equal(t, first.CardNo, second.CardNo)

	// 只扣一次
	after, err := repository.NewWalletRepository(env.db).GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(60), after.Balance)
}

// 余额 100，两笔并发各发 60：恰好一笔成功，另一笔余额不足，最终余额 40
func TestConcurrentIssuanceNoOverdraw(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	wallet := fundedWallet(t, env, 100)
	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)

	requestIDs := []string{"race-a", "race-b"}
	errs := make([]error, len(requestIDs))
	var wg sync.WaitGroup
	for i := range requestIDs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = issuance.IssueCard(ctx, &IssueCardRequest{
				RequestID: requestIDs[i],
				WalletID:  wallet.ID,
				Amount:    60,
				IssuedBy:  "admin",
			})
		}(i)
	}
	wg.Wait()

	var success, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		default:
			require.ErrorIs(t, err, repository.ErrBalanceNotEnough)
			insufficient++
		}
	}
	require.Equal(t, 1, success)
	require.Equal(t, 1, insufficient)

	after, err := repository.NewWalletRepository(env.db).GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(40), after.Balance)
}

func TestVoidCardRestoresBalance(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	wallet := fundedWallet(t, env, 100)
	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)

	card, err := issuance.IssueCard(ctx, &IssueCardRequest{
		RequestID: "void-1",
		WalletID:  wallet.ID,
		Amount:    30,
		IssuedBy:  "admin",
	})
	require.NoError(t, err)

	voided, err := issuance.VoidCard(ctx, card.CardNo, "admin2")
	require.NoError(t, err)
	require.Equal(t, model.CardStatusVoid, voided.Status)
	require.Equal(t, "admin2", voided.VoidedBy)
	require.NotNil(t, voided.VoidedAt)

	// 面额原数退回
	after, err := repository.NewWalletRepository(env.db).GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), after.Balance)
}

func TestVoidTerminalCardRejected(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	wallet := fundedWallet(t, env, 100)
	issuance := NewIssuanceService(env.db, env.rdb, env.cfg)
	redemption := NewRedemptionService(env.db, env.rdb, env.cfg)

	used, err := issuance.IssueCard(ctx, &IssueCardRequest{
		RequestID: "void-2",
		WalletID:  wallet.ID,
		Amount:    10,
		IssuedBy:  "admin",
	})
	require.NoError(t, err)
	_, err = redemption.RedeemCard(ctx, used.CardNo, "clerk", "柜台")
	require.NoError(t, err)

	// 已核销的券不能作废
	_, err = issuance.VoidCard(ctx, used.CardNo, "admin")
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	// 已作废的券不能再作废
	voided, err := issuance.IssueCard(ctx, &IssueCardRequest{
		RequestID: "void-3",
		WalletID:  wallet.ID,
		Amount:    10,
		IssuedBy:  "admin",
	})
	require.NoError(t, err)
	_, err = issuance.VoidCard(ctx, voided.CardNo, "admin")
	require.NoError(t, err)
	_, err = issuance.VoidCard(ctx, voided.CardNo, "admin")
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	// 核销不触碰余额，作废退回后应回到 90
	after, err := repository.NewWalletRepository(env.db).GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(90), after.Balance)
}
