package service

import (
	"context"
	"fmt"
	"testing"

	"vouchersystem/internal/config"
	"vouchersystem/internal/infrastructure/database"
	"vouchersystem/internal/model"
	"vouchersystem/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv 每个测试独立的内存数据库 + 内嵌 redis
type testEnv struct {
	db  *gorm.DB
	rdb *redis.Client
	cfg *config.Config
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	// 每个测试独立的内存库，避免相互干扰
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// sqlite 串行化写入，单连接即可
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	business := config.DefaultBusinessConfig()
	cfg := &config.Config{
		Business: business,
	}
	cfg.Kafka.Topic.LedgerEvents = "test_ledger_events"

	return &testEnv{db: db, rdb: rdb, cfg: cfg}
}

// createMember 直接落库一个成员，学期可以指定为过去的学期
func createMember(t *testing.T, env *testEnv, sem string, lifetime, honorary bool) *model.Member {
	t.Helper()
	member := &model.Member{
		Name:         "测试成员",
		Email:        "test@example.com",
		Semester:     sem,
		Lifetime:     lifetime,
		Honorary:     honorary,
		CreatedBy:    "admin",
		LastEditedBy: "admin",
	}
	require.NoError(t, repository.NewMemberRepository(env.db).Create(context.Background(), member))
	return member
}

// fundedWallet 建活跃成员并记账，返回余额为 amount 的钱包
func fundedWallet(t *testing.T, env *testEnv, amount int64) *model.Wallet {
	t.Helper()
	ctx := context.Background()

	member := createMember(t, env, "2020-SPRING", true, false)

	accrual := NewAccrualService(env.db, env.rdb, env.cfg)
	_, err := accrual.RecordWork(ctx, &RecordWorkRequest{
		RequestID:  fmt.Sprintf("fund-%s", t.Name()),
		MemberID:   member.ID,
		Amount:     amount,
		RecordedBy: "admin",
	})
	require.NoError(t, err)

	wallet, err := repository.NewWalletRepository(env.db).GetByMemberID(ctx, member.ID)
	require.NoError(t, err)
	require.Equal(t, amount, wallet.Balance)
	return wallet
}
