package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"vouchersystem/internal/config"
	"vouchersystem/internal/infrastructure/database"
	"vouchersystem/pkg/response"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{Business: config.DefaultBusinessConfig()}
	cfg.Kafka.Topic.LedgerEvents = "test_ledger_events"

	return SetupRouter(db, rdb, cfg)
}

func httpDo(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// 完整链路：注册成员 -> 记账 -> 查余额 -> 发券 -> 核销 -> 重复核销被拒
func TestLedgerFlow(t *testing.T) {
	r := setupRouter(t)

	// 注册成员
	w := httpDo(r, "POST", "/api/v1/member/register", gin.H{
		"name":       "Alice",
		"email":      "alice@example.com",
		"created_by": "admin",
	})
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.Equal(t, response.CodeSuccess, env.Code)

	var member struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &member))
	require.NotZero(t, member.ID)

	// 记账 100 工分
	w = httpDo(r, "POST", "/api/v1/work/record", gin.H{
		"request_id":  "flow-work-1",
		"member_id":   member.ID,
		"amount":      100,
		"recorded_by": "admin",
	})
	env = decode(t, w)
	require.Equal(t, response.CodeSuccess, env.Code)

	var workLog struct {
		WalletID int64 `json:"wallet_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &workLog))

	// 查余额
	w = httpDo(r, "GET", fmt.Sprintf("/api/v1/wallet/balance?member_id=%d", member.ID), nil)
	env = decode(t, w)
	require.Equal(t, response.CodeSuccess, env.Code)
	require.Contains(t, string(env.Data), `"balance":100`)

	// 发券 60
	w = httpDo(r, "POST", "/api/v1/card/issue", gin.H{
		"request_id": "flow-issue-1",
		"wallet_id":  workLog.WalletID,
		"amount":     60,
		"issued_by":  "admin",
	})
	env = decode(t, w)
	require.Equal(t, response.CodeSuccess, env.Code)

	var card struct {
		CardNo string `json:"card_no"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &card))

	// 核销
	w = httpDo(r, "POST", "/api/v1/card/redeem", gin.H{
		"card_no": card.CardNo,
		"used_by": "clerk",
		"context": "柜台",
	})
	env = decode(t, w)
	require.Equal(t, response.CodeSuccess, env.Code)

	// 重复核销：稳定的业务错误码
	w = httpDo(r, "POST", "/api/v1/card/redeem", gin.H{
		"card_no": card.CardNo,
		"used_by": "clerk",
	})
	env = decode(t, w)
	require.Equal(t, response.CodeAlreadyRedeemed, env.Code)
}

func TestErrorCodes(t *testing.T) {
	r := setupRouter(t)

	// 不存在的成员记账
	w := httpDo(r, "POST", "/api/v1/work/record", gin.H{
		"request_id":  "err-1",
		"member_id":   12345,
		"amount":      10,
		"recorded_by": "admin",
	})
	require.Equal(t, response.CodeMemberNotFound, decode(t, w).Code)

	// 不存在的券
	w = httpDo(r, "POST", "/api/v1/card/redeem", gin.H{
		"card_no": "VCH-missing",
		"used_by": "clerk",
	})
	require.Equal(t, response.CodeCardNotFound, decode(t, w).Code)

	// 不存在的钱包发券
	w = httpDo(r, "POST", "/api/v1/card/issue", gin.H{
		"request_id": "err-2",
		"wallet_id":  777,
		"amount":     10,
		"issued_by":  "admin",
	})
	require.Equal(t, response.CodeWalletNotFound, decode(t, w).Code)

	// 参数绑定失败
	w = httpDo(r, "POST", "/api/v1/card/issue", gin.H{"wallet_id": 1})
	require.Equal(t, response.CodeParamError, decode(t, w).Code)
}
