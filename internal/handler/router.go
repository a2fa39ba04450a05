package handler

import (
	"vouchersystem/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 成员相关
		member := api.Group("/member")
		{
			member.POST("/register", h.RegisterMember)
			member.POST("/update", h.UpdateMember)
			member.GET("/detail", h.GetMember)
			member.GET("/list", h.ListActiveMembers)
		}

		// 钱包相关
		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", h.GetBalance)
			wallet.GET("/detail", h.GetWallet)
		}

		// 工分记账
		work := api.Group("/work")
		{
			work.POST("/record", h.RecordWork)
			work.GET("/list", h.ListWorkLogs)
		}

		// 券相关
		card := api.Group("/card")
		{
			card.POST("/issue", h.IssueCard)
			card.POST("/void", h.VoidCard)
			card.POST("/redeem", h.RedeemCard)
			card.GET("/detail", h.GetCard)
			card.GET("/list", h.ListCards)
		}

		// 核销记录
		uselog := api.Group("/uselog")
		{
			uselog.GET("/list", h.ListUseLogs)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
