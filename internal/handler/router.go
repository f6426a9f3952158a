package handler

import (
	"wxmall/internal/config"
	"wxmall/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, gw gateway.Gateway) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg, gw)

	api := r.Group("/api/v1")
	{
		cart := api.Group("/cart")
		{
			cart.POST("/add", h.AddToCart)
			cart.GET("/list", h.ListCart)
			cart.POST("/remove", h.RemoveCartLine)
		}

		order := api.Group("/order")
		{
			order.POST("/prepare", h.PrepareOrder)
			order.POST("/create", h.CreateOrder)
			order.POST("/cancel", h.CancelOrder)
			order.GET("/detail", h.GetOrder)
			order.GET("/list", h.ListOrders)
			order.POST("/confirm", h.ConfirmReceipt)
			order.GET("/deliveries", h.ListDeliveries)
		}

		refund := api.Group("/refund")
		{
			refund.POST("/request", h.RequestRefund)
		}

		coupon := api.Group("/coupon")
		{
			coupon.POST("/acquire", h.AcquireCoupon)
		}

		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", h.GetBalance)
			wallet.POST("/recharge", h.Recharge)
			wallet.GET("/transactions", h.ListTransactions)
		}

		writeoff := api.Group("/writeoff")
		{
			writeoff.GET("/code", h.IssueWriteOffCode)
			writeoff.POST("/redeem", h.RedeemWriteOff)
			writeoff.GET("/list", h.ListWriteOffs)
		}

		sales := api.Group("/sales")
		{
			inviteLimit := int64(cfg.Business.InviteCodeDailyLimit)
			sales.GET("/invite_code", DayRateLimitMiddleware(rdb, "invite_code", inviteLimit), h.GenInviteCode)
			sales.POST("/accept_invite", h.AcceptInviteCode)
			sales.GET("/chain", h.GetChain)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/refund/approve", h.AdminRefund)
			admin.POST("/refund/refuse", h.AdminRefuse)
			admin.GET("/refund/list", h.ListRefundApplies)
			admin.POST("/sales/promote_main", h.PromoteMainSale)
			admin.POST("/sales/promote_sale", h.PromoteSale)
			admin.POST("/sales/unbind", h.Unbind)
			admin.POST("/delivery/ship", h.Ship)
		}

		notify := api.Group("/notify")
		{
			notify.POST("/wechat/pay", h.WechatPayNotify)
			notify.POST("/wechat/refund", h.WechatRefundNotify)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
