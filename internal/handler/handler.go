package handler

import (
	"io"
	"strconv"
	"time"

	"wxmall/internal/config"
	"wxmall/internal/gateway"
	"wxmall/internal/model"
	"wxmall/internal/service"
	"wxmall/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	gw              gateway.Gateway
	cartService     *service.CartService
	couponService   *service.CouponService
	pricingService  *service.PricingService
	orderService    *service.OrderService
	refundService   *service.RefundService
	walletService   *service.WalletService
	writeOffService *service.WriteOffService
	salesService    *service.SalesService
	notifyService   *service.NotifyService
	deliveryService *service.DeliveryService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, gw gateway.Gateway) *Handler {
	orderService := service.NewOrderService(db, rdb, cfg, gw)
	return &Handler{
		gw:              gw,
		cartService:     service.NewCartService(db),
		couponService:   service.NewCouponService(db),
		pricingService:  service.NewPricingService(db),
		orderService:    orderService,
		refundService:   service.NewRefundService(db, rdb, cfg, gw),
		walletService:   service.NewWalletService(db),
		writeOffService: service.NewWriteOffService(db, rdb, cfg),
		salesService:    service.NewSalesService(db),
		notifyService:   service.NewNotifyService(db, rdb, cfg, orderService),
		deliveryService: service.NewDeliveryService(db),
	}
}

func queryUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.ParamError(c, "user_id 参数错误")
		return 0, false
	}
	return userID, true
}

// ============================================================
// 购物车
// ============================================================

type AddToCartRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	UnitSn   string `json:"unit_sn" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	BuyNow   bool   `json:"buy_now"`
}

// AddToCart 加入购物车 / 立即购买
// POST /api/v1/cart/add
func (h *Handler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	err := h.cartService.AddToCart(c.Request.Context(), req.UserID, req.UnitSn, req.Quantity, req.BuyNow)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已加入购物车"})
}

// ListCart 购物车列表
// GET /api/v1/cart/list?user_id=xxx
func (h *Handler) ListCart(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	lines, err := h.cartService.ListCart(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": lines})
}

// RemoveCartLine 删除购物车行
// POST /api/v1/cart/remove
func (h *Handler) RemoveCartLine(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
		LineID int64 `json:"line_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.cartService.Remove(c.Request.Context(), req.UserID, req.LineID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已删除"})
}

// ============================================================
// 优惠券
// ============================================================

// AcquireCoupon 领券
// POST /api/v1/coupon/acquire
func (h *Handler) AcquireCoupon(c *gin.Context) {
	var req struct {
		UserID   int64 `json:"user_id" binding:"required"`
		CouponID int64 `json:"coupon_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.couponService.Acquire(c.Request.Context(), req.UserID, req.CouponID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "领取成功"})
}

// ============================================================
// 预结算与订单
// ============================================================

type PrepareRequest struct {
	UserID       int64    `json:"user_id" binding:"required"`
	UnitSns      []string `json:"unit_sns" binding:"required"`
	BuyNow       bool     `json:"buy_now"`
	UserCouponID int64    `json:"user_coupon_id"`
}

// PrepareOrder 预结算（下单前金额预览）
// POST /api/v1/order/prepare
func (h *Handler) PrepareOrder(c *gin.Context) {
	var req PrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	buyType := model.CartStatusPending
	if req.BuyNow {
		buyType = model.CartStatusBuyNow
	}
	result, err := h.pricingService.Prepare(c.Request.Context(), nil, req.UserID, req.UnitSns, buyType, req.UserCouponID, false)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

type CreateOrderRequest struct {
	UserID       int64      `json:"user_id" binding:"required"`
	UnitSns      []string   `json:"unit_sns" binding:"required"`
	BuyNow       bool       `json:"buy_now"`
	UserCouponID int64      `json:"user_coupon_id"`
	DeliveryType int        `json:"delivery_type" binding:"required"`
	AddressID    int64      `json:"address_id"`
	PayType      int        `json:"pay_type" binding:"required"`
	Notes        string     `json:"notes"`
	Appointment  *time.Time `json:"appointment"`
}

// CreateOrder 下单并支付
// POST /api/v1/order/create
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	result, err := h.orderService.CreateAndPay(c.Request.Context(), &service.CreateOrderRequest{
		UserID:       req.UserID,
		UnitSns:      req.UnitSns,
		BuyNow:       req.BuyNow,
		UserCouponID: req.UserCouponID,
		DeliveryType: model.DeliveryType(req.DeliveryType),
		AddressID:    req.AddressID,
		PayType:      model.PayType(req.PayType),
		Notes:        req.Notes,
		Appointment:  req.Appointment,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// CancelOrder 取消待支付订单
// POST /api/v1/order/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	var req struct {
		UserID  int64  `json:"user_id" binding:"required"`
		OrderSn string `json:"order_sn" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.orderService.CancelPayment(c.Request.Context(), req.UserID, req.OrderSn); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "订单已取消"})
}

// GetOrder 订单详情
// GET /api/v1/order/detail?user_id=xxx&order_sn=xxx
func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	orderSn := c.Query("order_sn")
	if orderSn == "" {
		response.ParamError(c, "order_sn 参数不能为空")
		return
	}
	detail, err := h.orderService.GetOrder(c.Request.Context(), userID, orderSn)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, detail)
}

// ListOrders 用户订单列表
// GET /api/v1/order/list?user_id=xxx&status=-1&page=1&page_size=10
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	status, _ := strconv.Atoi(c.DefaultQuery("status", "-1"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), userID, status, page, pageSize)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 退款
// ============================================================

// RequestRefund 用户申请退款
// POST /api/v1/refund/request
func (h *Handler) RequestRefund(c *gin.Context) {
	var req struct {
		UserID  int64  `json:"user_id" binding:"required"`
		OrderSn string `json:"order_sn" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.refundService.RequestRefund(c.Request.Context(), req.UserID, req.OrderSn, req.Reason); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "退款申请已提交"})
}

// AdminRefund 管理员同意退款
// POST /api/v1/admin/refund/approve
func (h *Handler) AdminRefund(c *gin.Context) {
	var req struct {
		OrderSn string `json:"order_sn" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.refundService.AdminRefund(c.Request.Context(), req.OrderSn); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "退款已处理"})
}

// AdminRefuse 管理员拒绝退款
// POST /api/v1/admin/refund/refuse
func (h *Handler) AdminRefuse(c *gin.Context) {
	var req struct {
		OrderSn string `json:"order_sn" binding:"required"`
		Reason  string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.refundService.AdminRefuse(c.Request.Context(), req.OrderSn, req.Reason); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已拒绝退款申请"})
}

// ListRefundApplies 管理端退款申请列表
// GET /api/v1/admin/refund/list?item_status=-1&page=1&page_size=10
func (h *Handler) ListRefundApplies(c *gin.Context) {
	itemStatus, _ := strconv.Atoi(c.DefaultQuery("item_status", "-1"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	orders, total, err := h.refundService.ListRefundApplies(c.Request.Context(), itemStatus, page, pageSize)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 钱包
// ============================================================

// GetBalance 查询零钱余额
// GET /api/v1/wallet/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	balance, err := h.walletService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": userID, "balance": balance})
}

// Recharge 充值
// POST /api/v1/wallet/recharge
func (h *Handler) Recharge(c *gin.Context) {
	var req struct {
		UserID int64   `json:"user_id" binding:"required"`
		Amount float64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.walletService.Recharge(c.Request.Context(), req.UserID, req.Amount); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "充值成功"})
}

// ListTransactions 钱包流水
// GET /api/v1/wallet/transactions?user_id=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	records, total, err := h.walletService.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 到店核销
// ============================================================

// IssueWriteOffCode 买家获取核销码
// GET /api/v1/writeoff/code?user_id=xxx&order_item_id=xxx
func (h *Handler) IssueWriteOffCode(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	orderItemID := c.Query("order_item_id")
	if orderItemID == "" {
		response.ParamError(c, "order_item_id 参数不能为空")
		return
	}
	code, err := h.writeOffService.IssueCode(c.Request.Context(), userID, orderItemID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"code": code})
}

// RedeemWriteOff 操作员扫码核销
// POST /api/v1/writeoff/redeem
func (h *Handler) RedeemWriteOff(c *gin.Context) {
	var req struct {
		OperatorUID int64  `json:"operator_uid" binding:"required"`
		Code        string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.writeOffService.Redeem(c.Request.Context(), req.OperatorUID, req.Code); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "核销成功"})
}

// ListWriteOffs 订单下核销单列表
// GET /api/v1/writeoff/list?user_id=xxx&order_sn=xxx
func (h *Handler) ListWriteOffs(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	orderSn := c.Query("order_sn")
	if orderSn == "" {
		response.ParamError(c, "order_sn 参数不能为空")
		return
	}
	items, err := h.writeOffService.ListByOrderSn(c.Request.Context(), userID, orderSn)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": items})
}

// ============================================================
// 销售关系
// ============================================================

// PromoteMainSale 晋升总销售（管理端）
// POST /api/v1/admin/sales/promote_main
func (h *Handler) PromoteMainSale(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.salesService.PromoteMainSale(c.Request.Context(), req.UserID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已晋升为总销售"})
}

// PromoteSale 晋升销售（管理端）
// POST /api/v1/admin/sales/promote_sale
func (h *Handler) PromoteSale(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.salesService.PromoteSale(c.Request.Context(), req.UserID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已晋升为销售"})
}

// GenInviteCode 生成邀请码
// GET /api/v1/sales/invite_code?user_id=xxx&kind=sale|user
func (h *Handler) GenInviteCode(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	var code string
	var err error
	switch c.Query("kind") {
	case "sale":
		code, err = h.salesService.GenInviteSaleCode(c.Request.Context(), userID)
	case "user":
		code, err = h.salesService.GenInviteUserCode(c.Request.Context(), userID)
	default:
		response.ParamError(c, "kind 参数错误")
		return
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"code": code})
}

// AcceptInviteCode 凭邀请码绑定销售关系
// POST /api/v1/sales/accept_invite
func (h *Handler) AcceptInviteCode(c *gin.Context) {
	var req struct {
		UserID int64  `json:"user_id" binding:"required"`
		Kind   string `json:"kind" binding:"required"`
		Code   string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	var err error
	switch req.Kind {
	case "sale":
		err = h.salesService.AcceptInviteSaleCode(c.Request.Context(), req.Code, req.UserID)
	case "user":
		err = h.salesService.AcceptInviteUserCode(c.Request.Context(), req.Code, req.UserID)
	default:
		response.ParamError(c, "kind 参数错误")
		return
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "绑定成功"})
}

// Unbind 解除销售绑定（管理端）
// POST /api/v1/admin/sales/unbind
func (h *Handler) Unbind(c *gin.Context) {
	var req struct {
		Kind     string `json:"kind" binding:"required"` // main_sale | sale
		ParentID int64  `json:"parent_id" binding:"required"`
		ChildID  int64  `json:"child_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	var err error
	switch req.Kind {
	case "main_sale":
		err = h.salesService.UnbindSale(c.Request.Context(), req.ParentID, req.ChildID)
	case "sale":
		err = h.salesService.UnbindUser(c.Request.Context(), req.ParentID, req.ChildID)
	default:
		response.ParamError(c, "kind 参数错误")
		return
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已解绑"})
}

// GetChain 查询用户的分成链
// GET /api/v1/sales/chain?user_id=xxx
func (h *Handler) GetChain(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	chain, err := h.salesService.ResolveChain(c.Request.Context(), nil, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, chain)
}

// ============================================================
// 发货与收货
// ============================================================

// Ship 管理端发货
// POST /api/v1/admin/delivery/ship
func (h *Handler) Ship(c *gin.Context) {
	var req struct {
		OrderSn      string   `json:"order_sn" binding:"required"`
		OrderItemIDs []string `json:"order_item_ids" binding:"required"`
		WaybillID    string   `json:"waybill_id"`
		SenderName   string   `json:"sender_name"`
		SenderPhone  string   `json:"sender_phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	deliveryCode, err := h.deliveryService.Ship(c.Request.Context(), &service.ShipRequest{
		OrderSn:      req.OrderSn,
		OrderItemIDs: req.OrderItemIDs,
		WaybillID:    req.WaybillID,
		SenderName:   req.SenderName,
		SenderPhone:  req.SenderPhone,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"delivery_code": deliveryCode})
}

// ConfirmReceipt 买家确认收货
// POST /api/v1/order/confirm
func (h *Handler) ConfirmReceipt(c *gin.Context) {
	var req struct {
		UserID      int64  `json:"user_id" binding:"required"`
		OrderItemID string `json:"order_item_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.deliveryService.ConfirmReceipt(c.Request.Context(), req.UserID, req.OrderItemID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已确认收货"})
}

// ListDeliveries 订单配送组列表
// GET /api/v1/order/deliveries?order_sn=xxx
func (h *Handler) ListDeliveries(c *gin.Context) {
	orderSn := c.Query("order_sn")
	if orderSn == "" {
		response.ParamError(c, "order_sn 参数不能为空")
		return
	}
	groups, err := h.deliveryService.ListByOrderSn(c.Request.Context(), orderSn)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"list": groups})
}

// ============================================================
// 微信支付回调（应答格式按微信 v3 要求）
// ============================================================

// WechatPayNotify 支付成功回调
// POST /api/v1/notify/wechat/pay
func (h *Handler) WechatPayNotify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"code": "FAIL", "message": "读取回调体失败"})
		return
	}
	notice, err := h.gw.DecodePayNotify(body)
	if err != nil {
		c.JSON(400, gin.H{"code": "FAIL", "message": "回调解析失败"})
		return
	}
	if err := h.notifyService.HandlePayNotify(c.Request.Context(), notice); err != nil {
		c.JSON(500, gin.H{"code": "FAIL", "message": err.Error()})
		return
	}
	c.JSON(200, gin.H{"code": "SUCCESS", "message": "成功"})
}

// WechatRefundNotify 退款成功回调
// POST /api/v1/notify/wechat/refund
func (h *Handler) WechatRefundNotify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"code": "FAIL", "message": "读取回调体失败"})
		return
	}
	notice, err := h.gw.DecodeRefundNotify(body)
	if err != nil {
		c.JSON(400, gin.H{"code": "FAIL", "message": "回调解析失败"})
		return
	}
	if err := h.notifyService.HandleRefundNotify(c.Request.Context(), notice); err != nil {
		c.JSON(500, gin.H{"code": "FAIL", "message": err.Error()})
		return
	}
	c.JSON(200, gin.H{"code": "SUCCESS", "message": "成功"})
}
