package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"wxmall/internal/config"
	"wxmall/internal/gateway"
	"wxmall/internal/infrastructure/lock"
	"wxmall/internal/model"
	"wxmall/internal/repository"
	"wxmall/pkg/errs"
	"wxmall/pkg/idgen"
	"wxmall/pkg/money"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ============================================================================
// 订单状态机
// ============================================================================
//
// 下单与支付在一个事务内完成（零钱路径），或者事务提交后再拉起
// 网关预支付（微信路径，网关调用不持有任何行锁）。
// 任何一步失败整体回滚：库存、购物车、优惠券、钱包全部回到原状。
// ============================================================================

type OrderService struct {
	db           *gorm.DB
	rdb          *redis.Client
	cfg          *config.Config
	gw           gateway.Gateway
	orderRepo    *repository.OrderRepository
	cartRepo     *repository.CartRepository
	productRepo  *repository.ProductRepository
	couponRepo   *repository.CouponRepository
	userRepo     *repository.UserRepository
	writeOffRepo *repository.WriteOffRepository
	outboxRepo   *repository.OutboxRepository
	pricing      *PricingService
	wallet       *WalletService
	sales        *SalesService
}

func NewOrderService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, gw gateway.Gateway) *OrderService {
	return &OrderService{
		db:           db,
		rdb:          rdb,
		cfg:          cfg,
		gw:           gw,
		orderRepo:    repository.NewOrderRepository(db),
		cartRepo:     repository.NewCartRepository(db),
		productRepo:  repository.NewProductRepository(db),
		couponRepo:   repository.NewCouponRepository(db),
		userRepo:     repository.NewUserRepository(db),
		writeOffRepo: repository.NewWriteOffRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
		pricing:      NewPricingService(db),
		wallet:       NewWalletService(db),
		sales:        NewSalesService(db),
	}
}

type CreateOrderRequest struct {
	UserID       int64
	UnitSns      []string
	BuyNow       bool
	UserCouponID int64
	DeliveryType model.DeliveryType
	AddressID    int64
	PayType      model.PayType
	Notes        string
	Appointment  *time.Time
}

type CreateOrderResult struct {
	OrderSn   string                `json:"order_sn"`
	PayAmount float64               `json:"pay_amount"`
	PayType   model.PayType         `json:"pay_type"`
	Prepay    *gateway.PrepayParams `json:"prepay,omitempty"` // 微信支付路径返回
}

// CreateAndPay 下单并支付
//
// 零钱支付：预结算、落单、扣库存、核券、扣钱包、分成、置 Paid、
// 售后副作用，全部在一个事务里。
// 微信支付：事务只做到落单扣库存（订单停在待支付），提交后再发起
// 预支付——网关调用绝不能压在行锁里。
func (s *OrderService) CreateAndPay(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error) {
	if req.PayType != model.PayTypePocket && req.PayType != model.PayTypeWx {
		return nil, errs.New(errs.KindBadRequest, "不支持的支付方式")
	}

	// 同一用户支付串行化
	payLock := lock.NewPayLock(s.rdb, req.UserID)
	if err := payLock.Lock(ctx, 100*time.Millisecond, 10); err != nil {
		return nil, errs.Wrap(errs.KindConflict, "支付处理中，请稍后重试", err)
	}
	defer func() {
		if err := payLock.Unlock(context.Background()); err != nil {
			log.Printf("[OrderService] 释放支付锁失败: %v", err)
		}
	}()

	buyType := model.CartStatusPending
	paidStatus := model.CartStatusPaid
	if req.BuyNow {
		buyType = model.CartStatusBuyNow
		paidStatus = model.CartStatusBuyNowPaid
	}

	var result *CreateOrderResult
	var order *model.Order
	var payDesc string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		prep, err := s.pricing.Prepare(ctx, tx, req.UserID, req.UnitSns, buyType, req.UserCouponID, true)
		if err != nil {
			return err
		}

		// 所有行都必须支持所选交付方式
		for _, line := range prep.UserBuy {
			if line.DeliveryTypes&req.DeliveryType == 0 {
				return errs.Newf(errs.KindBadRequest, "商品不支持所选交付方式: %s", line.UnitName)
			}
		}

		order = &model.Order{
			OrderSn:       idgen.GenerateOrderSn(),
			OutTradeNo:    idgen.GenerateOutTradeNo(),
			UserID:        req.UserID,
			TotalAmount:   prep.TotalAmount,
			TotalQuantity: prep.TotalQuantity,
			ReduceAmount:  prep.ReduceAmount,
			PayAmount:     prep.PayAmount,
			DeliveryType:  req.DeliveryType,
			PayType:       req.PayType,
			Status:        model.OrderStatusPendingPayment,
			UserCouponID:  prep.UserCouponID,
			Notes:         req.Notes,
			Appointment:   req.Appointment,
			ExpiredAt:     time.Now().Add(time.Duration(s.cfg.Business.OrderTimeoutMinutes) * time.Minute),
		}

		if req.DeliveryType.NeedsShipping() {
			addr, err := s.userRepo.GetAddress(ctx, req.UserID, req.AddressID)
			if err != nil {
				if err == repository.ErrAddressNotFound {
					return errs.New(errs.KindBadRequest, "收货地址不存在")
				}
				return err
			}
			order.Name = addr.Name
			order.Phone = addr.Phone
			order.AddressDetail = addr.Province + addr.City + addr.District + addr.Detail
		}

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return err
		}

		items := make([]*model.OrderItem, 0, len(prep.UserBuy))
		cartIDs := make([]int64, 0, len(prep.UserBuy))
		for _, line := range prep.UserBuy {
			items = append(items, &model.OrderItem{
				OrderItemID: idgen.GenerateOrderItemID(),
				OrderSn:     order.OrderSn,
				UnitSn:      line.UnitSn,
				UnitName:    line.UnitName,
				Cover:       line.Cover,
				Attr:        line.Attr,
				Price:       line.Price,
				BuyQuantity: line.BuyQuantity,
				Amount:      line.Amount,
				Status:      model.ItemStatusWaitDeliverGoods,
			})
			cartIDs = append(cartIDs, line.CartID)
		}
		if err := s.orderRepo.CreateItems(ctx, tx, items); err != nil {
			return err
		}
		payDesc = itemDescription(items)

		// 锁规格行再守护式扣减，余量不足即回滚
		for _, line := range prep.UserBuy {
			if _, err := s.productRepo.GetUnitBySnForUpdate(ctx, tx, line.UnitSn); err != nil {
				return err
			}
			if err := s.productRepo.DecrQuantity(ctx, tx, line.UnitSn, line.BuyQuantity); err != nil {
				if err == repository.ErrOutOfStock {
					return errs.Newf(errs.KindConflict, "库存不足: %s", line.UnitName)
				}
				return err
			}
		}

		if err := s.cartRepo.UpdateStatus(ctx, tx, cartIDs, paidStatus); err != nil {
			return err
		}

		if prep.CouponUsed {
			err := s.couponRepo.UpdateUserCouponStatus(ctx, tx, prep.UserCouponID, model.UserCouponUnused, model.UserCouponUsed)
			if err != nil {
				if err == repository.ErrUserCouponNotFound {
					return errs.New(errs.KindConflict, "优惠券状态已变更")
				}
				return err
			}
		}

		result = &CreateOrderResult{
			OrderSn:   order.OrderSn,
			PayAmount: order.PayAmount,
			PayType:   req.PayType,
		}

		if req.PayType == model.PayTypePocket {
			snapshot, _ := json.Marshal(order)
			err := s.wallet.Debit(ctx, tx, req.UserID, order.PayAmount, model.TranTypePurchase, model.PayTypePocket, string(snapshot))
			if err != nil {
				return err
			}
			return s.ApplyPaidEffects(ctx, tx, order, model.PayTypePocket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 微信路径：订单已提交，行锁已释放，此时才碰网关
	if req.PayType == model.PayTypeWx {
		user, err := s.userRepo.GetByID(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		prepay, err := s.gw.InitiateJsapi(ctx, payDesc, order.OutTradeNo, money.ToCents(order.PayAmount), user.OpenID)
		if err != nil {
			// 订单留在待支付，超时任务兜底取消
			return nil, errs.Wrap(errs.KindGateway, "发起预支付失败", err)
		}
		result.Prepay = prepay
	}
	return result, nil
}

// itemDescription 拼接订单项名称作为支付描述
// 网关限长 127 字节，超长按字节截断并退到完整的字符边界
func itemDescription(items []*model.OrderItem) string {
	const maxDescBytes = 127
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.UnitName)
	}
	desc := strings.Join(names, ",")
	if len(desc) <= maxDescBytes {
		return desc
	}
	cut := maxDescBytes
	for cut > 0 && !utf8.RuneStart(desc[cut]) {
		cut--
	}
	return desc[:cut]
}

// ApplyPaidEffects 支付成功的统一副作用，零钱路径和网关回调路径共用
// 调用时订单必须仍处于待支付（分成引擎依赖这一点做状态校验）
func (s *OrderService) ApplyPaidEffects(ctx context.Context, tx *gorm.DB, order *model.Order, payType model.PayType) error {
	// 分成先于状态迁移执行
	if err := s.sales.DoOrderSaleSplit(ctx, tx, order.OrderSn, order.UserID, payType); err != nil {
		return err
	}

	err := s.orderRepo.UpdateStatus(ctx, tx, order.OrderSn, model.OrderStatusPendingPayment, model.OrderStatusPaid)
	if err != nil {
		return err
	}

	items, err := s.orderRepo.GetItems(ctx, tx, order.OrderSn)
	if err != nil {
		return err
	}

	for _, item := range items {
		unit, err := s.productRepo.GetUnitBySn(ctx, tx, item.UnitSn)
		if err != nil {
			return err
		}
		if err := s.productRepo.BumpSellTotal(ctx, tx, item.UnitSn, unit.ProductSn, item.BuyQuantity); err != nil {
			return err
		}
	}

	if order.DeliveryType == model.DeliveryStoreWriteOff {
		if err := s.emitWriteOffItems(ctx, tx, order, items); err != nil {
			return err
		}
	}

	return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.OrderEvent, model.EventOrderPaid, order.OrderSn, order)
}

// emitWriteOffItems 为到店核销订单的每个订单项生成核销单
// 商品缺门店编码属于数据错误，整单回滚
func (s *OrderService) emitWriteOffItems(ctx context.Context, tx *gorm.DB, order *model.Order, items []*model.OrderItem) error {
	expire := time.Now().AddDate(0, 0, s.cfg.Business.WriteOffExpireDays)
	writeOffs := make([]*model.WriteOffItem, 0, len(items))
	for _, item := range items {
		unit, err := s.productRepo.GetUnitBySn(ctx, tx, item.UnitSn)
		if err != nil {
			return err
		}
		product, err := s.productRepo.GetProductBySn(ctx, tx, unit.ProductSn)
		if err != nil {
			return err
		}
		if product.StoreCode == "" {
			return errs.Newf(errs.KindInternal, "商品缺少门店编码，无法生成核销单: %s", product.Sn)
		}
		writeOffs = append(writeOffs, &model.WriteOffItem{
			OrderItemID: item.OrderItemID,
			OrderSn:     order.OrderSn,
			UserID:      order.UserID,
			StoreCode:   product.StoreCode,
			ExpireTime:  expire,
			Status:      model.WriteOffStatusPending,
		})
	}
	return s.writeOffRepo.CreateBatch(ctx, tx, writeOffs)
}

// CancelPayment 用户主动取消待支付订单
func (s *OrderService) CancelPayment(ctx context.Context, userID int64, orderSn string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.GetByOrderSnForUpdate(ctx, tx, orderSn)
		if err != nil {
			if err == repository.ErrOrderNotFound {
				return errs.New(errs.KindNotFound, "订单不存在")
			}
			return err
		}
		if order.UserID != userID {
			return errs.New(errs.KindForbidden, "无权操作该订单")
		}
		return s.cancelAndRestore(ctx, tx, order)
	})
}

// cancelAndRestore 取消待支付订单并回补资源，用户取消与超时任务共用
func (s *OrderService) cancelAndRestore(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	err := s.orderRepo.UpdateStatus(ctx, tx, order.OrderSn, model.OrderStatusPendingPayment, model.OrderStatusCancelPayment)
	if err != nil {
		if err == repository.ErrOrderStatusInvalid {
			return errs.New(errs.KindConflict, "订单状态已变更，无法取消")
		}
		return err
	}

	items, err := s.orderRepo.GetItems(ctx, tx, order.OrderSn)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := s.productRepo.IncrQuantity(ctx, tx, item.UnitSn, item.BuyQuantity); err != nil {
			return err
		}
	}

	if order.UserCouponID > 0 {
		err := s.couponRepo.UpdateUserCouponStatus(ctx, tx, order.UserCouponID, model.UserCouponUsed, model.UserCouponUnused)
		if err != nil && err != repository.ErrUserCouponNotFound {
			return err
		}
	}

	return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.OrderEvent, model.EventOrderCanceled, order.OrderSn, order)
}

// CloseExpiredOrders 超时任务入口：逐单独立事务取消并回补
func (s *OrderService) CloseExpiredOrders(ctx context.Context, limit int) (int, error) {
	orders, err := s.orderRepo.GetExpiredOrders(ctx, limit)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, order := range orders {
		o := order
		err := s.db.Transaction(func(tx *gorm.DB) error {
			locked, err := s.orderRepo.GetByOrderSnForUpdate(ctx, tx, o.OrderSn)
			if err != nil {
				return err
			}
			if locked.Status != model.OrderStatusPendingPayment {
				return nil // 扫描后到现在之间被支付或取消了
			}
			return s.cancelAndRestore(ctx, tx, locked)
		})
		if err != nil {
			log.Printf("[OrderService] 超时取消订单失败 %s: %v", o.OrderSn, err)
			continue
		}
		closed++
	}
	return closed, nil
}

type OrderDetail struct {
	Order *model.Order       `json:"order"`
	Items []*model.OrderItem `json:"items"`
}

// GetOrder 订单详情（含订单项）
func (s *OrderService) GetOrder(ctx context.Context, userID int64, orderSn string) (*OrderDetail, error) {
	order, err := s.orderRepo.GetByOrderSn(ctx, orderSn)
	if err != nil {
		if err == repository.ErrOrderNotFound {
			return nil, errs.New(errs.KindNotFound, "订单不存在")
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, errs.New(errs.KindForbidden, "无权查看该订单")
	}
	items, err := s.orderRepo.GetItems(ctx, nil, orderSn)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: order, Items: items}, nil
}

// ListOrders 用户订单列表；status 传 -1 表示全部
func (s *OrderService) ListOrders(ctx context.Context, userID int64, status, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orderRepo.ListByUserID(ctx, userID, status, page, pageSize)
}
