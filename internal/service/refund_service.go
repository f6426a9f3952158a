package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

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
// 退款
// ============================================================================
//
// 用户侧只能把 Paid 的订单置为 Apply（申请）。管理员处理申请时分两路：
//   零钱单：Apply → Refund + 钱包入账 + 核销单作废，一个事务了结。
//   微信单：Apply → Refunding 先落库，网关退款在同一事务内发起——
//           网关失败则回滚，订单自动回到 Apply，可再次处理；
//           真正的 Refunding → Refund 由退款回调完成。
// ============================================================================

type RefundService struct {
	db           *gorm.DB
	rdb          *redis.Client
	cfg          *config.Config
	gw           gateway.Gateway
	orderRepo    *repository.OrderRepository
	writeOffRepo *repository.WriteOffRepository
	outboxRepo   *repository.OutboxRepository
	wallet       *WalletService
}

func NewRefundService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, gw gateway.Gateway) *RefundService {
	return &RefundService{
		db:           db,
		rdb:          rdb,
		cfg:          cfg,
		gw:           gw,
		orderRepo:    repository.NewOrderRepository(db),
		writeOffRepo: repository.NewWriteOffRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
		wallet:       NewWalletService(db),
	}
}

// RequestRefund 用户申请退款
// 到店核销订单必须所有核销单都还在待核销，扫过码的单不给退
func (s *RefundService) RequestRefund(ctx context.Context, userID int64, orderSn, reason string) error {
	refundLock := lock.NewRefundLock(s.rdb, orderSn)
	if err := refundLock.Lock(ctx, 100*time.Millisecond, 10); err != nil {
		return errs.Wrap(errs.KindConflict, "退款处理中，请稍后重试", err)
	}
	defer func() {
		if err := refundLock.Unlock(context.Background()); err != nil {
			log.Printf("[RefundService] 释放退款锁失败: %v", err)
		}
	}()

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
		if order.Status != model.OrderStatusPaid {
			return errs.New(errs.KindConflict, "订单状态不允许申请退款")
		}

		writeOffs, err := s.writeOffRepo.ListByOrderSn(ctx, tx, orderSn)
		if err != nil {
			return err
		}
		for _, w := range writeOffs {
			if w.Status != model.WriteOffStatusPending {
				return errs.New(errs.KindConflict, "订单包含已核销商品")
			}
		}

		err = s.orderRepo.UpdateStatus(ctx, tx, orderSn, model.OrderStatusPaid, model.OrderStatusApply)
		if err != nil {
			return err
		}
		if err := s.orderRepo.UpdateItemsStatus(ctx, tx, orderSn, model.ItemStatusApply); err != nil {
			return err
		}
		return s.orderRepo.SetReason(ctx, tx, orderSn, reason)
	})
}

// AdminRefund 管理员同意退款
func (s *RefundService) AdminRefund(ctx context.Context, orderSn string) error {
	refundLock := lock.NewRefundLock(s.rdb, orderSn)
	if err := refundLock.Lock(ctx, 100*time.Millisecond, 10); err != nil {
		return errs.Wrap(errs.KindConflict, "退款处理中，请稍后重试", err)
	}
	defer func() {
		if err := refundLock.Unlock(context.Background()); err != nil {
			log.Printf("[RefundService] 释放退款锁失败: %v", err)
		}
	}()

	return s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.GetByOrderSnForUpdate(ctx, tx, orderSn)
		if err != nil {
			if err == repository.ErrOrderNotFound {
				return errs.New(errs.KindNotFound, "订单不存在")
			}
			return err
		}
		if order.Status != model.OrderStatusApply {
			return errs.New(errs.KindConflict, "订单不在退款申请状态")
		}

		if order.PayType == model.PayTypePocket {
			return s.refundToPocket(ctx, tx, order)
		}
		return s.refundViaGateway(ctx, tx, order)
	})
}

// refundToPocket 零钱单退款：原路退回钱包，一个事务落定
func (s *RefundService) refundToPocket(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	err := s.orderRepo.UpdateStatus(ctx, tx, order.OrderSn, model.OrderStatusApply, model.OrderStatusRefund)
	if err != nil {
		return err
	}
	if err := s.orderRepo.UpdateItemsStatus(ctx, tx, order.OrderSn, model.ItemStatusRefund); err != nil {
		return err
	}

	snapshot, _ := json.Marshal(order)
	err = s.wallet.Credit(ctx, tx, order.UserID, order.PayAmount, model.TranTypeRefund, model.PayTypePocket, string(snapshot))
	if err != nil {
		return err
	}

	if err := s.cancelWriteOffs(ctx, tx, order.OrderSn); err != nil {
		return err
	}
	return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.OrderEvent, model.EventOrderRefunded, order.OrderSn, order)
}

// refundViaGateway 微信单退款：先落 Refunding 再发起网关退款
// 网关失败整体回滚，订单回到 Apply；到账以退款回调为准
func (s *RefundService) refundViaGateway(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	err := s.orderRepo.UpdateStatus(ctx, tx, order.OrderSn, model.OrderStatusApply, model.OrderStatusRefunding)
	if err != nil {
		return err
	}
	if err := s.orderRepo.UpdateItemsStatus(ctx, tx, order.OrderSn, model.ItemStatusRefunding); err != nil {
		return err
	}

	outRefundNo := idgen.GenerateOutTradeNo()
	err = s.gw.Refund(ctx, order.OutTradeNo, outRefundNo,
		money.ToCents(order.PayAmount), money.ToCents(order.PayAmount))
	if err != nil {
		return errs.Wrap(errs.KindGateway, "发起网关退款失败", err)
	}
	return nil
}

// AdminRefuse 管理员拒绝退款
func (s *RefundService) AdminRefuse(ctx context.Context, orderSn, reason string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.GetByOrderSnForUpdate(ctx, tx, orderSn)
		if err != nil {
			if err == repository.ErrOrderNotFound {
				return errs.New(errs.KindNotFound, "订单不存在")
			}
			return err
		}
		if order.Status != model.OrderStatusApply {
			return errs.New(errs.KindConflict, "订单不在退款申请状态")
		}

		err = s.orderRepo.UpdateStatus(ctx, tx, orderSn, model.OrderStatusApply, model.OrderStatusRefuse)
		if err != nil {
			return err
		}
		if err := s.orderRepo.UpdateItemsStatus(ctx, tx, orderSn, model.ItemStatusRefuse); err != nil {
			return err
		}
		return s.orderRepo.SetReason(ctx, tx, orderSn, reason)
	})
}

// cancelWriteOffs 退款时作废未核销的核销单
func (s *RefundService) cancelWriteOffs(ctx context.Context, tx *gorm.DB, orderSn string) error {
	return s.writeOffRepo.UpdateStatusByOrderSn(ctx, tx, orderSn, model.WriteOffStatusPending, model.WriteOffStatusCancel)
}

// ListRefundApplies 管理端退款申请列表；itemStatus 传 -1 表示不限
func (s *RefundService) ListRefundApplies(ctx context.Context, itemStatus, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orderRepo.ListRefundApplies(ctx, itemStatus, page, pageSize)
}
