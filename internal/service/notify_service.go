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

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ============================================================================
// 支付/退款回调
// ============================================================================
//
// 网关回调可能重发，处理器按商户单号幂等：
// 订单已是目标状态就直接应答成功，绝不重复记账。
// ============================================================================

type NotifyService struct {
	db           *gorm.DB
	rdb          *redis.Client
	cfg          *config.Config
	orderRepo    *repository.OrderRepository
	tranRepo     *repository.TransactionRepository
	writeOffRepo *repository.WriteOffRepository
	outboxRepo   *repository.OutboxRepository
	order        *OrderService
}

func NewNotifyService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, order *OrderService) *NotifyService {
	return &NotifyService{
		db:           db,
		rdb:          rdb,
		cfg:          cfg,
		orderRepo:    repository.NewOrderRepository(db),
		tranRepo:     repository.NewTransactionRepository(db),
		writeOffRepo: repository.NewWriteOffRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
		order:        order,
	}
}

// payNotifyDisposition 支付回调的幂等判定：已是 Paid 直接应答成功，
// 只有待支付订单允许入账，其余状态一律冲突
func payNotifyDisposition(status model.OrderPayStatus) (done bool, err error) {
	switch {
	case status == model.OrderStatusPaid:
		return true, nil
	case status != model.OrderStatusPendingPayment:
		return false, errs.New(errs.KindConflict, "订单状态不允许支付回调")
	}
	return false, nil
}

// refundNotifyDisposition 退款回调的幂等判定：已是 Refund 直接应答成功
func refundNotifyDisposition(status model.OrderPayStatus) (done bool, err error) {
	switch {
	case status == model.OrderStatusRefund:
		return true, nil
	case status != model.OrderStatusRefunding:
		return false, errs.New(errs.KindConflict, "订单状态不允许退款回调")
	}
	return false, nil
}

// HandlePayNotify 支付成功回调
// 回调路径与零钱路径共用 ApplyPaidEffects，区别只在扣款来源：
// 这里不动钱包，只追加一条负数消费流水供对账
func (s *NotifyService) HandlePayNotify(ctx context.Context, notice *gateway.PaidNotice) error {
	notifyLock := lock.NewNotifyLock(s.rdb, notice.OutTradeNo)
	if err := notifyLock.Lock(ctx, 100*time.Millisecond, 10); err != nil {
		return errs.Wrap(errs.KindConflict, "回调处理中", err)
	}
	defer func() {
		if err := notifyLock.Unlock(context.Background()); err != nil {
			log.Printf("[NotifyService] 释放回调锁失败: %v", err)
		}
	}()

	return s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.GetByOutTradeNoForUpdate(ctx, tx, notice.OutTradeNo)
		if err != nil {
			if err == repository.ErrOrderNotFound {
				return errs.New(errs.KindNotFound, "订单不存在")
			}
			return err
		}
		done, err := payNotifyDisposition(order.Status)
		if err != nil {
			return err
		}
		if done {
			return nil // 重复回调
		}

		snapshot, _ := json.Marshal(order)
		err = s.tranRepo.Create(ctx, tx, &model.TransactionRecord{
			UserID:   order.UserID,
			Amount:   -order.PayAmount,
			TranType: model.TranTypePurchase,
			PayType:  model.PayTypeWx,
			Info:     string(snapshot),
		})
		if err != nil {
			return err
		}

		if err := s.orderRepo.SetPaidInfo(ctx, tx, order.OrderSn, notice.TransactionID); err != nil {
			return err
		}
		return s.order.ApplyPaidEffects(ctx, tx, order, model.PayTypeWx)
	})
}

// HandleRefundNotify 退款成功回调：Refunding → Refund
func (s *NotifyService) HandleRefundNotify(ctx context.Context, notice *gateway.RefundNotice) error {
	notifyLock := lock.NewNotifyLock(s.rdb, notice.OutTradeNo)
	if err := notifyLock.Lock(ctx, 100*time.Millisecond, 10); err != nil {
		return errs.Wrap(errs.KindConflict, "回调处理中", err)
	}
	defer func() {
		if err := notifyLock.Unlock(context.Background()); err != nil {
			log.Printf("[NotifyService] 释放回调锁失败: %v", err)
		}
	}()

	return s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.GetByOutTradeNoForUpdate(ctx, tx, notice.OutTradeNo)
		if err != nil {
			if err == repository.ErrOrderNotFound {
				return errs.New(errs.KindNotFound, "订单不存在")
			}
			return err
		}
		done, err := refundNotifyDisposition(order.Status)
		if err != nil {
			return err
		}
		if done {
			return nil // 重复回调
		}

		err = s.orderRepo.UpdateStatus(ctx, tx, order.OrderSn, model.OrderStatusRefunding, model.OrderStatusRefund)
		if err != nil {
			return err
		}
		if err := s.orderRepo.UpdateItemsStatus(ctx, tx, order.OrderSn, model.ItemStatusRefund); err != nil {
			return err
		}
		err = s.writeOffRepo.UpdateStatusByOrderSn(ctx, tx, order.OrderSn, model.WriteOffStatusPending, model.WriteOffStatusCancel)
		if err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.OrderEvent, model.EventOrderRefunded, order.OrderSn, order)
	})
}
