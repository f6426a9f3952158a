package service

import (
	"context"

	"wxmall/internal/model"
	"wxmall/internal/repository"
	"wxmall/pkg/errs"
	"wxmall/pkg/idgen"

	"gorm.io/gorm"
)

// ============================================================================
// 发货与收货
// ============================================================================
//
// 一次发货（同一运单）建一个配送组，组内订单项置为待收货；
// 买家确认收货后逐项置为已完成。只有需要物流的订单走这条路。
// ============================================================================

type DeliveryService struct {
	db           *gorm.DB
	deliveryRepo *repository.DeliveryRepository
	orderRepo    *repository.OrderRepository
}

func NewDeliveryService(db *gorm.DB) *DeliveryService {
	return &DeliveryService{
		db:           db,
		deliveryRepo: repository.NewDeliveryRepository(db),
		orderRepo:    repository.NewOrderRepository(db),
	}
}

type ShipRequest struct {
	OrderSn      string
	OrderItemIDs []string
	WaybillID    string
	SenderName   string
	SenderPhone  string
}

// Ship 管理端发货：建配送组并把组内订单项置为待收货
func (s *DeliveryService) Ship(ctx context.Context, req *ShipRequest) (string, error) {
	if len(req.OrderItemIDs) == 0 {
		return "", errs.New(errs.KindBadRequest, "未选择发货的订单项")
	}

	var deliveryCode string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.GetByOrderSnForUpdate(ctx, tx, req.OrderSn)
		if err != nil {
			if err == repository.ErrOrderNotFound {
				return errs.New(errs.KindNotFound, "订单不存在")
			}
			return err
		}
		if order.Status != model.OrderStatusPaid {
			return errs.New(errs.KindConflict, "订单状态不允许发货")
		}
		if !order.DeliveryType.NeedsShipping() {
			return errs.New(errs.KindBadRequest, "该订单无需物流发货")
		}

		items, err := s.orderRepo.GetItems(ctx, tx, req.OrderSn)
		if err != nil {
			return err
		}
		itemSet := make(map[string]*model.OrderItem, len(items))
		for _, it := range items {
			itemSet[it.OrderItemID] = it
		}
		for _, id := range req.OrderItemIDs {
			item, ok := itemSet[id]
			if !ok {
				return errs.Newf(errs.KindBadRequest, "订单项不属于该订单: %s", id)
			}
			if item.Status != model.ItemStatusWaitDeliverGoods {
				return errs.Newf(errs.KindConflict, "订单项不在待发货状态: %s", id)
			}
		}

		deliveryCode = idgen.GenerateDeliveryCode()
		group := &model.DeliveryGroup{
			DeliveryCode:  deliveryCode,
			OrderSn:       req.OrderSn,
			WaybillID:     req.WaybillID,
			SenderName:    req.SenderName,
			SenderPhone:   req.SenderPhone,
			ReceiverName:  order.Name,
			ReceiverPhone: order.Phone,
			ReceiverAddr:  order.AddressDetail,
		}
		if err := s.deliveryRepo.CreateGroup(ctx, tx, group, req.OrderItemIDs); err != nil {
			return err
		}

		for _, id := range req.OrderItemIDs {
			if err := s.orderRepo.UpdateItemStatus(ctx, tx, id, model.ItemStatusWaitTakeDelivery); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return deliveryCode, nil
}

// ConfirmReceipt 买家确认收货
func (s *DeliveryService) ConfirmReceipt(ctx context.Context, userID int64, orderItemID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		item, err := s.orderRepo.GetItemByID(ctx, orderItemID)
		if err != nil {
			if err == repository.ErrOrderNotFound {
				return errs.New(errs.KindNotFound, "订单项不存在")
			}
			return err
		}
		order, err := s.orderRepo.GetByOrderSn(ctx, item.OrderSn)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return errs.New(errs.KindForbidden, "无权操作该订单项")
		}
		if item.Status != model.ItemStatusWaitTakeDelivery {
			return errs.New(errs.KindConflict, "订单项不在待收货状态")
		}
		return s.orderRepo.UpdateItemStatus(ctx, tx, orderItemID, model.ItemStatusComplete)
	})
}

// ListByOrderSn 订单的配送组
func (s *DeliveryService) ListByOrderSn(ctx context.Context, orderSn string) ([]*model.DeliveryGroup, error) {
	return s.deliveryRepo.ListByOrderSn(ctx, orderSn)
}
