package repository

import (
	"context"
	"errors"
	"time"

	"wxmall/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound      = errors.New("订单不存在")
	ErrOrderStatusInvalid = errors.New("订单状态不合法")
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(items).Error
}

func (r *OrderRepository) GetByOrderSn(ctx context.Context, orderSn string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("order_sn = ? AND is_del = 0", orderSn).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderSnForUpdate 排他锁读取订单行
func (r *OrderRepository) GetByOrderSnForUpdate(ctx context.Context, tx *gorm.DB, orderSn string) (*model.Order, error) {
	var order model.Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_sn = ? AND is_del = 0", orderSn).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByOutTradeNoForUpdate 支付回调按商户单号取单
func (r *OrderRepository) GetByOutTradeNoForUpdate(ctx context.Context, tx *gorm.DB, outTradeNo string) (*model.Order, error) {
	var order model.Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("out_trade_no = ? AND is_del = 0", outTradeNo).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus 带迁移校验的状态更新；from 不匹配时影响行数为 0
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, orderSn string, from, to model.OrderPayStatus) error {
	if !model.CanTransitionTo(from, to) {
		return ErrOrderStatusInvalid
	}
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": to,
	}
	if to == model.OrderStatusPaid {
		now := time.Now()
		updates["paid_at"] = &now
	}

	result := tx.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_sn = ? AND status = ?", orderSn, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderStatusInvalid
	}
	return nil
}

// SetPaidInfo 支付成功时回填网关交易号
func (r *OrderRepository) SetPaidInfo(ctx context.Context, tx *gorm.DB, orderSn, transactionID string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_sn = ?", orderSn).
		Update("transaction_id", transactionID).Error
}

// SetReason 退款/拒绝时回填原因
func (r *OrderRepository) SetReason(ctx context.Context, tx *gorm.DB, orderSn, reason string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_sn = ?", orderSn).
		Update("reason", reason).Error
}

func (r *OrderRepository) GetItems(ctx context.Context, tx *gorm.DB, orderSn string) ([]*model.OrderItem, error) {
	if tx == nil {
		tx = r.db
	}
	var items []*model.OrderItem
	err := tx.WithContext(ctx).
		Where("order_sn = ? AND is_del = 0", orderSn).
		Find(&items).Error
	return items, err
}

func (r *OrderRepository) GetItemByID(ctx context.Context, orderItemID string) (*model.OrderItem, error) {
	var item model.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_item_id = ? AND is_del = 0", orderItemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &item, nil
}

// UpdateItemsStatus 整单订单项随订单状态同步迁移
func (r *OrderRepository) UpdateItemsStatus(ctx context.Context, tx *gorm.DB, orderSn string, to model.OrderItemStatus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.OrderItem{}).
		Where("order_sn = ?", orderSn).
		Update("status", to).Error
}

// UpdateItemStatus 单个订单项状态更新
func (r *OrderRepository) UpdateItemStatus(ctx context.Context, tx *gorm.DB, orderItemID string, to model.OrderItemStatus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.OrderItem{}).
		Where("order_item_id = ?", orderItemID).
		Update("status", to).Error
}

func (r *OrderRepository) GetExpiredOrders(ctx context.Context, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND expired_at < ? AND is_del = 0", model.OrderStatusPendingPayment, time.Now()).
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// ListByUserID 用户订单列表；status = -1 表示全部
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64, status int, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ? AND is_del = 0", userID)
	if status != -1 {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}

// ListRefundApplies 管理端退款申请列表
// itemStatus = -1 表示不限订单项状态；传具体值时要求订单下
// 存在处于该状态的订单项
func (r *OrderRepository) ListRefundApplies(ctx context.Context, itemStatus int, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("status = ? AND is_del = 0", model.OrderStatusApply)
	if itemStatus != -1 {
		query = query.Where(
			"EXISTS (SELECT 1 FROM order_item oi WHERE oi.order_sn = `order`.order_sn AND oi.status = ?)",
			itemStatus,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}
