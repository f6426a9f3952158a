package repository

import (
	"context"
	"errors"

	"wxmall/internal/model"

	"gorm.io/gorm"
)

var ErrDeliveryNotFound = errors.New("配送组不存在")

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// CreateGroup 建配送组并挂入订单项
func (r *DeliveryRepository) CreateGroup(ctx context.Context, tx *gorm.DB, group *model.DeliveryGroup, orderItemIDs []string) error {
	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(ctx).Create(group).Error; err != nil {
		return err
	}
	items := make([]*model.DeliveryItem, 0, len(orderItemIDs))
	for _, id := range orderItemIDs {
		items = append(items, &model.DeliveryItem{
			DeliveryCode: group.DeliveryCode,
			OrderItemID:  id,
		})
	}
	return tx.WithContext(ctx).Create(items).Error
}

func (r *DeliveryRepository) GetByCode(ctx context.Context, deliveryCode string) (*model.DeliveryGroup, error) {
	var group model.DeliveryGroup
	err := r.db.WithContext(ctx).
		Where("delivery_code = ? AND is_del = 0", deliveryCode).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *DeliveryRepository) ListByOrderSn(ctx context.Context, orderSn string) ([]*model.DeliveryGroup, error) {
	var groups []*model.DeliveryGroup
	err := r.db.WithContext(ctx).
		Where("order_sn = ? AND is_del = 0", orderSn).
		Find(&groups).Error
	return groups, err
}

func (r *DeliveryRepository) ListItems(ctx context.Context, deliveryCode string) ([]*model.DeliveryItem, error) {
	var items []*model.DeliveryItem
	err := r.db.WithContext(ctx).
		Where("delivery_code = ?", deliveryCode).
		Find(&items).Error
	return items, err
}
