package repository

import (
	"context"
	"errors"

	"wxmall/internal/model"

	"gorm.io/gorm"
)

var (
	ErrBindNotFound = errors.New("绑定关系不存在")
	ErrAlreadyBound = errors.New("绑定关系已存在")
)

type SalesRepository struct {
	db *gorm.DB
}

func NewSalesRepository(db *gorm.DB) *SalesRepository {
	return &SalesRepository{db: db}
}

// GetSaleOfUser 用户的有效销售绑定；不存在返回 (nil, nil)
func (r *SalesRepository) GetSaleOfUser(ctx context.Context, tx *gorm.DB, userID int64) (*model.SaleUserBind, error) {
	if tx == nil {
		tx = r.db
	}
	var bind model.SaleUserBind
	err := tx.WithContext(ctx).
		Where("user_id = ? AND status = ? AND is_del = 0", userID, model.BindStatusOnline).
		First(&bind).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bind, nil
}

// GetMainSaleOfSale 销售的有效总销售绑定；不存在返回 (nil, nil)
func (r *SalesRepository) GetMainSaleOfSale(ctx context.Context, tx *gorm.DB, saleUID int64) (*model.MainSaleBind, error) {
	if tx == nil {
		tx = r.db
	}
	var bind model.MainSaleBind
	err := tx.WithContext(ctx).
		Where("sale_uid = ? AND status = ? AND is_del = 0", saleUID, model.BindStatusOnline).
		First(&bind).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bind, nil
}

func (r *SalesRepository) CreateMainSaleBind(ctx context.Context, tx *gorm.DB, mainSaleUID, saleUID int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(&model.MainSaleBind{
		MainSaleUID: mainSaleUID,
		SaleUID:     saleUID,
		Status:      model.BindStatusOnline,
	}).Error
}

func (r *SalesRepository) CreateSaleUserBind(ctx context.Context, tx *gorm.DB, saleUID, userID int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(&model.SaleUserBind{
		SaleUID: saleUID,
		UserID:  userID,
		Status:  model.BindStatusOnline,
	}).Error
}

// RemoveMainSaleBind 解绑（软删除有效边）
func (r *SalesRepository) RemoveMainSaleBind(ctx context.Context, tx *gorm.DB, mainSaleUID, saleUID int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.MainSaleBind{}).
		Where("main_sale_uid = ? AND sale_uid = ? AND is_del = 0", mainSaleUID, saleUID).
		Update("is_del", 1)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBindNotFound
	}
	return nil
}

func (r *SalesRepository) RemoveSaleUserBind(ctx context.Context, tx *gorm.DB, saleUID, userID int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.SaleUserBind{}).
		Where("sale_uid = ? AND user_id = ? AND is_del = 0", saleUID, userID).
		Update("is_del", 1)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBindNotFound
	}
	return nil
}

// GetStoreEmployee 操作员在指定门店的在职绑定；不存在返回 (nil, nil)
func (r *SalesRepository) GetStoreEmployee(ctx context.Context, userID int64, storeCode string) (*model.StoreEmployee, error) {
	var emp model.StoreEmployee
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND store_code = ? AND status = ? AND is_del = 0",
			userID, storeCode, model.BindStatusOnline).
		First(&emp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &emp, nil
}
