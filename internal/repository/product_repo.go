package repository

import (
	"context"
	"errors"

	"wxmall/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProductNotFound = errors.New("商品不存在")
	ErrUnitNotFound    = errors.New("商品规格不存在")
	ErrOutOfStock      = errors.New("库存不足")
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetProductBySn(ctx context.Context, tx *gorm.DB, sn string) (*model.Product, error) {
	if tx == nil {
		tx = r.db
	}
	var product model.Product
	err := tx.WithContext(ctx).Where("sn = ? AND is_del = 0", sn).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) GetUnitBySn(ctx context.Context, tx *gorm.DB, sn string) (*model.Unit, error) {
	if tx == nil {
		tx = r.db
	}
	var unit model.Unit
	err := tx.WithContext(ctx).Where("sn = ? AND is_del = 0", sn).First(&unit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// GetUnitBySnForUpdate 排他锁读取规格行（库存扣减前）
func (r *ProductRepository) GetUnitBySnForUpdate(ctx context.Context, tx *gorm.DB, sn string) (*model.Unit, error) {
	var unit model.Unit
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sn = ? AND is_del = 0", sn).
		First(&unit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// DecrQuantity 守护式扣库存：余量不足时影响行数为 0，判定超卖
func (r *ProductRepository) DecrQuantity(ctx context.Context, tx *gorm.DB, unitSn string, n int) error {
	result := tx.WithContext(ctx).
		Model(&model.Unit{}).
		Where("sn = ? AND quantity >= ?", unitSn, n).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", n))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOutOfStock
	}
	return nil
}

// IncrQuantity 回补库存（取消/超时）
func (r *ProductRepository) IncrQuantity(ctx context.Context, tx *gorm.DB, unitSn string, n int) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Unit{}).
		Where("sn = ?", unitSn).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", n)).Error
}

// BumpSellTotal 支付成功后累计销量（规格与商品各记一份）
func (r *ProductRepository) BumpSellTotal(ctx context.Context, tx *gorm.DB, unitSn, productSn string, n int) error {
	err := tx.WithContext(ctx).
		Model(&model.Unit{}).
		Where("sn = ?", unitSn).
		UpdateColumn("sell_total", gorm.Expr("sell_total + ?", n)).Error
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Model(&model.Product{}).
		Where("sn = ?", productSn).
		UpdateColumn("sell_total", gorm.Expr("sell_total + ?", n)).Error
}

func (r *ProductRepository) GetUnitAttrs(ctx context.Context, unitSn string) ([]*model.UnitAttr, error) {
	var attrs []*model.UnitAttr
	err := r.db.WithContext(ctx).Where("unit_sn = ?", unitSn).Find(&attrs).Error
	return attrs, err
}
