package repository

import (
	"context"
	"errors"

	"wxmall/internal/model"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("用户不存在")
	ErrAddressNotFound = errors.New("收货地址不存在")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ? AND is_del = 0", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByOpenID(ctx context.Context, openID string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("open_id = ? AND is_del = 0", openID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreateByOpenID 外部身份首次登录时建档
func (r *UserRepository) GetOrCreateByOpenID(ctx context.Context, openID, unionID string) (*model.User, error) {
	user, err := r.GetByOpenID(ctx, openID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	newUser := &model.User{OpenID: openID, UnionID: unionID}
	if err := r.db.WithContext(ctx).Create(newUser).Error; err != nil {
		return nil, err
	}
	return newUser, nil
}

// UpdateRoles 覆盖写角色位集
func (r *UserRepository) UpdateRoles(ctx context.Context, tx *gorm.DB, userID int64, roles uint8) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("roles", roles)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) GetAddress(ctx context.Context, userID, addressID int64) (*model.Address, error) {
	var addr model.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_del = 0", addressID, userID).
		First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return &addr, nil
}
