package service

import (
	"context"

	"wxmall/internal/model"
	"wxmall/internal/repository"
	"wxmall/pkg/errs"

	"gorm.io/gorm"
)

type CartService struct {
	cartRepo    *repository.CartRepository
	productRepo *repository.ProductRepository
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{
		cartRepo:    repository.NewCartRepository(db),
		productRepo: repository.NewProductRepository(db),
	}
}

// AddToCart 加购物车（或立即购买行）
// Pending 同规格合并数量，BuyNow 每次新建一行（取最新）
func (s *CartService) AddToCart(ctx context.Context, userID int64, unitSn string, quantity int, buyNow bool) error {
	if quantity <= 0 {
		return errs.New(errs.KindBadRequest, "购买数量必须大于0")
	}

	unit, err := s.productRepo.GetUnitBySn(ctx, nil, unitSn)
	if err != nil {
		if err == repository.ErrUnitNotFound {
			return errs.New(errs.KindBadRequest, "商品规格不存在")
		}
		return err
	}
	product, err := s.productRepo.GetProductBySn(ctx, nil, unit.ProductSn)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return errs.New(errs.KindBadRequest, "商品不存在")
		}
		return err
	}
	if product.Status != model.ProductStatusOnline {
		return errs.New(errs.KindBadRequest, "商品已下架")
	}

	status := model.CartStatusPending
	if buyNow {
		status = model.CartStatusBuyNow
	}
	return s.cartRepo.Add(ctx, userID, unitSn, quantity, status)
}

// ListCart 用户购物车（仅 Pending 行）
func (s *CartService) ListCart(ctx context.Context, userID int64) ([]*model.ShopCart, error) {
	return s.cartRepo.ListPending(ctx, userID)
}

// Remove 删除一条购物车行
func (s *CartService) Remove(ctx context.Context, userID, lineID int64) error {
	return s.cartRepo.Remove(ctx, userID, lineID)
}
