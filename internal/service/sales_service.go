package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wxmall/internal/config"
	"wxmall/internal/model"
	"wxmall/internal/repository"
	"wxmall/pkg/errs"
	"wxmall/pkg/money"
	"wxmall/pkg/seccrypt"

	"gorm.io/gorm"
)

// ============================================================================
// 销售分成引擎
// ============================================================================
//
// 两层关系森林：总销售 ↔ 销售、销售 ↔ 用户。晋升时物化一条自环边，
// 于是分成链查找对所有用户形式统一：两次索引查询即可沿链上溯。
// 分成在支付事务内执行，订单此刻必须还处于待支付。
// ============================================================================

type SalesService struct {
	db          *gorm.DB
	salesRepo   *repository.SalesRepository
	userRepo    *repository.UserRepository
	orderRepo   *repository.OrderRepository
	productRepo *repository.ProductRepository
	wallet      *WalletService
}

func NewSalesService(db *gorm.DB) *SalesService {
	return &SalesService{
		db:          db,
		salesRepo:   repository.NewSalesRepository(db),
		userRepo:    repository.NewUserRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		productRepo: repository.NewProductRepository(db),
		wallet:      NewWalletService(db),
	}
}

// Chain 分成链：买家 → 销售 → 总销售（缺层为 0）
type Chain struct {
	UserID      int64 `json:"user_id"`
	SaleUID     int64 `json:"sale_uid"`
	MainSaleUID int64 `json:"main_sale_uid"`
}

// ResolveChain 两次索引查询上溯分成链
func (s *SalesService) ResolveChain(ctx context.Context, tx *gorm.DB, userID int64) (*Chain, error) {
	chain := &Chain{UserID: userID}

	su, err := s.salesRepo.GetSaleOfUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if su == nil {
		return chain, nil
	}
	chain.SaleUID = su.SaleUID

	ms, err := s.salesRepo.GetMainSaleOfSale(ctx, tx, su.SaleUID)
	if err != nil {
		return nil, err
	}
	if ms != nil {
		chain.MainSaleUID = ms.MainSaleUID
	}
	return chain, nil
}

// DoOrderSaleSplit 订单分成，在支付事务内调用
// 订单必须仍处于待支付（先分成后置 Paid，回滚时两者一起消失）
func (s *SalesService) DoOrderSaleSplit(ctx context.Context, tx *gorm.DB, orderSn string, buyerUID int64, payType model.PayType) error {
	chain, err := s.ResolveChain(ctx, tx, buyerUID)
	if err != nil {
		return err
	}
	if chain.SaleUID == 0 && chain.MainSaleUID == 0 {
		return nil
	}

	order, err := s.orderRepo.GetByOrderSnForUpdate(ctx, tx, orderSn)
	if err != nil {
		return err
	}
	if order.Status != model.OrderStatusPendingPayment {
		return errs.New(errs.KindConflict, "订单状态不允许分成")
	}

	items, err := s.orderRepo.GetItems(ctx, tx, orderSn)
	if err != nil {
		return err
	}

	for _, item := range items {
		unit, err := s.productRepo.GetUnitBySn(ctx, tx, item.UnitSn)
		if err != nil {
			return err
		}
		if unit.IsSplit == 0 {
			continue
		}
		info, _ := json.Marshal(item)

		if chain.MainSaleUID > 0 && unit.MainSaleSplit > 0 {
			amount := money.Round2(unit.MainSaleSplit * float64(item.BuyQuantity))
			if err := s.wallet.EnsureExists(ctx, chain.MainSaleUID); err != nil {
				return err
			}
			err = s.wallet.Credit(ctx, tx, chain.MainSaleUID, amount, model.TranTypeMainSaleSplit, payType, string(info))
			if err != nil {
				return err
			}
		}
		if chain.SaleUID > 0 && unit.SaleSplit > 0 {
			amount := money.Round2(unit.SaleSplit * float64(item.BuyQuantity))
			if err := s.wallet.EnsureExists(ctx, chain.SaleUID); err != nil {
				return err
			}
			err = s.wallet.Credit(ctx, tx, chain.SaleUID, amount, model.TranTypeSaleSplit, payType, string(info))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// PromoteMainSale 晋升总销售：补角色位并物化两条自环
func (s *SalesService) PromoteMainSale(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return errs.New(errs.KindNotFound, "用户不存在")
		}
		return err
	}
	if user.HasRole(model.RoleMainSale) {
		return errs.New(errs.KindConflict, "已是总销售")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.salesRepo.GetMainSaleOfSale(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := mainSalePromoteConflict(existing, userID); err != nil {
			return err
		}

		roles := user.Roles | uint8(model.RoleMainSale) | uint8(model.RoleSale)
		if err := s.userRepo.UpdateRoles(ctx, tx, userID, roles); err != nil {
			return err
		}
		if existing == nil {
			if err := s.salesRepo.CreateMainSaleBind(ctx, tx, userID, userID); err != nil {
				return err
			}
		}
		return s.ensureSelfSaleUserBind(ctx, tx, userID)
	})
}

// mainSalePromoteConflict 晋升总销售前的上级边校验
// 已绑在别的总销售名下时不允许再物化自环，否则同一销售存在两条
// 有效上级边，分成链解析不再唯一
func mainSalePromoteConflict(existing *model.MainSaleBind, userID int64) error {
	if existing == nil || existing.MainSaleUID == userID {
		return nil
	}
	return errs.New(errs.KindConflict, "该用户已绑定总销售，请先解绑")
}

// PromoteSale 晋升销售：补角色位并物化销售-用户自环
func (s *SalesService) PromoteSale(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return errs.New(errs.KindNotFound, "用户不存在")
		}
		return err
	}
	if user.HasRole(model.RoleSale) {
		return errs.New(errs.KindConflict, "已是销售")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.UpdateRoles(ctx, tx, userID, user.Roles|uint8(model.RoleSale)); err != nil {
			return err
		}
		return s.ensureSelfSaleUserBind(ctx, tx, userID)
	})
}

func (s *SalesService) ensureSelfSaleUserBind(ctx context.Context, tx *gorm.DB, userID int64) error {
	existing, err := s.salesRepo.GetSaleOfUser(ctx, tx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		// 已绑在别的销售名下也不动：历史分成关系保留
		return nil
	}
	return s.salesRepo.CreateSaleUserBind(ctx, tx, userID, userID)
}

// MainSaleInviteSale 总销售邀请销售
// 受邀者已有总销售归属时拒绝；尚无销售角色则先晋升
func (s *SalesService) MainSaleInviteSale(ctx context.Context, mainSaleUID, saleUID int64) error {
	if mainSaleUID == saleUID {
		return errs.New(errs.KindBadRequest, "不能邀请自己")
	}

	main, err := s.userRepo.GetByID(ctx, mainSaleUID)
	if err != nil {
		return err
	}
	if !main.HasRole(model.RoleMainSale) {
		return errs.New(errs.KindForbidden, "邀请方不是总销售")
	}

	invitee, err := s.userRepo.GetByID(ctx, saleUID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return errs.New(errs.KindNotFound, "受邀用户不存在")
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.salesRepo.GetMainSaleOfSale(ctx, tx, saleUID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.New(errs.KindConflict, "该销售已有总销售归属")
		}

		if !invitee.HasRole(model.RoleSale) {
			if err := s.userRepo.UpdateRoles(ctx, tx, saleUID, invitee.Roles|uint8(model.RoleSale)); err != nil {
				return err
			}
			if err := s.ensureSelfSaleUserBind(ctx, tx, saleUID); err != nil {
				return err
			}
		}
		return s.salesRepo.CreateMainSaleBind(ctx, tx, mainSaleUID, saleUID)
	})
}

// SaleInviteUser 销售邀请用户
func (s *SalesService) SaleInviteUser(ctx context.Context, saleUID, userID int64) error {
	if saleUID == userID {
		return errs.New(errs.KindBadRequest, "不能邀请自己")
	}

	sale, err := s.userRepo.GetByID(ctx, saleUID)
	if err != nil {
		return err
	}
	if !sale.HasRole(model.RoleSale) {
		return errs.New(errs.KindForbidden, "邀请方不是销售")
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if err == repository.ErrUserNotFound {
			return errs.New(errs.KindNotFound, "受邀用户不存在")
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.salesRepo.GetSaleOfUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.New(errs.KindConflict, "该用户已有销售归属")
		}
		return s.salesRepo.CreateSaleUserBind(ctx, tx, saleUID, userID)
	})
}

// UnbindSale 解除总销售-销售绑定
func (s *SalesService) UnbindSale(ctx context.Context, mainSaleUID, saleUID int64) error {
	err := s.salesRepo.RemoveMainSaleBind(ctx, nil, mainSaleUID, saleUID)
	if err == repository.ErrBindNotFound {
		return errs.New(errs.KindNotFound, "绑定关系不存在")
	}
	return err
}

// UnbindUser 解除销售-用户绑定
func (s *SalesService) UnbindUser(ctx context.Context, saleUID, userID int64) error {
	err := s.salesRepo.RemoveSaleUserBind(ctx, nil, saleUID, userID)
	if err == repository.ErrBindNotFound {
		return errs.New(errs.KindNotFound, "绑定关系不存在")
	}
	return err
}

// ============================================================================
// 邀请码：encrypt("邀请人uid,过期时间戳") ，线下扫码拉新用
// ============================================================================

// GenInviteSaleCode 生成总销售邀请销售的邀请码
func (s *SalesService) GenInviteSaleCode(ctx context.Context, mainSaleUID int64) (string, error) {
	main, err := s.userRepo.GetByID(ctx, mainSaleUID)
	if err != nil {
		return "", err
	}
	if !main.HasRole(model.RoleMainSale) {
		return "", errs.New(errs.KindForbidden, "不是总销售")
	}
	return genInviteCode(mainSaleUID, seccrypt.SeedInviteSaleCode)
}

// GenInviteUserCode 生成销售邀请用户的邀请码
func (s *SalesService) GenInviteUserCode(ctx context.Context, saleUID int64) (string, error) {
	sale, err := s.userRepo.GetByID(ctx, saleUID)
	if err != nil {
		return "", err
	}
	if !sale.HasRole(model.RoleSale) {
		return "", errs.New(errs.KindForbidden, "不是销售")
	}
	return genInviteCode(saleUID, seccrypt.SeedInviteUserCode)
}

func genInviteCode(inviterUID int64, seed seccrypt.Seed) (string, error) {
	ttl := config.GlobalConfig.Business.InviteCodeTTLSecs
	expire := time.Now().Add(time.Duration(ttl) * time.Second).Unix()
	return seccrypt.Encrypt(fmt.Sprintf("%d,%d", inviterUID, expire), seed)
}

// AcceptInviteSaleCode 凭邀请码成为某总销售名下的销售
func (s *SalesService) AcceptInviteSaleCode(ctx context.Context, code string, saleUID int64) error {
	inviterUID, err := parseInviteCode(code, seccrypt.SeedInviteSaleCode)
	if err != nil {
		return err
	}
	return s.MainSaleInviteSale(ctx, inviterUID, saleUID)
}

// AcceptInviteUserCode 凭邀请码绑定为某销售名下的用户
func (s *SalesService) AcceptInviteUserCode(ctx context.Context, code string, userID int64) error {
	inviterUID, err := parseInviteCode(code, seccrypt.SeedInviteUserCode)
	if err != nil {
		return err
	}
	return s.SaleInviteUser(ctx, inviterUID, userID)
}

func parseInviteCode(code string, seed seccrypt.Seed) (int64, error) {
	plain, err := seccrypt.Decrypt(code, seed)
	if err != nil {
		return 0, errs.New(errs.KindBadRequest, "邀请码无效")
	}
	parts := strings.Split(plain, ",")
	if len(parts) != 2 {
		return 0, errs.New(errs.KindBadRequest, "邀请码无效")
	}
	inviterUID, err1 := strconv.ParseInt(parts[0], 10, 64)
	expire, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, errs.New(errs.KindBadRequest, "邀请码无效")
	}
	if time.Now().Unix() > expire {
		return 0, errs.New(errs.KindExpired, "邀请码已过期")
	}
	return inviterUID, nil
}
