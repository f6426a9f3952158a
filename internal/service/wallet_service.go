package service

import (
	"context"
	"fmt"

	"wxmall/internal/model"
	"wxmall/internal/repository"
	"wxmall/pkg/errs"
	"wxmall/pkg/money"
	"wxmall/pkg/seccrypt"

	"gorm.io/gorm"
)

// ============================================================================
// 钱包账本
// ============================================================================
//
// 余额带防篡改标签：标签 = encrypt("uid_金额", UserPocketMoney)。
// 读取时重算比对，对不上说明库里的数字被直接改过，立即拒绝。
//
// Credit / Debit 都在调用方的事务内执行：
//   1. 排他锁读钱包行（顺带校验标签与状态）
//   2. 算新余额、新标签
//   3. 一条 UPDATE 同时落余额和标签
//   4. 追加一条带符号流水
// 出错由调用方整体回滚，钱包保持原状。
// ============================================================================

// walletStore 钱包行读写
type walletStore interface {
	Create(ctx context.Context, wallet *model.Wallet) error
	GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error)
	UpdateAmount(ctx context.Context, tx *gorm.DB, userID int64, amount float64, amountHash string) error
}

// tranStore 流水追加与查询
type tranStore interface {
	Create(ctx context.Context, tx *gorm.DB, record *model.TransactionRecord) error
	ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.TransactionRecord, int64, error)
}

type WalletService struct {
	db         *gorm.DB
	walletRepo walletStore
	tranRepo   tranStore
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{
		db:         db,
		walletRepo: repository.NewWalletRepository(db),
		tranRepo:   repository.NewTransactionRepository(db),
	}
}

// walletHash 余额防篡改标签
func walletHash(userID int64, amount float64) (string, error) {
	plain := fmt.Sprintf("%d_%s", userID, money.Format(amount))
	return seccrypt.Encrypt(plain, seccrypt.SeedUserPocketMoney)
}

// EnsureExists 幂等建钱包，每次登录调用
func (s *WalletService) EnsureExists(ctx context.Context, userID int64) error {
	hash, err := walletHash(userID, 0)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "生成余额标签失败", err)
	}
	return s.walletRepo.Create(ctx, &model.Wallet{
		UserID:     userID,
		Amount:     0,
		AmountHash: hash,
		Status:     model.WalletStatusActive,
	})
}

// Read 排他锁读取并校验钱包，锁持续到事务结束
func (s *WalletService) Read(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		if err == repository.ErrWalletNotFound {
			return nil, errs.New(errs.KindNotFound, "钱包不存在")
		}
		return nil, err
	}
	if wallet.Status != model.WalletStatusActive {
		return nil, errs.New(errs.KindForbidden, "钱包已被冻结")
	}

	expect, err := walletHash(userID, wallet.Amount)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "生成余额标签失败", err)
	}
	if expect != wallet.AmountHash {
		return nil, errs.New(errs.KindTampered, "钱包数据异常，请联系客服")
	}
	return wallet, nil
}

// Credit 入账，amount 为非负数值
func (s *WalletService) Credit(ctx context.Context, tx *gorm.DB, userID int64, amount float64, tranType model.TranType, payType model.PayType, info string) error {
	return s.mutate(ctx, tx, userID, amount, false, tranType, payType, info)
}

// Debit 出账，余额不足返回 InsufficientFunds
func (s *WalletService) Debit(ctx context.Context, tx *gorm.DB, userID int64, amount float64, tranType model.TranType, payType model.PayType, info string) error {
	return s.mutate(ctx, tx, userID, amount, true, tranType, payType, info)
}

func (s *WalletService) mutate(ctx context.Context, tx *gorm.DB, userID int64, amount float64, debit bool, tranType model.TranType, payType model.PayType, info string) error {
	if amount < 0 {
		return errs.New(errs.KindBadRequest, "金额不能为负数")
	}
	amount = money.Round2(amount)

	wallet, err := s.Read(ctx, tx, userID)
	if err != nil {
		return err
	}

	var newBalance float64
	signed := amount
	if debit {
		if wallet.Amount < amount {
			return errs.New(errs.KindInsufficientFunds, "余额不足")
		}
		newBalance = money.Round2(wallet.Amount - amount)
		signed = -amount
	} else {
		newBalance = money.Round2(wallet.Amount + amount)
	}

	newHash, err := walletHash(userID, newBalance)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "生成余额标签失败", err)
	}
	if err := s.walletRepo.UpdateAmount(ctx, tx, userID, newBalance, newHash); err != nil {
		return err
	}

	return s.tranRepo.Create(ctx, tx, &model.TransactionRecord{
		UserID:   userID,
		Amount:   signed,
		TranType: tranType,
		PayType:  payType,
		Info:     info,
	})
}

// GetBalance 查询余额（无锁读，仍校验标签）
func (s *WalletService) GetBalance(ctx context.Context, userID int64) (float64, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		if err == repository.ErrWalletNotFound {
			return 0, nil
		}
		return 0, err
	}
	expect, err := walletHash(userID, wallet.Amount)
	if err != nil {
		return 0, errs.Wrap(errs.KindInternal, "生成余额标签失败", err)
	}
	if expect != wallet.AmountHash {
		return 0, errs.New(errs.KindTampered, "钱包数据异常，请联系客服")
	}
	return wallet.Amount, nil
}

// Recharge 充值（简化版，实际应走支付渠道）
func (s *WalletService) Recharge(ctx context.Context, userID int64, amount float64) error {
	if amount <= 0 {
		return errs.New(errs.KindBadRequest, "充值金额必须大于0")
	}
	if err := s.EnsureExists(ctx, userID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.Credit(ctx, tx, userID, amount, model.TranTypeRecharge, model.PayTypeWx, "充值")
	})
}

// ListTransactions 用户流水列表
func (s *WalletService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.TransactionRecord, int64, error) {
	return s.tranRepo.ListByUserID(ctx, userID, page, pageSize)
}
