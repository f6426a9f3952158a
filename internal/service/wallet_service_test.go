package service

import (
	"context"
	"testing"

	"wxmall/internal/model"
	"wxmall/internal/repository"
	"wxmall/pkg/errs"
	"wxmall/pkg/money"

	"gorm.io/gorm"
)

// ============================================================
// 内存假仓储：账本逻辑（锁读校验、余额增减、标签更新、带符号流水）
// 不依赖真实库即可验证
// ============================================================

type fakeWalletStore struct {
	wallets map[int64]*model.Wallet
}

func newFakeWalletStore() *fakeWalletStore {
	return &fakeWalletStore{wallets: make(map[int64]*model.Wallet)}
}

func (f *fakeWalletStore) Create(ctx context.Context, wallet *model.Wallet) error {
	if _, ok := f.wallets[wallet.UserID]; ok {
		return nil // 幂等建钱包
	}
	w := *wallet
	f.wallets[wallet.UserID] = &w
	return nil
}

func (f *fakeWalletStore) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	w, ok := f.wallets[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWalletStore) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	return f.GetByUserID(ctx, userID)
}

func (f *fakeWalletStore) UpdateAmount(ctx context.Context, tx *gorm.DB, userID int64, amount float64, amountHash string) error {
	w, ok := f.wallets[userID]
	if !ok {
		return repository.ErrWalletNotFound
	}
	w.Amount = amount
	w.AmountHash = amountHash
	return nil
}

type fakeTranStore struct {
	records []*model.TransactionRecord
}

func (f *fakeTranStore) Create(ctx context.Context, tx *gorm.DB, record *model.TransactionRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeTranStore) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.TransactionRecord, int64, error) {
	return f.records, int64(len(f.records)), nil
}

func newTestWalletService(t *testing.T) (*WalletService, *fakeWalletStore, *fakeTranStore) {
	t.Helper()
	initTestCrypto(t)
	ws := newFakeWalletStore()
	ts := &fakeTranStore{}
	return &WalletService{walletRepo: ws, tranRepo: ts}, ws, ts
}

func seedWallet(t *testing.T, ws *fakeWalletStore, userID int64, amount float64) {
	t.Helper()
	hash, err := walletHash(userID, amount)
	if err != nil {
		t.Fatalf("walletHash: %v", err)
	}
	ws.wallets[userID] = &model.Wallet{
		UserID:     userID,
		Amount:     amount,
		AmountHash: hash,
		Status:     model.WalletStatusActive,
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	svc, ws, ts := newTestWalletService(t)
	seedWallet(t, ws, 100, 10.00)

	err := svc.Debit(context.Background(), nil, 100, 10.01, model.TranTypePurchase, model.PayTypePocket, "")
	if errs.KindOf(err) != errs.KindInsufficientFunds {
		t.Fatalf("err = %v, want KindInsufficientFunds", err)
	}
	if got := ws.wallets[100].Amount; got != 10.00 {
		t.Errorf("余额不足时余额不应变化: %v", got)
	}
	if len(ts.records) != 0 {
		t.Errorf("余额不足时不应追加流水: %d 条", len(ts.records))
	}
}

func TestDebitUpdatesHashAndAppendsSignedRecord(t *testing.T) {
	svc, ws, ts := newTestWalletService(t)
	seedWallet(t, ws, 100, 30.00)

	err := svc.Debit(context.Background(), nil, 100, 12.34, model.TranTypePurchase, model.PayTypePocket, "订单快照")
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}

	w := ws.wallets[100]
	if w.Amount != money.Round2(30.00-12.34) {
		t.Errorf("余额 = %v, want 17.66", w.Amount)
	}
	expect, _ := walletHash(100, w.Amount)
	if w.AmountHash != expect {
		t.Error("扣款后标签未随余额更新")
	}

	if len(ts.records) != 1 {
		t.Fatalf("流水条数 = %d, want 1", len(ts.records))
	}
	rec := ts.records[0]
	if rec.Amount != -12.34 {
		t.Errorf("出账流水金额 = %v, want -12.34", rec.Amount)
	}
	if rec.TranType != model.TranTypePurchase || rec.PayType != model.PayTypePocket {
		t.Errorf("流水类型 = %d/%d", rec.TranType, rec.PayType)
	}
	if rec.Info != "订单快照" {
		t.Errorf("流水附言 = %q", rec.Info)
	}
}

func TestCreditAppendsPositiveRecord(t *testing.T) {
	svc, ws, ts := newTestWalletService(t)
	seedWallet(t, ws, 100, 5.00)

	if err := svc.Credit(context.Background(), nil, 100, 2.50, model.TranTypeSaleSplit, model.PayTypeWx, ""); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if got := ws.wallets[100].Amount; got != 7.50 {
		t.Errorf("余额 = %v, want 7.50", got)
	}
	if len(ts.records) != 1 || ts.records[0].Amount != 2.50 {
		t.Fatalf("入账流水应为 +2.50: %+v", ts.records)
	}
}

func TestMutateRejectsTamperedBalance(t *testing.T) {
	svc, ws, _ := newTestWalletService(t)
	seedWallet(t, ws, 100, 50.00)
	ws.wallets[100].Amount = 5000.00 // 标签未同步，等价于库里数字被直接改过

	err := svc.Debit(context.Background(), nil, 100, 1.00, model.TranTypePurchase, model.PayTypePocket, "")
	if errs.KindOf(err) != errs.KindTampered {
		t.Fatalf("err = %v, want KindTampered", err)
	}
}

func TestMutateRejectsNegativeAmount(t *testing.T) {
	svc, ws, _ := newTestWalletService(t)
	seedWallet(t, ws, 100, 50.00)

	err := svc.Credit(context.Background(), nil, 100, -1, model.TranTypeRecharge, model.PayTypeWx, "")
	if errs.KindOf(err) != errs.KindBadRequest {
		t.Fatalf("err = %v, want KindBadRequest", err)
	}
}

func TestMutateRejectsFrozenWallet(t *testing.T) {
	svc, ws, _ := newTestWalletService(t)
	seedWallet(t, ws, 100, 50.00)
	ws.wallets[100].Status = model.WalletStatusDisabled

	err := svc.Debit(context.Background(), nil, 100, 1.00, model.TranTypePurchase, model.PayTypePocket, "")
	if errs.KindOf(err) != errs.KindForbidden {
		t.Fatalf("err = %v, want KindForbidden", err)
	}
}

func TestWalletHashDeterministic(t *testing.T) {
	initTestCrypto(t)

	h1, err := walletHash(100, 25.0)
	if err != nil {
		t.Fatalf("walletHash: %v", err)
	}
	h2, err := walletHash(100, 25.0)
	if err != nil {
		t.Fatalf("walletHash: %v", err)
	}
	if h1 != h2 {
		t.Error("同一 (uid, 金额) 的标签应当一致")
	}
}

func TestWalletHashBindsUserAndAmount(t *testing.T) {
	initTestCrypto(t)

	base, _ := walletHash(100, 25.0)
	otherUser, _ := walletHash(101, 25.0)
	otherAmount, _ := walletHash(100, 25.01)

	if base == otherUser {
		t.Error("不同用户的标签不应相同")
	}
	if base == otherAmount {
		t.Error("不同金额的标签不应相同")
	}
}

func TestWalletHashAmountFormatting(t *testing.T) {
	initTestCrypto(t)

	// 25、25.0、25.00 都格式化成 "25.00"，标签必须一致
	a, _ := walletHash(100, 25)
	b, _ := walletHash(100, 25.00)
	if a != b {
		t.Error("等值金额的标签应当一致")
	}
}
