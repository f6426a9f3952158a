package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"wxmall/internal/config"
	"wxmall/internal/infrastructure/cache"
	"wxmall/internal/infrastructure/lock"
	"wxmall/internal/model"
	"wxmall/internal/repository"
	"wxmall/pkg/errs"
	"wxmall/pkg/seccrypt"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ============================================================================
// 到店核销
// ============================================================================
//
// 买家出示 encrypt("uid,订单项id,过期时间戳") 的二维码（短时效），
// 门店操作员扫码核销。核销要求操作员在核销单所属门店在职且持有
// 核销员角色，成功后核销单置已核销、父订单项置已完成。
// ============================================================================

type WriteOffService struct {
	db           *gorm.DB
	rdb          *redis.Client
	cfg          *config.Config
	writeOffRepo *repository.WriteOffRepository
	orderRepo    *repository.OrderRepository
	userRepo     *repository.UserRepository
	salesRepo    *repository.SalesRepository
	outboxRepo   *repository.OutboxRepository
}

func NewWriteOffService(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *WriteOffService {
	return &WriteOffService{
		db:           db,
		rdb:          rdb,
		cfg:          cfg,
		writeOffRepo: repository.NewWriteOffRepository(db),
		orderRepo:    repository.NewOrderRepository(db),
		userRepo:     repository.NewUserRepository(db),
		salesRepo:    repository.NewSalesRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
	}
}

// IssueCode 买家为自己的待核销订单项生成核销码（二维码载荷）
// 码在 Redis 里缓存半个时效：反复刷码页不重复生成，
// 复用的码至少还剩一半有效期
func (s *WriteOffService) IssueCode(ctx context.Context, userID int64, orderItemID string) (string, error) {
	item, err := s.writeOffRepo.GetByOrderItemID(ctx, orderItemID)
	if err != nil {
		if err == repository.ErrWriteOffNotFound {
			return "", errs.New(errs.KindNotFound, "核销单不存在")
		}
		return "", err
	}
	if item.UserID != userID {
		return "", errs.New(errs.KindForbidden, "无权操作该核销单")
	}
	if item.Status != model.WriteOffStatusPending {
		return "", errs.New(errs.KindConflict, "核销单不在待核销状态")
	}
	if time.Now().After(item.ExpireTime) {
		return "", errs.New(errs.KindExpired, "核销单已过期")
	}

	cacheKey := fmt.Sprintf("writeoff:code:%s", orderItemID)
	if cached, ok, err := cache.Get(ctx, s.rdb, cacheKey); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("[WriteOffService] 读核销码缓存失败: %v", err)
	}

	ttl := time.Duration(s.cfg.Business.WriteOffCodeTTLSecs) * time.Second
	expire := time.Now().Add(ttl).Unix()
	code, err := seccrypt.Encrypt(fmt.Sprintf("%d,%s,%d", userID, orderItemID, expire), seccrypt.SeedWriteOffCode)
	if err != nil {
		return "", err
	}
	if err := cache.SetEX(ctx, s.rdb, cacheKey, code, ttl/2); err != nil {
		log.Printf("[WriteOffService] 写核销码缓存失败: %v", err)
	}
	return code, nil
}

// Redeem 操作员扫码核销
func (s *WriteOffService) Redeem(ctx context.Context, operatorUID int64, code string) error {
	buyerUID, orderItemID, err := parseWriteOffCode(code)
	if err != nil {
		return err
	}

	redeemLock := lock.NewRedeemLock(s.rdb, orderItemID)
	if err := redeemLock.Lock(ctx, 100*time.Millisecond, 10); err != nil {
		return errs.Wrap(errs.KindConflict, "核销处理中，请稍后重试", err)
	}
	defer func() {
		if err := redeemLock.Unlock(context.Background()); err != nil {
			log.Printf("[WriteOffService] 释放核销锁失败: %v", err)
		}
	}()

	return s.db.Transaction(func(tx *gorm.DB) error {
		item, err := s.writeOffRepo.GetByOrderItemIDForUpdate(ctx, tx, orderItemID)
		if err != nil {
			if err == repository.ErrWriteOffNotFound {
				return errs.New(errs.KindNotFound, "核销单不存在")
			}
			return err
		}
		if item.UserID != buyerUID {
			return errs.New(errs.KindForbidden, "核销码与核销单不匹配")
		}
		if item.Status != model.WriteOffStatusPending {
			return errs.New(errs.KindConflict, "核销单不在待核销状态")
		}
		if time.Now().After(item.ExpireTime) {
			return errs.New(errs.KindExpired, "核销单已过期")
		}

		operator, err := s.userRepo.GetByID(ctx, operatorUID)
		if err != nil {
			if err == repository.ErrUserNotFound {
				return errs.New(errs.KindForbidden, "操作员不存在")
			}
			return err
		}
		if !operator.HasRole(model.RoleWriteOff) {
			return errs.New(errs.KindForbidden, "操作员没有核销权限")
		}
		emp, err := s.salesRepo.GetStoreEmployee(ctx, operatorUID, item.StoreCode)
		if err != nil {
			return err
		}
		if emp == nil {
			return errs.New(errs.KindForbidden, "操作员不属于该门店")
		}

		if err := s.writeOffRepo.MarkSuccess(ctx, tx, orderItemID, operatorUID); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateItemStatus(ctx, tx, orderItemID, model.ItemStatusComplete); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.WriteOffEvent, model.EventItemWrittenOff, orderItemID, item)
	})
}

// ListByOrderSn 订单下的核销单
func (s *WriteOffService) ListByOrderSn(ctx context.Context, userID int64, orderSn string) ([]*model.WriteOffItem, error) {
	order, err := s.orderRepo.GetByOrderSn(ctx, orderSn)
	if err != nil {
		if err == repository.ErrOrderNotFound {
			return nil, errs.New(errs.KindNotFound, "订单不存在")
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, errs.New(errs.KindForbidden, "无权查看该订单")
	}
	return s.writeOffRepo.ListByOrderSn(ctx, nil, orderSn)
}

// parseWriteOffCode 解核销码："uid,订单项id,过期时间戳"
func parseWriteOffCode(code string) (int64, string, error) {
	plain, err := seccrypt.Decrypt(code, seccrypt.SeedWriteOffCode)
	if err != nil {
		return 0, "", errs.New(errs.KindBadRequest, "核销码无效")
	}
	parts := strings.Split(plain, ",")
	if len(parts) != 3 {
		return 0, "", errs.New(errs.KindBadRequest, "核销码无效")
	}
	uid, err1 := strconv.ParseInt(parts[0], 10, 64)
	expire, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || parts[1] == "" {
		return 0, "", errs.New(errs.KindBadRequest, "核销码无效")
	}
	if time.Now().Unix() > expire {
		return 0, "", errs.New(errs.KindExpired, "核销码已过期")
	}
	return uid, parts[1], nil
}
