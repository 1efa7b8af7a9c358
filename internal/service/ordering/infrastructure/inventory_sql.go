package infrastructure

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"unieats/internal/service/ordering/domain"
)

// ResourceLocker 抽象出 SQL 台账依赖的互斥原语，
// 生产部署由 ZooKeeper 分布式锁实现
type ResourceLocker interface {
	WithLock(ctx context.Context, resourceID string, fn func() error) error
}

// SQLInventoryLedger 是 InventoryLedger 的 MySQL 实现。
// 单实例 Redis 不可用的部署下使用：预占在一个全局台账锁 + 数据库
// 事务内完成，同样保证全有或全无。
type SQLInventoryLedger struct {
	db     *gorm.DB
	locker ResourceLocker
}

// 所有预占共用一把台账锁：预占涉及的原料集合彼此重叠，按原料分段
// 加锁需要处理死锁排序，全局锁在这个量级的写入下足够
const ledgerLockResource = "ingredient-ledger"

// NewSQLInventoryLedger 创建 SQL 台账实例
func NewSQLInventoryLedger(db *gorm.DB, locker ResourceLocker) *SQLInventoryLedger {
	return &SQLInventoryLedger{db: db, locker: locker}
}

// IsAvailable 判断原料是否还有库存
func (l *SQLInventoryLedger) IsAvailable(ctx context.Context, ingredientID string) (bool, error) {
	var model IngredientModel
	err := l.db.WithContext(ctx).First(&model, "id = ?", ingredientID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to read ingredient stock")
	}
	return model.Stock > 0, nil
}

// Reserve 在台账锁与事务内全有或全无地扣减一组原料
func (l *SQLInventoryLedger) Reserve(ctx context.Context, requirements domain.IngredientRequirements) error {
	if len(requirements) == 0 {
		return nil
	}
	ids := make([]string, 0, len(requirements))
	for id := range requirements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return l.locker.WithLock(ctx, ledgerLockResource, func() error {
		return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var models []IngredientModel
			if err := tx.Where("id IN ?", ids).Find(&models).Error; err != nil {
				return errors.Wrap(err, "failed to load ingredient stocks")
			}
			stocks := make(map[string]int, len(models))
			for _, m := range models {
				stocks[m.ID] = m.Stock
			}
			// 先整体校验，任何一项会变负则整体失败，不产生任何写入
			for _, id := range ids {
				current, ok := stocks[id]
				if !ok || current-requirements[id] < 0 {
					return domain.NewInsufficientStock(id)
				}
			}
			for _, id := range ids {
				err := tx.Model(&IngredientModel{}).
					Where("id = ?", id).
					Update("stock", gorm.Expr("stock - ?", requirements[id])).Error
				if err != nil {
					return errors.Wrapf(err, "failed to decrement stock for %s", id)
				}
			}
			return nil
		})
	})
}

// Release 归还一次预占
func (l *SQLInventoryLedger) Release(ctx context.Context, requirements domain.IngredientRequirements) error {
	if len(requirements) == 0 {
		return nil
	}
	return l.locker.WithLock(ctx, ledgerLockResource, func() error {
		return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for id, qty := range requirements {
				err := tx.Model(&IngredientModel{}).
					Where("id = ?", id).
					Update("stock", gorm.Expr("stock + ?", qty)).Error
				if err != nil {
					return errors.Wrapf(err, "failed to restore stock for %s", id)
				}
			}
			return nil
		})
	})
}
