package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"unieats/internal/service/ordering/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 订单仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 保存订单聚合。行集合整体替换：先清掉旧行再写入新行，
// 避免依赖 ORM 级联行为（关联关系由仓储显式维护）。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		head := *model
		head.Lines = nil
		if err := tx.Save(&head).Error; err != nil {
			return errors.Wrap(err, "failed to save order row")
		}
		if err := tx.Where("order_id = ?", model.ID).Delete(&OrderLineModel{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear order lines")
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return errors.Wrap(err, "failed to insert order lines")
			}
		}
		return nil
	})
}

// FindByID 按 ID 加载订单及其行（按插入位置排序）
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("order %s", id)
		}
		return nil, errors.Wrap(err, "failed to load order")
	}
	return ToDomainOrder(&model), nil
}

// FindAll 按创建时间排序加载全部订单
func (r *GormOrderRepository) FindAll(ctx context.Context) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, ToDomainOrder(&models[i]))
	}
	return orders, nil
}

// Delete 删除订单与其全部行。显式级联：先删从表行，再删主表行。
func (r *GormOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&OrderLineModel{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete order lines")
		}
		result := tx.Delete(&OrderModel{}, "id = ?", id)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to delete order")
		}
		if result.RowsAffected == 0 {
			return domain.NotFoundf("order %s", id)
		}
		return nil
	})
}
