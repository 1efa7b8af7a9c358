package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"unieats/internal/service/ordering/domain"
)

// GormPromotionRepository 是促销规则的仓储实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewGormPromotionRepository 创建促销仓储实例
func NewGormPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// FindActiveByWeekday 加载给定星期生效的启用规则。
// 按 ID 升序返回：多条规则叠加时评估顺序必须可复现。
func (r *GormPromotionRepository) FindActiveByWeekday(ctx context.Context, day time.Weekday) ([]*domain.Promotion, error) {
	var models []PromotionModel
	// valid_days 为空表示每天生效；否则要求包含当天序数
	dayToken := fmt.Sprintf("%d", int(day))
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("valid_days = '' OR FIND_IN_SET(?, valid_days) > 0", dayToken).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load active promotions")
	}
	promos := make([]*domain.Promotion, 0, len(models))
	for i := range models {
		p := ToDomainPromotion(&models[i])
		// 配置非法的规则拒绝进入评估，而不是静默跳过具体行为
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, "promotion %d is misconfigured", p.ID)
		}
		promos = append(promos, p)
	}
	return promos, nil
}
