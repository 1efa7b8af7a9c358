package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"unieats/internal/service/ordering/domain"
)

// GormCatalogRepository 提供商品/套餐/原料目录的只读查询
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository 创建目录仓储实例
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// FindProductByID 按 ID 加载商品及其原料用量
func (r *GormCatalogRepository) FindProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).Preload("Ingredients").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("product %s", id)
		}
		return nil, errors.Wrap(err, "failed to load product")
	}
	return ToDomainProduct(&model), nil
}

// FindComboByID 按 ID 加载套餐及其包含的单品数量
func (r *GormCatalogRepository) FindComboByID(ctx context.Context, id string) (*domain.Combo, error) {
	var model ComboModel
	err := r.db.WithContext(ctx).Preload("Products").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFoundf("combo %s", id)
		}
		return nil, errors.Wrap(err, "failed to load combo")
	}
	return ToDomainCombo(&model), nil
}

// FindProductsByIDs 批量加载商品（套餐原料展开用）
func (r *GormCatalogRepository) FindProductsByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	if len(ids) == 0 {
		return map[string]*domain.Product{}, nil
	}
	var models []ProductModel
	err := r.db.WithContext(ctx).Preload("Ingredients").Where("id IN ?", ids).Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load products")
	}
	out := make(map[string]*domain.Product, len(models))
	for i := range models {
		out[models[i].ID] = ToDomainProduct(&models[i])
	}
	return out, nil
}

// FindAllProducts 按 ID 排序加载全部商品
func (r *GormCatalogRepository) FindAllProducts(ctx context.Context) ([]*domain.Product, error) {
	var models []ProductModel
	err := r.db.WithContext(ctx).Preload("Ingredients").Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	out := make([]*domain.Product, 0, len(models))
	for i := range models {
		out = append(out, ToDomainProduct(&models[i]))
	}
	return out, nil
}

// FindAllCombos 按 ID 排序加载全部套餐
func (r *GormCatalogRepository) FindAllCombos(ctx context.Context) ([]*domain.Combo, error) {
	var models []ComboModel
	err := r.db.WithContext(ctx).Preload("Products").Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list combos")
	}
	out := make([]*domain.Combo, 0, len(models))
	for i := range models {
		out = append(out, ToDomainCombo(&models[i]))
	}
	return out, nil
}
