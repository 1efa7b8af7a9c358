package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	ID               string          `gorm:"primaryKey;size:36"`
	State            string          `gorm:"size:20;index"`
	Discount         decimal.Decimal `gorm:"type:decimal(10,2)"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(10,2)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	EstimatedReadyAt *time.Time

	Lines []OrderLineModel `gorm:"foreignKey:OrderID"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderLineModel 对应数据库中的 order_lines 表
type OrderLineModel struct {
	ID        string          `gorm:"primaryKey;size:36"`
	OrderID   string          `gorm:"size:36;index"`
	ProductID string          `gorm:"size:36"`
	ComboID   string          `gorm:"size:36"`
	Quantity  int
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2)"`
	Discount  decimal.Decimal `gorm:"type:decimal(10,2)"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2)"`
	Gift      bool
	// Position 保证行的插入顺序可重现
	Position int
}

// TableName 指定 GORM 应该使用的表名
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ProductModel 对应 products 表
type ProductModel struct {
	ID        string          `gorm:"primaryKey;size:36"`
	Name      string          `gorm:"size:100"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2)"`
	Available bool

	Ingredients []ProductIngredientModel `gorm:"foreignKey:ProductID"`
}

func (ProductModel) TableName() string {
	return "products"
}

// ProductIngredientModel 是 product → ingredient 的用量关联表
type ProductIngredientModel struct {
	ProductID       string `gorm:"primaryKey;size:36"`
	IngredientID    string `gorm:"primaryKey;size:36"`
	QuantityPerUnit int
}

func (ProductIngredientModel) TableName() string {
	return "product_ingredients"
}

// ComboModel 对应 combos 表
type ComboModel struct {
	ID    string          `gorm:"primaryKey;size:36"`
	Name  string          `gorm:"size:100"`
	Price decimal.Decimal `gorm:"type:decimal(10,2)"`

	Products []ComboProductModel `gorm:"foreignKey:ComboID"`
}

func (ComboModel) TableName() string {
	return "combos"
}

// ComboProductModel 是 combo → product 的数量关联表
type ComboProductModel struct {
	ComboID         string `gorm:"primaryKey;size:36"`
	ProductID       string `gorm:"primaryKey;size:36"`
	QuantityPerUnit int
}

func (ComboProductModel) TableName() string {
	return "combo_products"
}

// IngredientModel 对应 ingredients 表。
// Stock 列由 SQL 台账实现维护；Redis 台账部署下该列仅作初始导入源。
type IngredientModel struct {
	ID    string `gorm:"primaryKey;size:36"`
	Name  string `gorm:"size:100"`
	Stock int
}

func (IngredientModel) TableName() string {
	return "ingredients"
}

// PromotionModel 对应 promotions 表。
// 目标/赠品集合按逗号分隔存储，读取时拆分为切片。
type PromotionModel struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	Name              string `gorm:"size:100"`
	Active            bool
	ValidDays         string `gorm:"size:30"` // 逗号分隔的星期序数，空 = 每天
	Kind              string `gorm:"size:20"`
	TargetProducts    string `gorm:"type:text"`
	TargetCombos      string `gorm:"type:text"`
	Threshold         decimal.Decimal `gorm:"type:decimal(10,2)"`
	DiscountAmount    decimal.Decimal `gorm:"type:decimal(10,2)"`
	Percentage        decimal.Decimal `gorm:"type:decimal(5,2)"`
	BuyQuantity       int
	PayQuantity       int
	FreeProducts      string `gorm:"type:text"`
	FreeCombos        string `gorm:"type:text"`
	OneFreePerTrigger bool
	RuleExpression    string `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (PromotionModel) TableName() string {
	return "promotions"
}
