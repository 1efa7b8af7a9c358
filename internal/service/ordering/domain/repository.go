package domain

import (
	"context"
	"time"
)

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现。
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindAll(ctx context.Context) ([]*Order, error)
	// Delete 删除订单及其所有行（显式级联清理）
	Delete(ctx context.Context, id string) error
}

// CatalogRepository 提供商品/套餐/原料的只读查询
type CatalogRepository interface {
	FindProductByID(ctx context.Context, id string) (*Product, error)
	FindComboByID(ctx context.Context, id string) (*Combo, error)
	// FindProductsByIDs 批量解析套餐包含的单品
	FindProductsByIDs(ctx context.Context, ids []string) (map[string]*Product, error)
	FindAllProducts(ctx context.Context) ([]*Product, error)
	FindAllCombos(ctx context.Context) ([]*Combo, error)
}

// PromotionRepository 按生效日加载启用的促销规则，
// 实现必须以规则 ID 升序返回以保证评估顺序确定
type PromotionRepository interface {
	FindActiveByWeekday(ctx context.Context, day time.Weekday) ([]*Promotion, error)
}

// InventoryLedger 是原料库存台账的出站端口。
// Reserve 必须全有或全无：任何一项原料会被扣成负数时整体失败，
// 并且不产生任何库存变更。
type InventoryLedger interface {
	IsAvailable(ctx context.Context, ingredientID string) (bool, error)
	Reserve(ctx context.Context, requirements IngredientRequirements) error
	// Release 归还一次预占（取消确认态订单时使用）
	Release(ctx context.Context, requirements IngredientRequirements) error
}

// RuleEngine 评估促销的附加资格表达式
type RuleEngine interface {
	Evaluate(expression string, fact Fact) (bool, error)
}

// Fact 是规则引擎求值时可见的订单快照
type Fact struct {
	OrderTotal float64 `json:"order_total"`
	LineCount  int     `json:"line_count"`
	Weekday    int     `json:"weekday"`
}

// EventProducer 发布订单生命周期事件
type EventProducer interface {
	PublishStateChanged(ctx context.Context, event *OrderStateChanged) error
}

// OrderLocker 对单个订单的状态变更提供互斥：
// 编排层可能被并发调用，同一订单的可变状态必须被串行化
type OrderLocker interface {
	WithLock(ctx context.Context, orderID string, fn func() error) error
}
