package application

import (
	"time"

	"unieats/internal/service/ordering/domain"
)

// CreateOrderLineRequest 是创建订单时的一行输入：
// productId 与 comboId 二选一；price/discount 省略时取目录价与零折扣
type CreateOrderLineRequest struct {
	ProductID string `json:"productId,omitempty"`
	ComboID   string `json:"comboId,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price,omitempty"`
	Discount  string `json:"discount,omitempty"`
}

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	Lines []CreateOrderLineRequest `json:"lines"`
}

// UpdateOrderRequest 整体替换行集合并重设订单级折扣
type UpdateOrderRequest struct {
	Lines    []CreateOrderLineRequest `json:"lines"`
	Discount string                   `json:"discount,omitempty"`
}

// StartPreparationRequest 携带预计完成时间
type StartPreparationRequest struct {
	EstimatedReadyAt time.Time `json:"estimatedReadyAt"`
}

// OrderLineResponse 是行的外部视图
type OrderLineResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId,omitempty"`
	ComboID   string `json:"comboId,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Discount  string `json:"discount"`
	Total     string `json:"total"`
	Gift      bool   `json:"gift,omitempty"`
}

// OrderResponse 是订单的外部视图
type OrderResponse struct {
	ID               string              `json:"id"`
	State            domain.State        `json:"state"`
	Lines            []OrderLineResponse `json:"lines"`
	Discount         string              `json:"discount"`
	TotalPrice       string              `json:"totalPrice"`
	CreatedAt        time.Time           `json:"createdAt"`
	EstimatedReadyAt *time.Time          `json:"estimatedReadyAt,omitempty"`
}

// PromotionResponse 是促销规则的外部视图
type PromotionResponse struct {
	ID   int64                `json:"id"`
	Name string               `json:"name"`
	Kind domain.PromotionKind `json:"kind"`
}

// AvailableCatalogResponse 列出当前原料充足、可下单的商品与套餐
type AvailableCatalogResponse struct {
	ProductIDs []string `json:"productIds"`
	ComboIDs   []string `json:"comboIds"`
}

// ToOrderResponse 将聚合转换为外部视图
func ToOrderResponse(o *domain.Order) *OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			ComboID:   l.ComboID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Discount:  l.Discount.StringFixed(2),
			Total:     l.Total.StringFixed(2),
			Gift:      l.Gift,
		})
	}
	return &OrderResponse{
		ID:               o.ID,
		State:            o.State,
		Lines:            lines,
		Discount:         o.Discount.StringFixed(2),
		TotalPrice:       o.TotalPrice.StringFixed(2),
		CreatedAt:        o.CreatedAt,
		EstimatedReadyAt: o.EstimatedReadyAt,
	}
}
