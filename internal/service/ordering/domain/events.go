package domain

import "time"

// OrderStateChanged 是订单每次状态流转后发布的事件，
// 供通知侧与后厨看板消费。
type OrderStateChanged struct {
	TraceID          string     `json:"traceId,omitempty"`
	OrderID          string     `json:"orderId"`
	State            State      `json:"state"`
	TotalPrice       string     `json:"totalPrice"`
	EstimatedReadyAt *time.Time `json:"estimatedReadyAt,omitempty"`
	OccurredAt       time.Time  `json:"occurredAt"`
}

// NewOrderStateChanged 从订单当前快照构造事件
func NewOrderStateChanged(o *Order) *OrderStateChanged {
	return &OrderStateChanged{
		OrderID:          o.ID,
		State:            o.State,
		TotalPrice:       o.TotalPrice.StringFixed(2),
		EstimatedReadyAt: o.EstimatedReadyAt,
		OccurredAt:       time.Now(),
	}
}
