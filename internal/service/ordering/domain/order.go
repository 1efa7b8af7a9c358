package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine 是订单中的一行：指向一个商品或一个套餐（二选一），
// 带数量、单价与行级折扣。金额统一为两位小数，四舍五入采用 half-up。
type OrderLine struct {
	ID        string
	ProductID string // 与 ComboID 互斥；赠品行同样只指向其一
	ComboID   string
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal // 派生值: UnitPrice × Quantity − Discount
	Gift      bool            // 由促销插入的零价赠品行
}

// Recompute 重算本行的派生总价。
// 这里不做负数钳制：折扣超过行金额属于调用方违约，必须在上游被拒绝。
func (l *OrderLine) Recompute() {
	l.Total = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Sub(l.Discount).Round(2)
}

// Validate 校验行数据的基本约束
func (l *OrderLine) Validate() error {
	if l.ProductID == "" && l.ComboID == "" {
		return NewInvalidArgument("order line must reference a product or a combo")
	}
	if l.ProductID != "" && l.ComboID != "" {
		return NewInvalidArgument("order line cannot reference both a product and a combo")
	}
	if l.Quantity <= 0 {
		return NewInvalidArgument("order line quantity must be positive")
	}
	if l.Discount.IsNegative() {
		return NewInvalidArgument("order line discount cannot be negative")
	}
	return nil
}

// Order 是订单聚合的根实体。行集合除促销插入赠品与整体替换外只增不减，
// 总价在任何行变更之后立即重算，从不独立赋值。
type Order struct {
	ID               string
	Lines            []*OrderLine
	State            State
	Discount         decimal.Decimal // 订单级折扣，仅由满减类促销写入
	TotalPrice       decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
	EstimatedReadyAt *time.Time
}

// NewOrder 工厂函数：以确认态创建订单并立即计算总价
func NewOrder(id string, lines []*OrderLine) (*Order, error) {
	if id == "" {
		return nil, NewInvalidArgument("order id is required")
	}
	if len(lines) == 0 {
		return nil, NewInvalidArgument("order must contain at least one line")
	}
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		l.Recompute()
	}
	o := &Order{
		ID:        id,
		Lines:     lines,
		State:     StateConfirmed,
		Discount:  decimal.Zero,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	o.RecomputeTotal()
	return o, nil
}

// RecomputeTotal 从行数据重算订单总价: Σ(行总价) − 订单级折扣。
// 所有行变更与促销应用之后都必须调用，这是聚合的核心不变式。
func (o *Order) RecomputeTotal() {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.Total)
	}
	o.TotalPrice = sum.Sub(o.Discount).Round(2)
	o.UpdatedAt = time.Now()
}

// AppendLine 追加一行（用于促销插入赠品）并重算总价
func (o *Order) AppendLine(line *OrderLine) {
	line.Recompute()
	o.Lines = append(o.Lines, line)
	o.RecomputeTotal()
}

// ReplaceLines 整体替换行集合（手工修改订单），重算每行与总价
func (o *Order) ReplaceLines(lines []*OrderLine) error {
	if len(lines) == 0 {
		return NewInvalidArgument("order must contain at least one line")
	}
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return err
		}
		l.Recompute()
	}
	o.Lines = lines
	o.RecomputeTotal()
	return nil
}

// AddOrderDiscount 叠加订单级折扣（满减类促销专用）并重算总价
func (o *Order) AddOrderDiscount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return NewInvalidArgument("order discount cannot be negative")
	}
	o.Discount = o.Discount.Add(amount)
	o.RecomputeTotal()
	return nil
}

// StartPreparation 进入制作状态并记录预计完成时间，仅允许从确认态发起
func (o *Order) StartPreparation(estimatedReadyAt time.Time) error {
	if o.State != StateConfirmed {
		return NewInvalidTransition(o.State, "start preparation for")
	}
	o.State = StateInPreparation
	o.EstimatedReadyAt = &estimatedReadyAt
	o.UpdatedAt = time.Now()
	return nil
}

// MarkReady 制作完成，仅允许从制作中发起
func (o *Order) MarkReady() error {
	if o.State != StateInPreparation {
		return NewInvalidTransition(o.State, "mark ready")
	}
	o.State = StateReady
	o.UpdatedAt = time.Now()
	return nil
}

// Pickup 顾客取餐，订单完结，仅允许从待取餐发起
func (o *Order) Pickup() error {
	if o.State != StateReady {
		return NewInvalidTransition(o.State, "pick up")
	}
	o.State = StateCompleted
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel 取消订单。制作完成之后（READY/COMPLETED）不再允许取消。
func (o *Order) Cancel() error {
	if o.State != StateConfirmed && o.State != StateInPreparation {
		return NewInvalidTransition(o.State, "cancel")
	}
	o.State = StateCanceled
	o.UpdatedAt = time.Now()
	return nil
}

// HasGiftLineIn 判断订单上是否已存在指向给定赠品集合的赠品行
func (o *Order) HasGiftLineIn(productIDs, comboIDs map[string]struct{}) bool {
	for _, l := range o.Lines {
		if !l.Gift {
			continue
		}
		if _, ok := productIDs[l.ProductID]; ok && l.ProductID != "" {
			return true
		}
		if _, ok := comboIDs[l.ComboID]; ok && l.ComboID != "" {
			return true
		}
	}
	return false
}
