package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionKind 标识促销规则的计算方式，用于 Apply 的分发。
// 以带标签的变体代替继承层次：已知的四种变体集合是封闭的。
type PromotionKind string

const (
	KindThreshold   PromotionKind = "THRESHOLD"     // 满减：订单总价达到门槛立减
	KindPercentage  PromotionKind = "PERCENTAGE"    // 按行打折
	KindBuyXPayY    PromotionKind = "BUY_X_PAY_Y"   // 买X付Y
	KindBuyGiveFree PromotionKind = "BUY_GIVE_FREE" // 买赠
)

// Promotion 是促销规则。规则本身独立于任何订单，评估过程只读，
// 多个订单可以并发地对同一条规则求值。
type Promotion struct {
	ID     int64
	Name   string
	Active bool
	// ValidDays 为空表示每天生效
	ValidDays []time.Weekday
	Kind      PromotionKind

	// 目标集合：Percentage/BuyXPayY 作用的行，BuyGiveFree 的触发集合
	TargetProductIDs []string
	TargetComboIDs   []string

	// Threshold 专用
	Threshold      decimal.Decimal
	DiscountAmount decimal.Decimal

	// Percentage 专用，(0, 100] 区间
	Percentage decimal.Decimal

	// BuyXPayY 专用
	BuyQuantity int
	PayQuantity int

	// BuyGiveFree 专用
	FreeProductIDs    []string
	FreeComboIDs      []string
	OneFreePerTrigger bool

	// RuleExpression 是可选的 CEL 资格表达式，由规则引擎在通用守卫
	// 之外额外评估；为空表示无附加条件
	RuleExpression string
}

// Validate 校验规则配置本身是否合法，非法配置以 InvalidArgument 上抛
func (p *Promotion) Validate() error {
	switch p.Kind {
	case KindThreshold:
		if p.Threshold.IsNegative() || p.DiscountAmount.IsNegative() {
			return NewInvalidArgument("threshold promotion amounts cannot be negative")
		}
	case KindPercentage:
		if !p.Percentage.IsPositive() || p.Percentage.GreaterThan(decimal.NewFromInt(100)) {
			return NewInvalidArgument("percentage must be in (0, 100]")
		}
	case KindBuyXPayY:
		if p.BuyQuantity <= 0 || p.PayQuantity <= 0 || p.PayQuantity >= p.BuyQuantity {
			return NewInvalidArgument("buy-x-pay-y requires 0 < payQuantity < buyQuantity")
		}
	case KindBuyGiveFree:
		if len(p.FreeProductIDs) == 0 && len(p.FreeComboIDs) == 0 {
			return NewInvalidArgument("buy-give-free promotion requires a free set")
		}
	default:
		return NewInvalidArgument("unknown promotion kind")
	}
	return nil
}

// AppliesOn 是所有变体共享的通用守卫：
// 规则启用，且生效日为空或包含给定时刻的星期
func (p *Promotion) AppliesOn(at time.Time) bool {
	if !p.Active {
		return false
	}
	if len(p.ValidDays) == 0 {
		return true
	}
	weekday := at.Weekday()
	for _, d := range p.ValidDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// Apply 将规则应用到订单上，返回是否产生了变更。
// 通用守卫不通过时是 no-op；调用方保证每条启用规则在一轮评估中
// 恰好应用一次，并以规则 ID 升序保持确定性。
func (p *Promotion) Apply(o *Order, at time.Time) bool {
	if !p.AppliesOn(at) {
		return false
	}
	switch p.Kind {
	case KindThreshold:
		return p.applyThreshold(o)
	case KindPercentage:
		return p.applyPercentage(o)
	case KindBuyXPayY:
		return p.applyBuyXPayY(o)
	case KindBuyGiveFree:
		return p.applyBuyGiveFree(o)
	}
	return false
}

// matchesLine 判断行是否落在目标集合内
func (p *Promotion) matchesLine(l *OrderLine) bool {
	if l.ProductID != "" {
		for _, id := range p.TargetProductIDs {
			if id == l.ProductID {
				return true
			}
		}
	}
	if l.ComboID != "" {
		for _, id := range p.TargetComboIDs {
			if id == l.ComboID {
				return true
			}
		}
	}
	return false
}

// applyThreshold 订单总价达到门槛（含边界）时叠加一次订单级折扣
func (p *Promotion) applyThreshold(o *Order) bool {
	if o.TotalPrice.LessThan(p.Threshold) {
		return false
	}
	o.Discount = o.Discount.Add(p.DiscountAmount)
	o.RecomputeTotal()
	return true
}

// applyPercentage 对目标集合内的每一行按当前行总价追加折扣，
// 全部行处理完后重算订单总价
func (p *Promotion) applyPercentage(o *Order) bool {
	applied := false
	hundred := decimal.NewFromInt(100)
	for _, l := range o.Lines {
		if !p.matchesLine(l) {
			continue
		}
		cut := l.Total.Mul(p.Percentage).Div(hundred).Round(2)
		l.Discount = l.Discount.Add(cut)
		l.Recompute()
		applied = true
	}
	if applied {
		o.RecomputeTotal()
	}
	return applied
}

// applyBuyXPayY 对目标集合内每一行按整除分组计算免费件数：
// groups = ⌊qty / buyQty⌋, freeUnits = groups × (buyQty − payQty)。
// 数量不足一组时整除自然得 0，无折扣。
func (p *Promotion) applyBuyXPayY(o *Order) bool {
	applied := false
	for _, l := range o.Lines {
		if !p.matchesLine(l) {
			continue
		}
		groups := l.Quantity / p.BuyQuantity
		freeUnits := groups * (p.BuyQuantity - p.PayQuantity)
		if freeUnits == 0 {
			continue
		}
		cut := l.UnitPrice.Mul(decimal.NewFromInt(int64(freeUnits))).Round(2)
		l.Discount = l.Discount.Add(cut)
		l.Recompute()
		applied = true
	}
	if applied {
		o.RecomputeTotal()
	}
	return applied
}

// applyBuyGiveFree 根据触发集合内的购买数量插入赠品行。
// oneFreePerTrigger 为假时只赠一份，且订单上已有赠品行则不再赠送，
// 防止重复评估产生重复赠品。每个赠品集合里的套餐与单品各自独立获得
// freebies 份，而不是在多个赠品之间摊分。
func (p *Promotion) applyBuyGiveFree(o *Order) bool {
	triggerCount := 0
	for _, l := range o.Lines {
		if p.matchesLine(l) {
			triggerCount += l.Quantity
		}
	}
	if triggerCount == 0 {
		return false
	}

	freeProducts := make(map[string]struct{}, len(p.FreeProductIDs))
	for _, id := range p.FreeProductIDs {
		freeProducts[id] = struct{}{}
	}
	freeCombos := make(map[string]struct{}, len(p.FreeComboIDs))
	for _, id := range p.FreeComboIDs {
		freeCombos[id] = struct{}{}
	}

	if !p.OneFreePerTrigger && o.HasGiftLineIn(freeProducts, freeCombos) {
		return false
	}

	freebies := 1
	if p.OneFreePerTrigger {
		freebies = triggerCount
	}

	for _, comboID := range p.FreeComboIDs {
		o.AppendLine(&OrderLine{
			ID:        uuid.New().String(),
			ComboID:   comboID,
			Quantity:  freebies,
			UnitPrice: decimal.Zero,
			Discount:  decimal.Zero,
			Gift:      true,
		})
	}
	for _, productID := range p.FreeProductIDs {
		o.AppendLine(&OrderLine{
			ID:        uuid.New().String(),
			ProductID: productID,
			Quantity:  freebies,
			UnitPrice: decimal.Zero,
			Discount:  decimal.Zero,
			Gift:      true,
		})
	}
	return true
}
