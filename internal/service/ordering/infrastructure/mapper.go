package infrastructure

import (
	"strconv"
	"strings"
	"time"

	"unieats/internal/service/ordering/domain"
)

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	lines := make([]*domain.OrderLine, 0, len(model.Lines))
	for i := range model.Lines {
		lines = append(lines, toDomainLine(&model.Lines[i]))
	}
	return &domain.Order{
		ID:               model.ID,
		Lines:            lines,
		State:            domain.State(model.State),
		Discount:         model.Discount,
		TotalPrice:       model.TotalPrice,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
		EstimatedReadyAt: model.EstimatedReadyAt,
	}
}

func toDomainLine(model *OrderLineModel) *domain.OrderLine {
	return &domain.OrderLine{
		ID:        model.ID,
		ProductID: model.ProductID,
		ComboID:   model.ComboID,
		Quantity:  model.Quantity,
		UnitPrice: model.UnitPrice,
		Discount:  model.Discount,
		Total:     model.Total,
		Gift:      model.Gift,
	}
}

// FromDomainOrder 将领域模型转换为数据库模型（用于插入或更新）
func FromDomainOrder(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}
	lines := make([]OrderLineModel, 0, len(o.Lines))
	for i, l := range o.Lines {
		lines = append(lines, OrderLineModel{
			ID:        l.ID,
			OrderID:   o.ID,
			ProductID: l.ProductID,
			ComboID:   l.ComboID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
			Total:     l.Total,
			Gift:      l.Gift,
			Position:  i,
		})
	}
	return &OrderModel{
		ID:               o.ID,
		State:            string(o.State),
		Discount:         o.Discount,
		TotalPrice:       o.TotalPrice,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		EstimatedReadyAt: o.EstimatedReadyAt,
		Lines:            lines,
	}
}

// ToDomainProduct 将商品模型及其用量关联转换为领域模型
func ToDomainProduct(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}
	ingredients := make(map[string]int, len(model.Ingredients))
	for _, pi := range model.Ingredients {
		ingredients[pi.IngredientID] = pi.QuantityPerUnit
	}
	return &domain.Product{
		ID:          model.ID,
		Name:        model.Name,
		Price:       model.Price,
		Available:   model.Available,
		Ingredients: ingredients,
	}
}

// ToDomainCombo 将套餐模型及其包含关系转换为领域模型
func ToDomainCombo(model *ComboModel) *domain.Combo {
	if model == nil {
		return nil
	}
	products := make(map[string]int, len(model.Products))
	for _, cp := range model.Products {
		products[cp.ProductID] = cp.QuantityPerUnit
	}
	return &domain.Combo{
		ID:       model.ID,
		Name:     model.Name,
		Price:    model.Price,
		Products: products,
	}
}

// ToDomainPromotion 将促销模型转换为领域模型，
// 逗号分隔的集合列在此拆分为切片
func ToDomainPromotion(model *PromotionModel) *domain.Promotion {
	if model == nil {
		return nil
	}
	return &domain.Promotion{
		ID:                model.ID,
		Name:              model.Name,
		Active:            model.Active,
		ValidDays:         splitWeekdays(model.ValidDays),
		Kind:              domain.PromotionKind(model.Kind),
		TargetProductIDs:  splitCSV(model.TargetProducts),
		TargetComboIDs:    splitCSV(model.TargetCombos),
		Threshold:         model.Threshold,
		DiscountAmount:    model.DiscountAmount,
		Percentage:        model.Percentage,
		BuyQuantity:       model.BuyQuantity,
		PayQuantity:       model.PayQuantity,
		FreeProductIDs:    splitCSV(model.FreeProducts),
		FreeComboIDs:      splitCSV(model.FreeCombos),
		OneFreePerTrigger: model.OneFreePerTrigger,
		RuleExpression:    model.RuleExpression,
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitWeekdays(s string) []time.Weekday {
	var days []time.Weekday
	for _, part := range splitCSV(s) {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days = append(days, time.Weekday(n))
	}
	return days
}
