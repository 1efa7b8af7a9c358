package infrastructure

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unieats/internal/service/ordering/domain"
)

func TestOrderModelRoundTrip(t *testing.T) {
	eta := time.Date(2025, 9, 1, 12, 30, 0, 0, time.UTC)
	order := &domain.Order{
		ID:    "ord-1",
		State: domain.StateInPreparation,
		Lines: []*domain.OrderLine{
			{ID: "l-1", ProductID: "latte", Quantity: 2, UnitPrice: decimal.RequireFromString("3.50"), Total: decimal.RequireFromString("7.00")},
			{ID: "l-2", ComboID: "breakfast", Quantity: 1, UnitPrice: decimal.RequireFromString("8.00"), Total: decimal.RequireFromString("8.00")},
			{ID: "l-3", ProductID: "muffin", Quantity: 1, Gift: true},
		},
		Discount:         decimal.RequireFromString("1.00"),
		TotalPrice:       decimal.RequireFromString("14.00"),
		EstimatedReadyAt: &eta,
	}

	model := FromDomainOrder(order)
	require.Len(t, model.Lines, 3)
	// 行序通过 Position 持久化，读取时按该列排序还原
	for i, l := range model.Lines {
		assert.Equal(t, i, l.Position)
		assert.Equal(t, "ord-1", l.OrderID)
	}

	back := ToDomainOrder(model)
	assert.Equal(t, order.ID, back.ID)
	assert.Equal(t, order.State, back.State)
	require.Len(t, back.Lines, 3)
	assert.Equal(t, "latte", back.Lines[0].ProductID)
	assert.Equal(t, "breakfast", back.Lines[1].ComboID)
	assert.True(t, back.Lines[2].Gift)
	assert.True(t, order.TotalPrice.Equal(back.TotalPrice))
	require.NotNil(t, back.EstimatedReadyAt)
	assert.True(t, eta.Equal(*back.EstimatedReadyAt))
}

func TestToDomainPromotionSplitsCSVColumns(t *testing.T) {
	model := &PromotionModel{
		ID:             7,
		Name:           "weekday bundle",
		Active:         true,
		Kind:           string(domain.KindBuyGiveFree),
		ValidDays:      "1,2,3",
		TargetProducts: "latte, espresso",
		FreeProducts:   "muffin",
		FreeCombos:     "",
	}

	promo := ToDomainPromotion(model)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday}, promo.ValidDays)
	assert.Equal(t, []string{"latte", "espresso"}, promo.TargetProductIDs)
	assert.Equal(t, []string{"muffin"}, promo.FreeProductIDs)
	assert.Nil(t, promo.FreeComboIDs)
}

func TestSplitWeekdaysIgnoresMalformedEntries(t *testing.T) {
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, splitWeekdays("0,9,x,6"))
	assert.Nil(t, splitWeekdays(""))
}

func TestToDomainProductBuildsIngredientMap(t *testing.T) {
	model := &ProductModel{
		ID:        "latte",
		Name:      "Latte",
		Price:     decimal.RequireFromString("3.50"),
		Available: true,
		Ingredients: []ProductIngredientModel{
			{ProductID: "latte", IngredientID: "espresso-shot", QuantityPerUnit: 2},
			{ProductID: "latte", IngredientID: "milk", QuantityPerUnit: 1},
		},
	}

	p := ToDomainProduct(model)
	assert.Equal(t, map[string]int{"espresso-shot": 2, "milk": 1}, p.Ingredients)
}
