package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestOrder(t *testing.T, lines ...*OrderLine) *Order {
	t.Helper()
	o, err := NewOrder("order-1", lines)
	require.NoError(t, err)
	return o
}

func productLine(productID string, qty int, price string) *OrderLine {
	return &OrderLine{
		ID:        "line-" + productID,
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: dec(price),
		Discount:  decimal.Zero,
	}
}

func TestNewOrderComputesTotal(t *testing.T) {
	o := newTestOrder(t,
		productLine("latte", 2, "4.50"),
		productLine("bagel", 1, "3.25"),
	)

	assert.Equal(t, StateConfirmed, o.State)
	assert.True(t, o.TotalPrice.Equal(dec("12.25")), "got %s", o.TotalPrice)
}

func TestNewOrderRejectsInvalidLines(t *testing.T) {
	tests := []struct {
		name string
		line *OrderLine
	}{
		{"no reference", &OrderLine{ID: "l", Quantity: 1, UnitPrice: dec("1.00")}},
		{"both references", &OrderLine{ID: "l", ProductID: "p", ComboID: "c", Quantity: 1, UnitPrice: dec("1.00")}},
		{"zero quantity", &OrderLine{ID: "l", ProductID: "p", Quantity: 0, UnitPrice: dec("1.00")}},
		{"negative discount", &OrderLine{ID: "l", ProductID: "p", Quantity: 1, UnitPrice: dec("1.00"), Discount: dec("-0.01")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder("order-1", []*OrderLine{tt.line})
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestTotalInvariantAfterEveryMutation(t *testing.T) {
	o := newTestOrder(t, productLine("latte", 3, "4.00"))

	checkInvariant := func() {
		t.Helper()
		sum := decimal.Zero
		for _, l := range o.Lines {
			sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Sub(l.Discount))
		}
		assert.True(t, o.TotalPrice.Equal(sum.Sub(o.Discount).Round(2)),
			"total %s != recomputed %s", o.TotalPrice, sum.Sub(o.Discount))
	}
	checkInvariant()

	o.AppendLine(productLine("muffin", 2, "2.50"))
	checkInvariant()

	require.NoError(t, o.AddOrderDiscount(dec("1.00")))
	checkInvariant()

	require.NoError(t, o.ReplaceLines([]*OrderLine{productLine("latte", 1, "4.00")}))
	checkInvariant()
}

func TestReplaceLinesRejectsEmpty(t *testing.T) {
	o := newTestOrder(t, productLine("latte", 1, "4.00"))
	assert.ErrorIs(t, o.ReplaceLines(nil), ErrInvalidArgument)
}

func TestStateMachineHappyPath(t *testing.T) {
	o := newTestOrder(t, productLine("latte", 1, "4.00"))
	eta := time.Now().Add(10 * time.Minute)

	require.NoError(t, o.StartPreparation(eta))
	assert.Equal(t, StateInPreparation, o.State)
	require.NotNil(t, o.EstimatedReadyAt)
	assert.True(t, o.EstimatedReadyAt.Equal(eta))

	require.NoError(t, o.MarkReady())
	assert.Equal(t, StateReady, o.State)

	require.NoError(t, o.Pickup())
	assert.Equal(t, StateCompleted, o.State)
	assert.True(t, o.State.IsTerminal())
}

func TestStateMachineRejectsBackEdges(t *testing.T) {
	eta := time.Now().Add(10 * time.Minute)

	o := newTestOrder(t, productLine("latte", 1, "4.00"))
	// Confirmed 状态下只有 StartPreparation 与 Cancel 合法
	assert.ErrorIs(t, o.MarkReady(), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.Pickup(), ErrInvalidStateTransition)

	require.NoError(t, o.StartPreparation(eta))
	assert.ErrorIs(t, o.StartPreparation(eta), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.Pickup(), ErrInvalidStateTransition)

	require.NoError(t, o.MarkReady())
	assert.ErrorIs(t, o.StartPreparation(eta), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.MarkReady(), ErrInvalidStateTransition)

	require.NoError(t, o.Pickup())
	assert.ErrorIs(t, o.StartPreparation(eta), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.MarkReady(), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.Pickup(), ErrInvalidStateTransition)
}

func TestCancelAllowedBeforeReady(t *testing.T) {
	o := newTestOrder(t, productLine("latte", 1, "4.00"))
	require.NoError(t, o.Cancel())
	assert.Equal(t, StateCanceled, o.State)

	o = newTestOrder(t, productLine("latte", 1, "4.00"))
	require.NoError(t, o.StartPreparation(time.Now()))
	require.NoError(t, o.Cancel())
	assert.Equal(t, StateCanceled, o.State)
}

func TestCancelForbiddenFromReadyOnwards(t *testing.T) {
	o := newTestOrder(t, productLine("latte", 1, "4.00"))
	require.NoError(t, o.StartPreparation(time.Now()))
	require.NoError(t, o.MarkReady())

	assert.ErrorIs(t, o.Cancel(), ErrInvalidStateTransition)
	assert.Equal(t, StateReady, o.State, "failed cancel must not advance state")

	require.NoError(t, o.Pickup())
	assert.ErrorIs(t, o.Cancel(), ErrInvalidStateTransition)

	// 已取消的订单不能再次取消
	o2 := newTestOrder(t, productLine("latte", 1, "4.00"))
	require.NoError(t, o2.Cancel())
	assert.ErrorIs(t, o2.Cancel(), ErrInvalidStateTransition)
}

func TestTransitionsDoNotTouchTotals(t *testing.T) {
	o := newTestOrder(t, productLine("latte", 2, "4.50"))
	before := o.TotalPrice

	require.NoError(t, o.StartPreparation(time.Now()))
	require.NoError(t, o.MarkReady())
	require.NoError(t, o.Pickup())

	assert.True(t, o.TotalPrice.Equal(before))
}
