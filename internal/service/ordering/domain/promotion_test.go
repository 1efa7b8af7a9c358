package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-09-01 是周一
var monday = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func TestAppliesOnGuard(t *testing.T) {
	tests := []struct {
		name      string
		active    bool
		validDays []time.Weekday
		want      bool
	}{
		{"inactive", false, nil, false},
		{"active every day", true, nil, true},
		{"active matching weekday", true, []time.Weekday{time.Monday}, true},
		{"active other weekday", true, []time.Weekday{time.Saturday, time.Sunday}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Promotion{Active: tt.active, ValidDays: tt.validDays, Kind: KindThreshold}
			assert.Equal(t, tt.want, p.AppliesOn(monday))
		})
	}
}

func TestThresholdInclusiveBoundary(t *testing.T) {
	o := newTestOrder(t, productLine("banquet", 1, "1000.00"))
	p := &Promotion{
		ID: 1, Active: true, Kind: KindThreshold,
		Threshold: dec("1000.00"), DiscountAmount: dec("100.00"),
	}

	assert.True(t, p.Apply(o, monday))
	assert.True(t, o.Discount.Equal(dec("100.00")))
	assert.True(t, o.TotalPrice.Equal(dec("900.00")))
}

func TestThresholdBelowBoundaryNoOp(t *testing.T) {
	o := newTestOrder(t, productLine("snack", 1, "999.99"))
	p := &Promotion{
		ID: 1, Active: true, Kind: KindThreshold,
		Threshold: dec("1000.00"), DiscountAmount: dec("100.00"),
	}

	assert.False(t, p.Apply(o, monday))
	assert.True(t, o.Discount.IsZero())
}

func TestPercentageHalfUpRounding(t *testing.T) {
	// 行总价 24.00 打 15% → 折扣 3.60
	o := newTestOrder(t, productLine("pizza", 2, "12.00"))
	p := &Promotion{
		ID: 2, Active: true, Kind: KindPercentage,
		Percentage:       dec("15"),
		TargetProductIDs: []string{"pizza"},
	}

	assert.True(t, p.Apply(o, monday))
	require.Len(t, o.Lines, 1)
	assert.True(t, o.Lines[0].Discount.Equal(dec("3.60")), "got %s", o.Lines[0].Discount)
	assert.True(t, o.Lines[0].Total.Equal(dec("20.40")))
	assert.True(t, o.TotalPrice.Equal(dec("20.40")))
}

func TestPercentageSkipsNonTargetLines(t *testing.T) {
	o := newTestOrder(t,
		productLine("pizza", 1, "10.00"),
		productLine("salad", 1, "8.00"),
	)
	p := &Promotion{
		ID: 2, Active: true, Kind: KindPercentage,
		Percentage:       dec("10"),
		TargetProductIDs: []string{"pizza"},
	}

	assert.True(t, p.Apply(o, monday))
	assert.True(t, o.Lines[0].Discount.Equal(dec("1.00")))
	assert.True(t, o.Lines[1].Discount.IsZero())
	assert.True(t, o.TotalPrice.Equal(dec("17.00")))
}

func TestBuyXPayY(t *testing.T) {
	// 买3付2，单价 10.00，数量 7 → 2组×1件免费 → 折扣 20.00，行总价 50.00
	o := newTestOrder(t, productLine("espresso", 7, "10.00"))
	p := &Promotion{
		ID: 3, Active: true, Kind: KindBuyXPayY,
		BuyQuantity: 3, PayQuantity: 2,
		TargetProductIDs: []string{"espresso"},
	}

	assert.True(t, p.Apply(o, monday))
	assert.True(t, o.Lines[0].Discount.Equal(dec("20.00")), "got %s", o.Lines[0].Discount)
	assert.True(t, o.Lines[0].Total.Equal(dec("50.00")))
}

func TestBuyXPayYBelowGroupSizeNoOp(t *testing.T) {
	o := newTestOrder(t, productLine("espresso", 2, "10.00"))
	p := &Promotion{
		ID: 3, Active: true, Kind: KindBuyXPayY,
		BuyQuantity: 3, PayQuantity: 2,
		TargetProductIDs: []string{"espresso"},
	}

	assert.False(t, p.Apply(o, monday))
	assert.True(t, o.Lines[0].Discount.IsZero())
}

func TestBuyGiveFreeSingleGift(t *testing.T) {
	o := newTestOrder(t, productLine("burger", 3, "9.00"))
	p := &Promotion{
		ID: 4, Active: true, Kind: KindBuyGiveFree,
		TargetProductIDs: []string{"burger"},
		FreeProductIDs:   []string{"fries"},
	}

	assert.True(t, p.Apply(o, monday))
	require.Len(t, o.Lines, 2)

	gift := o.Lines[1]
	assert.True(t, gift.Gift)
	assert.Equal(t, "fries", gift.ProductID)
	assert.Equal(t, 1, gift.Quantity)
	assert.True(t, gift.UnitPrice.IsZero())
	assert.True(t, gift.Total.IsZero())
	// 赠品不改变总价
	assert.True(t, o.TotalPrice.Equal(dec("27.00")))
}

func TestBuyGiveFreeDuplicateAwardIsNoOp(t *testing.T) {
	o := newTestOrder(t, productLine("burger", 3, "9.00"))
	p := &Promotion{
		ID: 4, Active: true, Kind: KindBuyGiveFree,
		TargetProductIDs:  []string{"burger"},
		FreeProductIDs:    []string{"fries"},
		OneFreePerTrigger: false,
	}

	require.True(t, p.Apply(o, monday))
	linesAfterFirst := len(o.Lines)
	totalAfterFirst := o.TotalPrice

	// 第二次评估：已有赠品行，必须是 no-op
	assert.False(t, p.Apply(o, monday))
	assert.Len(t, o.Lines, linesAfterFirst)
	assert.True(t, o.TotalPrice.Equal(totalAfterFirst))
}

func TestBuyGiveFreePerTrigger(t *testing.T) {
	o := newTestOrder(t,
		productLine("burger", 2, "9.00"),
		productLine("hotdog", 3, "5.00"),
	)
	p := &Promotion{
		ID: 4, Active: true, Kind: KindBuyGiveFree,
		TargetProductIDs:  []string{"burger", "hotdog"},
		FreeProductIDs:    []string{"fries"},
		FreeComboIDs:      []string{"kids-box"},
		OneFreePerTrigger: true,
	}

	assert.True(t, p.Apply(o, monday))
	// 触发数量 = 2 + 3 = 5；赠品集合里的套餐与单品各自获得 5 份
	require.Len(t, o.Lines, 4)
	assert.Equal(t, "kids-box", o.Lines[2].ComboID)
	assert.Equal(t, 5, o.Lines[2].Quantity)
	assert.Equal(t, "fries", o.Lines[3].ProductID)
	assert.Equal(t, 5, o.Lines[3].Quantity)
}

func TestBuyGiveFreeNoTriggerNoOp(t *testing.T) {
	o := newTestOrder(t, productLine("salad", 1, "8.00"))
	p := &Promotion{
		ID: 4, Active: true, Kind: KindBuyGiveFree,
		TargetProductIDs: []string{"burger"},
		FreeProductIDs:   []string{"fries"},
	}

	assert.False(t, p.Apply(o, monday))
	assert.Len(t, o.Lines, 1)
}

func TestPromotionValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       *Promotion
		wantErr bool
	}{
		{"valid threshold", &Promotion{Kind: KindThreshold, Threshold: dec("10"), DiscountAmount: dec("1")}, false},
		{"negative threshold", &Promotion{Kind: KindThreshold, Threshold: dec("-1")}, true},
		{"valid percentage", &Promotion{Kind: KindPercentage, Percentage: dec("15")}, false},
		{"zero percentage", &Promotion{Kind: KindPercentage, Percentage: dec("0")}, true},
		{"over 100 percentage", &Promotion{Kind: KindPercentage, Percentage: dec("101")}, true},
		{"valid buy-x-pay-y", &Promotion{Kind: KindBuyXPayY, BuyQuantity: 3, PayQuantity: 2}, false},
		{"pay >= buy", &Promotion{Kind: KindBuyXPayY, BuyQuantity: 2, PayQuantity: 2}, true},
		{"free set empty", &Promotion{Kind: KindBuyGiveFree}, true},
		{"unknown kind", &Promotion{Kind: "MYSTERY"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPercentageStackingIsOrderDependent(t *testing.T) {
	// 两条折扣促销按 ID 升序先后作用于同一行：
	// 第二条应用在第一条折扣之后的行总价上
	mk := func() *Order { return newTestOrder(t, productLine("pizza", 1, "100.00")) }

	p1 := &Promotion{ID: 1, Active: true, Kind: KindPercentage, Percentage: dec("10"), TargetProductIDs: []string{"pizza"}}
	p2 := &Promotion{ID: 2, Active: true, Kind: KindPercentage, Percentage: dec("10"), TargetProductIDs: []string{"pizza"}}

	o := mk()
	p1.Apply(o, monday)
	p2.Apply(o, monday)
	// 100 → 90 → 81
	assert.True(t, o.TotalPrice.Equal(dec("81.00")), "got %s", o.TotalPrice)
}
