package domain

import (
	"github.com/shopspring/decimal"
)

// Product 是单品，声明每售出一份需要消耗的各原料数量
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Available   bool
	Ingredients map[string]int // ingredientID -> 每份用量
}

// Combo 是套餐，声明每份套餐包含的各单品数量；
// 原料需求由包含的单品逐层乘算得出
type Combo struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Products map[string]int // productID -> 每份套餐包含数量
}

// IngredientRequirements 表示一次预占需要的 ingredientID -> 数量
type IngredientRequirements map[string]int

// Merge 将另一份需求叠加进来
func (r IngredientRequirements) Merge(other IngredientRequirements) {
	for id, qty := range other {
		r[id] += qty
	}
}

// DiffRequirements 计算从 old 换到 new 需要的台账净变化：
// add 是需要额外预占的部分，remove 是需要归还的部分。
// 两者互斥，重叠原料只出现在净变化的一侧。
func DiffRequirements(new, old IngredientRequirements) (add, remove IngredientRequirements) {
	add = make(IngredientRequirements)
	remove = make(IngredientRequirements)
	for id, qty := range new {
		if delta := qty - old[id]; delta > 0 {
			add[id] = delta
		}
	}
	for id, qty := range old {
		if delta := qty - new[id]; delta > 0 {
			remove[id] = delta
		}
	}
	return add, remove
}

// RequirementsForProduct 计算商品行的原料需求: 每份用量 × 行数量
func RequirementsForProduct(p *Product, quantity int) IngredientRequirements {
	req := make(IngredientRequirements, len(p.Ingredients))
	for ingredientID, perUnit := range p.Ingredients {
		req[ingredientID] = perUnit * quantity
	}
	return req
}

// RequirementsForCombo 计算套餐行的原料需求:
// Σ (单品每份用量 × 套餐内单品数量 × 行数量)
func RequirementsForCombo(c *Combo, products map[string]*Product, quantity int) (IngredientRequirements, error) {
	req := make(IngredientRequirements)
	for productID, perCombo := range c.Products {
		p, ok := products[productID]
		if !ok {
			return nil, NotFoundf("product %s referenced by combo %s", productID, c.ID)
		}
		req.Merge(RequirementsForProduct(p, perCombo*quantity))
	}
	return req, nil
}
