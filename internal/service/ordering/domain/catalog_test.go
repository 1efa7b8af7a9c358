package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirementsForProduct(t *testing.T) {
	p := &Product{
		ID:          "latte",
		Ingredients: map[string]int{"espresso-shot": 2, "milk": 1},
	}

	req := RequirementsForProduct(p, 3)
	assert.Equal(t, IngredientRequirements{"espresso-shot": 6, "milk": 3}, req)
}

func TestRequirementsForCombo(t *testing.T) {
	products := map[string]*Product{
		"latte":  {ID: "latte", Ingredients: map[string]int{"espresso-shot": 2, "milk": 1}},
		"muffin": {ID: "muffin", Ingredients: map[string]int{"flour": 3}},
	}
	c := &Combo{
		ID:       "breakfast",
		Products: map[string]int{"latte": 1, "muffin": 2},
	}

	// 2 份套餐: latte×2, muffin×4
	req, err := RequirementsForCombo(c, products, 2)
	require.NoError(t, err)
	assert.Equal(t, IngredientRequirements{
		"espresso-shot": 4,
		"milk":          2,
		"flour":         12,
	}, req)
}

func TestRequirementsForComboUnknownProduct(t *testing.T) {
	c := &Combo{ID: "broken", Products: map[string]int{"ghost": 1}}

	_, err := RequirementsForCombo(c, map[string]*Product{}, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequirementsMergeOverlap(t *testing.T) {
	a := IngredientRequirements{"milk": 2}
	a.Merge(IngredientRequirements{"milk": 3, "flour": 1})
	assert.Equal(t, IngredientRequirements{"milk": 5, "flour": 1}, a)
}

func TestDiffRequirements(t *testing.T) {
	tests := []struct {
		name     string
		new, old IngredientRequirements
		add      IngredientRequirements
		remove   IngredientRequirements
	}{
		{
			name:   "disjoint swap",
			new:    IngredientRequirements{"flour": 6},
			old:    IngredientRequirements{"espresso-shot": 2, "milk": 1},
			add:    IngredientRequirements{"flour": 6},
			remove: IngredientRequirements{"espresso-shot": 2, "milk": 1},
		},
		{
			name:   "overlap nets out",
			new:    IngredientRequirements{"milk": 3, "flour": 2},
			old:    IngredientRequirements{"milk": 1, "sugar": 4},
			add:    IngredientRequirements{"milk": 2, "flour": 2},
			remove: IngredientRequirements{"sugar": 4},
		},
		{
			name:   "identical requirements",
			new:    IngredientRequirements{"milk": 2},
			old:    IngredientRequirements{"milk": 2},
			add:    IngredientRequirements{},
			remove: IngredientRequirements{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			add, remove := DiffRequirements(tt.new, tt.old)
			assert.Equal(t, tt.add, add)
			assert.Equal(t, tt.remove, remove)
		})
	}
}
