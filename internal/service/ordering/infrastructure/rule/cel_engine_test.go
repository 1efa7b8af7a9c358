package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unieats/internal/service/ordering/domain"
)

func TestEvaluateEligibility(t *testing.T) {
	engine, err := NewCELRuleEngine()
	require.NoError(t, err)

	fact := domain.Fact{OrderTotal: 120.5, LineCount: 3, Weekday: 2}

	tests := []struct {
		expression string
		want       bool
	}{
		{"order_total >= 100.0", true},
		{"order_total >= 200.0", false},
		{"line_count > 1 && weekday <= 5", true},
		{"weekday == 6 || weekday == 0", false},
	}
	for _, tt := range tests {
		got, err := engine.Evaluate(tt.expression, fact)
		require.NoError(t, err, tt.expression)
		assert.Equal(t, tt.want, got, tt.expression)
	}
}

func TestEvaluateRejectsBrokenExpression(t *testing.T) {
	engine, err := NewCELRuleEngine()
	require.NoError(t, err)

	_, err = engine.Evaluate("order_total >=", domain.Fact{})
	assert.Error(t, err)
}

func TestEvaluateRejectsNonBooleanResult(t *testing.T) {
	engine, err := NewCELRuleEngine()
	require.NoError(t, err)

	_, err = engine.Evaluate("order_total + 1.0", domain.Fact{OrderTotal: 1})
	assert.Error(t, err)
}

func TestCompiledProgramsAreCached(t *testing.T) {
	engine, err := NewCELRuleEngine()
	require.NoError(t, err)

	_, err = engine.Evaluate("line_count > 0", domain.Fact{LineCount: 1})
	require.NoError(t, err)
	_, err = engine.Evaluate("line_count > 0", domain.Fact{LineCount: 1})
	require.NoError(t, err)

	engine.mu.RLock()
	defer engine.mu.RUnlock()
	assert.Len(t, engine.programs, 1)
}
