package rule

import (
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"unieats/internal/service/ordering/domain"
)

// CELRuleEngine 是 domain.RuleEngine 的 CEL 实现。
// 促销的附加资格表达式（如 "order_total >= 50.0 && weekday <= 5"）
// 在这里编译并对订单快照求值。编译结果按表达式文本缓存，
// 同一条促销规则只编译一次。
type CELRuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("order_total", cel.DoubleType),
		cel.Variable("line_count", cel.IntType),
		cel.Variable("weekday", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel environment")
	}
	return &CELRuleEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 实现 domain.RuleEngine 接口。
// 表达式必须返回 bool，否则视为规则配置错误。
func (e *CELRuleEngine) Evaluate(expression string, fact domain.Fact) (bool, error) {
	program, err := e.program(expression)
	if err != nil {
		return false, err
	}

	out, _, err := program.Eval(map[string]interface{}{
		"order_total": fact.OrderTotal,
		"line_count":  fact.LineCount,
		"weekday":     fact.Weekday,
	})
	if err != nil {
		return false, errors.Wrap(err, "evaluate rule expression")
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("rule expression %q did not yield a boolean", expression)
	}
	return result, nil
}

func (e *CELRuleEngine) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "compile rule expression %q", expression)
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "build rule program %q", expression)
	}

	e.mu.Lock()
	e.programs[expression] = program
	e.mu.Unlock()
	return program, nil
}
