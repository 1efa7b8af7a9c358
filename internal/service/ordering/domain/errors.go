package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// 错误分类是核心对外契约的一部分：聚合与台账从不静默修正非法值，
// 所有违规都以类型化错误上抛，由编排层决定中止还是转换为响应。
var (
	ErrNotFound               = errors.New("entity not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidArgument        = errors.New("invalid argument")
)

// InsufficientStockError 在库存预占失败时携带第一个不足的原料 ID。
type InsufficientStockError struct {
	IngredientID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for ingredient %s", e.IngredientID)
}

// Unwrap 使 errors.Is(err, ErrInsufficientStock) 成立
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// NewInsufficientStock 构造一个携带原料 ID 的库存不足错误
func NewInsufficientStock(ingredientID string) error {
	return &InsufficientStockError{IngredientID: ingredientID}
}

// NewInvalidTransition 构造状态机守卫错误，带上当前状态与目标操作便于排查
func NewInvalidTransition(from State, op string) error {
	return errors.Wrapf(ErrInvalidStateTransition, "cannot %s order in state %s", op, from)
}

// NewInvalidArgument 构造参数错误
func NewInvalidArgument(msg string) error {
	return errors.Wrap(ErrInvalidArgument, msg)
}

// NotFoundf 构造带格式化上下文的 NotFound 错误
func NotFoundf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}
