package infrastructure

import (
	"context"
	"sort"
	"sync"

	"unieats/internal/service/ordering/domain"
)

// MemoryInventoryLedger 是 InventoryLedger 的进程内实现，
// 用于本地开发与测试。互斥锁保证预占的全有或全无语义。
type MemoryInventoryLedger struct {
	mu    sync.Mutex
	stock map[string]int
}

// NewMemoryInventoryLedger 以初始库存创建台账
func NewMemoryInventoryLedger(initial map[string]int) *MemoryInventoryLedger {
	stock := make(map[string]int, len(initial))
	for id, qty := range initial {
		stock[id] = qty
	}
	return &MemoryInventoryLedger{stock: stock}
}

// IsAvailable 判断原料是否还有库存
func (l *MemoryInventoryLedger) IsAvailable(_ context.Context, ingredientID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[ingredientID] > 0, nil
}

// Reserve 全有或全无地扣减一组原料，
// 失败时报告排序后第一个不足的原料
func (l *MemoryInventoryLedger) Reserve(_ context.Context, requirements domain.IngredientRequirements) error {
	if len(requirements) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(requirements))
	for id := range requirements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if l.stock[id]-requirements[id] < 0 {
			return domain.NewInsufficientStock(id)
		}
	}
	for _, id := range ids {
		l.stock[id] -= requirements[id]
	}
	return nil
}

// Release 归还一次预占
func (l *MemoryInventoryLedger) Release(_ context.Context, requirements domain.IngredientRequirements) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, qty := range requirements {
		l.stock[id] += qty
	}
	return nil
}

// Stock (测试用) 读取当前库存
func (l *MemoryInventoryLedger) Stock(ingredientID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[ingredientID]
}
