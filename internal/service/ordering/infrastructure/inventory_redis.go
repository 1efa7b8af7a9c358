package infrastructure

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"unieats/internal/pkg/redis"
	"unieats/internal/service/ordering/domain"
)

const reserveScriptName = "reserve_ingredients"

// RedisInventoryLedger 是 InventoryLedger 的 Redis 实现。
// 多原料扣减通过一段 Lua 脚本完成：脚本在 Redis 内原子执行，
// 任何一项不足时整体放弃，两个并发预占不可能同时看到扣减前的库存。
type RedisInventoryLedger struct {
	client *redis.Client
}

// NewRedisInventoryLedger 创建台账实例并加载扣减脚本
func NewRedisInventoryLedger(client *redis.Client) (*RedisInventoryLedger, error) {
	if err := client.LoadScriptFromContent(reserveScriptName, reserveScript); err != nil {
		return nil, fmt.Errorf("failed to load reserve script: %w", err)
	}
	return &RedisInventoryLedger{client: client}, nil
}

func stockKey(ingredientID string) string {
	return fmt.Sprintf("inventory:stock:%s", ingredientID)
}

// IsAvailable 判断原料是否还有库存（stock > 0）
func (l *RedisInventoryLedger) IsAvailable(ctx context.Context, ingredientID string) (bool, error) {
	val, err := l.client.GetClient().Get(ctx, stockKey(ingredientID)).Int()
	if err != nil {
		// 从未入账的原料视为无库存
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read stock for %s: %w", ingredientID, err)
	}
	return val > 0, nil
}

// Reserve 全有或全无地扣减一组原料。
// 键按原料 ID 排序保证脚本报告的"第一个不足项"可复现。
func (l *RedisInventoryLedger) Reserve(ctx context.Context, requirements domain.IngredientRequirements) error {
	if len(requirements) == 0 {
		return nil
	}
	ids := make([]string, 0, len(requirements))
	for id := range requirements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = stockKey(id)
		args[i] = requirements[id]
	}

	result, err := l.client.RunScript(ctx, reserveScriptName, keys, args...)
	if err != nil {
		return fmt.Errorf("reserve script failed: %w", err)
	}
	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("unexpected result type from reserve script: %T", result)
	}
	if code > 0 {
		// 脚本返回 1 起始的下标，指向第一个不足的原料
		return domain.NewInsufficientStock(ids[code-1])
	}
	return nil
}

// Release 归还一次预占（取消/删除确认态订单）
func (l *RedisInventoryLedger) Release(ctx context.Context, requirements domain.IngredientRequirements) error {
	if len(requirements) == 0 {
		return nil
	}
	pipe := l.client.GetClient().Pipeline()
	for id, qty := range requirements {
		pipe.IncrBy(ctx, stockKey(id), int64(qty))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	return nil
}

// SetStock (初始化和管理用) 设置原料库存
func (l *RedisInventoryLedger) SetStock(ctx context.Context, ingredientID string, stock int) error {
	if stock < 0 {
		return domain.NewInvalidArgument("stock cannot be negative")
	}
	return l.client.GetClient().Set(ctx, stockKey(ingredientID), stock, 0).Err()
}

var reserveScript = `
-- KEYS[i]: 第 i 项原料的库存 Key, 例如: inventory:stock:espresso-shot
-- ARGV[i]: 第 i 项原料需要扣减的数量

-- 1. 先整体检查：任何一项会被扣成负数则直接返回其下标（1 起始）
for i = 1, #KEYS do
    local stock = tonumber(redis.call('get', KEYS[i]) or '0')
    local need = tonumber(ARGV[i])
    if stock - need < 0 then
        return i
    end
end

-- 2. 全部充足，在同一次原子执行内完成全部扣减
for i = 1, #KEYS do
    redis.call('decrby', KEYS[i], ARGV[i])
end
return 0
`
