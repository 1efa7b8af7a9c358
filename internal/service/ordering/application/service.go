package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"unieats/internal/pkg/logger"
	"unieats/internal/pkg/metrics"
	"unieats/internal/service/ordering/domain"
)

// OrderApplicationService 是订单核心的编排层：驱动状态流转，
// 在确认时点委托库存台账做原子扣减，并在合适的时机调用促销引擎。
type OrderApplicationService struct {
	orderRepo   domain.OrderRepository
	catalogRepo domain.CatalogRepository
	promoRepo   domain.PromotionRepository
	ledger      domain.InventoryLedger
	ruleEngine  domain.RuleEngine
	producer    domain.EventProducer
	locker      domain.OrderLocker
	tracer      trace.Tracer
	metrics     *metrics.OrderingMetrics

	promotionsEnabled bool
}

// NewOrderApplicationService 创建编排服务实例
func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	catalogRepo domain.CatalogRepository,
	promoRepo domain.PromotionRepository,
	ledger domain.InventoryLedger,
	ruleEngine domain.RuleEngine,
	producer domain.EventProducer,
	locker domain.OrderLocker,
	tracer trace.Tracer,
	m *metrics.OrderingMetrics,
	promotionsEnabled bool,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo, catalogRepo: catalogRepo, promoRepo: promoRepo,
		ledger: ledger, ruleEngine: ruleEngine, producer: producer, locker: locker,
		tracer: tracer, metrics: m, promotionsEnabled: promotionsEnabled,
	}
}

// CreateOrder 构建并确认一个订单：解析目录、应用促销、原子预占原料、落库。
// 预占被拒绝时整个用例失败，订单不会被持久化。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()

	lines, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build order lines")
		return nil, err
	}

	order, err := domain.NewOrder(uuid.New().String(), lines)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	if s.promotionsEnabled {
		if err := s.applyActivePromotions(ctx, order); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "promotion evaluation failed")
			return nil, err
		}
	}

	requirements, err := s.resolveRequirements(ctx, order.Lines)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 确认时点的原子扣减：台账拒绝则订单不落库、状态不前进
	if err := s.ledger.Reserve(ctx, requirements); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock reservation rejected")
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) && s.metrics != nil {
			s.metrics.ReservationFailures.WithLabelValues(stockErr.IngredientID).Inc()
		}
		return nil, err
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save order")
		// 落库失败必须归还已预占的原料，否则台账会永久少账
		if releaseErr := s.ledger.Release(ctx, requirements); releaseErr != nil {
			logger.Ctx(ctx).Error().Err(releaseErr).
				Str("order_id", order.ID).
				Msg("failed to release stock after save failure, manual reconciliation required")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}
	s.publishStateChange(ctx, order)
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("total", order.TotalPrice.StringFixed(2)).
		Msg("order confirmed")
	return ToOrderResponse(order), nil
}

// GetOrder 按 ID 读取订单
func (s *OrderApplicationService) GetOrder(ctx context.Context, id string) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ToOrderResponse(order), nil
}

// ListOrders 列出全部订单
func (s *OrderApplicationService) ListOrders(ctx context.Context) ([]*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()

	orders, err := s.orderRepo.FindAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	resp := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, ToOrderResponse(o))
	}
	return resp, nil
}

// UpdateOrder 手工替换行集合并重设订单级折扣，仅确认态允许。
// 总价随替换立即重算，不接受外部直接赋值。
// 替换行集合意味着替换预占：台账按新旧需求的净差额调整，
// 净增部分预占失败时整次更新失败，原有预占保持不变。
func (s *OrderApplicationService) UpdateOrder(ctx context.Context, id string, req *UpdateOrderRequest) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	var resp *OrderResponse
	err := s.locker.WithLock(ctx, id, func() error {
		order, err := s.orderRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if order.State != domain.StateConfirmed {
			return domain.NewInvalidTransition(order.State, "update")
		}

		lines, err := s.buildLines(ctx, req.Lines)
		if err != nil {
			return err
		}
		oldReq, err := s.resolveRequirements(ctx, order.Lines)
		if err != nil {
			return err
		}
		newReq, err := s.resolveRequirements(ctx, lines)
		if err != nil {
			return err
		}
		add, remove := domain.DiffRequirements(newReq, oldReq)

		// 先预占净增部分：不足则整次更新中止，旧预占原样保留
		if err := s.ledger.Reserve(ctx, add); err != nil {
			return err
		}

		if err := order.ReplaceLines(lines); err != nil {
			s.releaseOrWarn(ctx, order.ID, add)
			return err
		}
		if req.Discount != "" {
			d, err := decimal.NewFromString(req.Discount)
			if err != nil {
				s.releaseOrWarn(ctx, order.ID, add)
				return domain.NewInvalidArgument("malformed discount amount")
			}
			if d.IsNegative() {
				s.releaseOrWarn(ctx, order.ID, add)
				return domain.NewInvalidArgument("order discount cannot be negative")
			}
			order.Discount = d.Round(2)
			order.RecomputeTotal()
		}
		if err := s.orderRepo.Save(ctx, order); err != nil {
			s.releaseOrWarn(ctx, order.ID, add)
			return err
		}

		// 落库成功后归还净减部分，此后取消/删除按新行集合归还即可对账
		s.releaseOrWarn(ctx, order.ID, remove)
		resp = ToOrderResponse(order)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return resp, nil
}

// releaseOrWarn 归还一份需求，失败只记日志（台账需人工对账）
func (s *OrderApplicationService) releaseOrWarn(ctx context.Context, orderID string, req domain.IngredientRequirements) {
	if len(req) == 0 {
		return
	}
	if err := s.ledger.Release(ctx, req); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", orderID).
			Msg("failed to release stock, manual reconciliation required")
	}
}

// DeleteOrder 删除订单。业务规则：进入制作之后不可删除。
// 行记录作为显式级联清理的一部分随订单一并删除。
func (s *OrderApplicationService) DeleteOrder(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "app.DeleteOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	return s.locker.WithLock(ctx, id, func() error {
		order, err := s.orderRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if order.State != domain.StateConfirmed && order.State != domain.StateCanceled {
			return domain.NewInvalidTransition(order.State, "delete")
		}
		// 确认态删除等价于取消：原料尚未消耗，需要归还
		if order.State == domain.StateConfirmed {
			requirements, err := s.resolveRequirements(ctx, order.Lines)
			if err != nil {
				return err
			}
			if err := s.ledger.Release(ctx, requirements); err != nil {
				return err
			}
		}
		return s.orderRepo.Delete(ctx, id)
	})
}

// StartPreparation 确认 → 制作中
func (s *OrderApplicationService) StartPreparation(ctx context.Context, id string, estimatedReadyAt time.Time) (*OrderResponse, error) {
	return s.transition(ctx, "app.StartPreparation", id, func(o *domain.Order) error {
		return o.StartPreparation(estimatedReadyAt)
	})
}

// MarkReady 制作中 → 待取餐
func (s *OrderApplicationService) MarkReady(ctx context.Context, id string) (*OrderResponse, error) {
	return s.transition(ctx, "app.MarkReady", id, func(o *domain.Order) error {
		return o.MarkReady()
	})
}

// Pickup 待取餐 → 已完成
func (s *OrderApplicationService) Pickup(ctx context.Context, id string) (*OrderResponse, error) {
	return s.transition(ctx, "app.Pickup", id, func(o *domain.Order) error {
		return o.Pickup()
	})
}

// Cancel 取消订单。从确认态取消时归还已预占的原料；
// 进入制作后取消不再归还（原料已消耗）。
func (s *OrderApplicationService) Cancel(ctx context.Context, id string) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	var resp *OrderResponse
	err := s.locker.WithLock(ctx, id, func() error {
		order, err := s.orderRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		wasConfirmed := order.State == domain.StateConfirmed
		if err := order.Cancel(); err != nil {
			return err
		}
		if wasConfirmed {
			requirements, err := s.resolveRequirements(ctx, order.Lines)
			if err != nil {
				return err
			}
			if err := s.ledger.Release(ctx, requirements); err != nil {
				return err
			}
		}
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.OrderTransitions.WithLabelValues(string(order.State)).Inc()
		}
		s.publishStateChange(ctx, order)
		resp = ToOrderResponse(order)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		return nil, err
	}
	return resp, nil
}

// ListActivePromotions 列出今日生效的促销规则
func (s *OrderApplicationService) ListActivePromotions(ctx context.Context) ([]*PromotionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListActivePromotions")
	defer span.End()

	promos, err := s.promoRepo.FindActiveByWeekday(ctx, time.Now().Weekday())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	resp := make([]*PromotionResponse, 0, len(promos))
	for _, p := range promos {
		resp = append(resp, &PromotionResponse{ID: p.ID, Name: p.Name, Kind: p.Kind})
	}
	return resp, nil
}

// ListAvailableCatalog 过滤出全部原料都有库存的商品与套餐
func (s *OrderApplicationService) ListAvailableCatalog(ctx context.Context) (*AvailableCatalogResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListAvailableCatalog")
	defer span.End()

	products, err := s.catalogRepo.FindAllProducts(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	available := make(map[string]bool, len(products))
	resp := &AvailableCatalogResponse{ProductIDs: []string{}, ComboIDs: []string{}}
	for _, p := range products {
		ok, err := s.productAvailable(ctx, p)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		available[p.ID] = ok
		if ok {
			resp.ProductIDs = append(resp.ProductIDs, p.ID)
		}
	}

	combos, err := s.catalogRepo.FindAllCombos(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, c := range combos {
		ok := true
		for productID := range c.Products {
			if !available[productID] {
				ok = false
				break
			}
		}
		if ok {
			resp.ComboIDs = append(resp.ComboIDs, c.ID)
		}
	}
	return resp, nil
}

// transition 是状态流转用例的通用骨架：
// 加锁 → 加载 → 聚合守卫 → 落库 → 指标与事件
func (s *OrderApplicationService) transition(ctx context.Context, spanName, id string, mutate func(*domain.Order) error) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	var resp *OrderResponse
	err := s.locker.WithLock(ctx, id, func() error {
		order, err := s.orderRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(order); err != nil {
			return err
		}
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.OrderTransitions.WithLabelValues(string(order.State)).Inc()
		}
		s.publishStateChange(ctx, order)
		resp = ToOrderResponse(order)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition rejected")
		return nil, err
	}
	return resp, nil
}

// buildLines 将请求行解析为聚合行：校验目录引用并补全目录价
func (s *OrderApplicationService) buildLines(ctx context.Context, reqs []CreateOrderLineRequest) ([]*domain.OrderLine, error) {
	lines := make([]*domain.OrderLine, 0, len(reqs))
	for _, r := range reqs {
		line := &domain.OrderLine{
			ID:       uuid.New().String(),
			Quantity: r.Quantity,
			Discount: decimal.Zero,
		}
		switch {
		case r.ProductID != "" && r.ComboID != "":
			return nil, domain.NewInvalidArgument("line cannot reference both a product and a combo")
		case r.ProductID != "":
			p, err := s.catalogRepo.FindProductByID(ctx, r.ProductID)
			if err != nil {
				return nil, err
			}
			line.ProductID = p.ID
			line.UnitPrice = p.Price
		case r.ComboID != "":
			c, err := s.catalogRepo.FindComboByID(ctx, r.ComboID)
			if err != nil {
				return nil, err
			}
			line.ComboID = c.ID
			line.UnitPrice = c.Price
		default:
			return nil, domain.NewInvalidArgument("line must reference a product or a combo")
		}

		if r.Price != "" {
			p, err := decimal.NewFromString(r.Price)
			if err != nil {
				return nil, domain.NewInvalidArgument("malformed line price")
			}
			line.UnitPrice = p.Round(2)
		}
		if r.Discount != "" {
			d, err := decimal.NewFromString(r.Discount)
			if err != nil {
				return nil, domain.NewInvalidArgument("malformed line discount")
			}
			line.Discount = d.Round(2)
		}
		if err := line.Validate(); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// applyActivePromotions 按规则 ID 升序逐条评估并应用启用的促销。
// 附加资格表达式由规则引擎求值，不通过则跳过该条规则。
func (s *OrderApplicationService) applyActivePromotions(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	promos, err := s.promoRepo.FindActiveByWeekday(ctx, now.Weekday())
	if err != nil {
		return err
	}
	for _, p := range promos {
		if p.RuleExpression != "" && s.ruleEngine != nil {
			total, _ := order.TotalPrice.Float64()
			eligible, err := s.ruleEngine.Evaluate(p.RuleExpression, domain.Fact{
				OrderTotal: total,
				LineCount:  len(order.Lines),
				Weekday:    int(now.Weekday()),
			})
			if err != nil {
				return errors.Wrapf(err, "rule evaluation failed for promotion %d", p.ID)
			}
			if !eligible {
				continue
			}
		}
		if p.Apply(order, now) && s.metrics != nil {
			s.metrics.PromotionApplications.WithLabelValues(string(p.Kind)).Inc()
		}
	}
	return nil
}

// resolveRequirements 把一组行（含赠品行）的原料需求合并为一次预占
func (s *OrderApplicationService) resolveRequirements(ctx context.Context, lines []*domain.OrderLine) (domain.IngredientRequirements, error) {
	total := make(domain.IngredientRequirements)
	for _, line := range lines {
		switch {
		case line.ProductID != "":
			p, err := s.catalogRepo.FindProductByID(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			total.Merge(domain.RequirementsForProduct(p, line.Quantity))
		case line.ComboID != "":
			c, err := s.catalogRepo.FindComboByID(ctx, line.ComboID)
			if err != nil {
				return nil, err
			}
			productIDs := make([]string, 0, len(c.Products))
			for id := range c.Products {
				productIDs = append(productIDs, id)
			}
			products, err := s.catalogRepo.FindProductsByIDs(ctx, productIDs)
			if err != nil {
				return nil, err
			}
			req, err := domain.RequirementsForCombo(c, products, line.Quantity)
			if err != nil {
				return nil, err
			}
			total.Merge(req)
		}
	}
	return total, nil
}

// productAvailable 检查一个商品的全部原料是否都有库存
func (s *OrderApplicationService) productAvailable(ctx context.Context, p *domain.Product) (bool, error) {
	for ingredientID := range p.Ingredients {
		ok, err := s.ledger.IsAvailable(ctx, ingredientID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// publishStateChange 发布状态变更事件；事件流是尽力而为的旁路，
// 发布失败只记日志，不影响主流程
func (s *OrderApplicationService) publishStateChange(ctx context.Context, order *domain.Order) {
	if s.producer == nil {
		return
	}
	event := domain.NewOrderStateChanged(order)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		event.TraceID = sc.TraceID().String()
	}
	if err := s.producer.PublishStateChanged(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", order.ID).
			Msg("failed to publish order state change")
	}
}
