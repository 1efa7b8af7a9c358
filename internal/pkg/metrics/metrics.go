package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OrderingMetrics 聚合了订单核心关注的业务指标
type OrderingMetrics struct {
	OrdersCreated         prometheus.Counter
	OrderTransitions      *prometheus.CounterVec
	ReservationFailures   *prometheus.CounterVec
	PromotionApplications *prometheus.CounterVec
}

// NewOrderingMetrics 注册并返回订单核心指标集
func NewOrderingMetrics() *OrderingMetrics {
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "unieats",
		Subsystem: "ordering",
		Name:      "orders_created_total",
		Help:      "Total number of orders successfully created.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unieats",
		Subsystem: "ordering",
		Name:      "order_transitions_total",
		Help:      "Total number of order state transitions.",
	}, []string{"to_state"})
	reservationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unieats",
		Subsystem: "ordering",
		Name:      "stock_reservation_failures_total",
		Help:      "Total number of rejected stock reservations.",
	}, []string{"ingredient"})
	promoApplications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unieats",
		Subsystem: "ordering",
		Name:      "promotion_applications_total",
		Help:      "Total number of promotion rules that mutated an order.",
	}, []string{"kind"})

	prometheus.MustRegister(ordersCreated, transitions, reservationFailures, promoApplications)
	return &OrderingMetrics{
		OrdersCreated:         ordersCreated,
		OrderTransitions:      transitions,
		ReservationFailures:   reservationFailures,
		PromotionApplications: promoApplications,
	}
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
