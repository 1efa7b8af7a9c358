package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"unieats/internal/pkg/logger"
	"unieats/internal/pkg/metrics"
	"unieats/internal/service/ordering/application"
	"unieats/internal/service/ordering/domain"
)

// OrderingHandler 封装点餐服务的 HTTP 处理器
type OrderingHandler struct {
	service *application.OrderApplicationService
	hub     *KitchenHub
}

// NewOrderingHandler 创建一个新的 HTTP 处理器实例。
// hub 可以为 nil，此时不暴露厨房大屏的 WebSocket 端点。
func NewOrderingHandler(service *application.OrderApplicationService, hub *KitchenHub) *OrderingHandler {
	return &OrderingHandler{service: service, hub: hub}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("PUT /orders/{id}", h.updateOrder)
	mux.HandleFunc("DELETE /orders/{id}", h.deleteOrder)

	mux.HandleFunc("POST /orders/{id}/start-preparation", h.startPreparation)
	mux.HandleFunc("POST /orders/{id}/ready", h.markReady)
	mux.HandleFunc("POST /orders/{id}/pickup", h.pickup)
	mux.HandleFunc("POST /orders/{id}/cancel", h.cancel)

	mux.HandleFunc("GET /promotions/active", h.listActivePromotions)
	mux.HandleFunc("GET /catalog/available", h.listAvailableCatalog)

	if h.hub != nil {
		mux.HandleFunc("GET /ws/kitchen", h.hub.ServeWs)
	}
}

func (h *OrderingHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreateOrder(ctx, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *OrderingHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	resp, err := h.service.ListOrders(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderingHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	resp, err := h.service.GetOrder(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderingHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req application.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.UpdateOrder(ctx, r.PathValue("id"), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderingHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	if err := h.service.DeleteOrder(ctx, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderingHandler) startPreparation(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req application.StartPreparationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.StartPreparation(ctx, r.PathValue("id"), req.EstimatedReadyAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderingHandler) markReady(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	resp, err := h.service.MarkReady(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderingHandler) pickup(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	resp, err := h.service.Pickup(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderingHandler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	resp, err := h.service.Cancel(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderingHandler) listActivePromotions(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	resp, err := h.service.ListActivePromotions(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderingHandler) listAvailableCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	resp, err := h.service.ListAvailableCatalog(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func extractTraceContext(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError 将领域错误映射为 HTTP 状态码：
// 未找到 404，非法状态迁移与库存不足 409，参数非法 400，其余 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStateTransition), errors.Is(err, domain.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
