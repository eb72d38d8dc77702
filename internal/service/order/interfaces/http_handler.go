package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"comerge/internal/pkg/logger"
	"comerge/internal/service/order/application"
	"comerge/internal/service/order/domain"
)

// OrderHandler 封装订单服务的 HTTP 处理器。
// 只做解码/校验映射/编码，业务语义全部在 application 层。
type OrderHandler struct {
	service *application.OrderService
}

// NewOrderHandler 创建订单 HTTP 处理器。
func NewOrderHandler(service *application.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册订单路由。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders/batch", h.handleCreateBatch)
	mux.HandleFunc("GET /api/orders/{orderNo}", h.handleGetOrder)
	mux.HandleFunc("GET /api/orders", h.handleListOrders)
}

func (h *OrderHandler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req application.BatchOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreateBatchOrder(ctx, &req)
	if err != nil {
		// 校验类错误在创建任何记录之前被硬拒绝
		switch {
		case errors.Is(err, application.ErrMissingUserID),
			errors.Is(err, application.ErrEmptyBatch),
			errors.Is(err, application.ErrBatchTooLarge):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			logger.Ctx(ctx).Error().Err(err).Msg("batch order hard failure")
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	// 业务性失败（部分/全部条目失败）仍是 200 + 结果对象
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	order, err := h.service.GetOrder(ctx, r.PathValue("orderNo"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("get order failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	userID, err := strconv.ParseUint(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 20)

	orders, total, err := h.service.ListOrders(ctx, userID, page, size)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("list orders failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   page,
		"size":   size,
	})
}

func extractTraceContext(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
