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
	"comerge/internal/service/product/application"
	"comerge/internal/service/product/domain"
)

// ProductHandler 封装商品服务的 HTTP 处理器。
type ProductHandler struct {
	service *application.ProductService
}

// NewProductHandler 创建商品 HTTP 处理器。
func NewProductHandler(service *application.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册商品路由。
func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products/search", h.handleSearch)
	mux.HandleFunc("GET /api/products/{id}", h.handleGetProduct)
	mux.HandleFunc("GET /api/products/{id}/stock_logs", h.handleStockLogs)
	mux.HandleFunc("POST /api/products/{id}/restock", h.handleRestock)
	mux.HandleFunc("POST /api/products/{id}/adjust", h.handleAdjust)
}

func (h *ProductHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	product, err := h.service.GetProduct(ctx, id)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 20)

	result, err := h.service.Search(ctx, r.URL.Query().Get("keyword"), page, size)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) handleStockLogs(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 20)

	logs, total, err := h.service.ListStockLogs(ctx, id, page, size)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// stockChangeRequest 是补货/盘点的请求体。
type stockChangeRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

func (h *ProductHandler) handleRestock(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	var req stockChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Restock(ctx, id, req.Quantity, req.Reason); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *ProductHandler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	var req stockChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.AdjustStock(ctx, id, req.Quantity, req.Reason); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeError 按错误类别映射 HTTP 状态码。
func (h *ProductHandler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var statusCode int
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, application.ErrEmptyKeyword),
		errors.Is(err, application.ErrInvalidQuantity):
		statusCode = http.StatusBadRequest
	case errors.Is(err, domain.ErrConcurrentUpdate):
		statusCode = http.StatusConflict
	default:
		logger.Ctx(ctx).Error().Err(err).Msg("product request failed")
		statusCode = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), statusCode)
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
