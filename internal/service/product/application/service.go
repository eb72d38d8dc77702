package application

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"comerge/internal/pkg/logger"
	"comerge/internal/service/product/domain"
)

const maxPageSize = 100

var (
	// ErrEmptyKeyword 表示搜索关键词为空，由 HTTP 层映射为 400。
	ErrEmptyKeyword = errors.New("search keyword must not be empty")

	// ErrInvalidQuantity 表示补货/调整数量非法。
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// ProductService 提供商品侧的读操作与库存管理操作。
// 批量下单的扣减不走这里，它直接经由仓储在订单工作单元内完成。
type ProductService struct {
	products domain.Repository
	uow      UnitOfWork
	tracer   trace.Tracer
}

// UnitOfWork 与订单侧的工作单元语义一致。
// 库存管理操作（补货/盘点）同样需要锁内读改写的原子性。
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewProductService 创建商品服务实例。
func NewProductService(products domain.Repository, uow UnitOfWork, tracer trace.Tracer) *ProductService {
	return &ProductService{products: products, uow: uow, tracer: tracer}
}

// GetProduct 返回在售商品详情，走读缓存。
func (s *ProductService) GetProduct(ctx context.Context, id uint64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", int64(id)))

	return s.products.GetByID(ctx, id)
}

// Search 按关键词搜索在售商品。size 超过上限时收敛到上限。
func (s *ProductService) Search(ctx context.Context, keyword string, page, size int) (*domain.ProductPage, error) {
	ctx, span := s.tracer.Start(ctx, "product.Search")
	defer span.End()

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	span.SetAttributes(attribute.String("search.keyword", keyword))
	return s.products.Search(ctx, keyword, page, size)
}

// ListStockLogs 返回商品的库存台账分页，商品必须存在且在售。
func (s *ProductService) ListStockLogs(ctx context.Context, productID uint64, page, size int) ([]*domain.StockLog, int64, error) {
	ctx, span := s.tracer.Start(ctx, "product.ListStockLogs")
	defer span.End()

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = 20
	}
	return s.products.ListStockLogs(ctx, productID, page, size)
}

// Restock 为商品补货: 锁行、加量、记一条 increase 台账。
func (s *ProductService) Restock(ctx context.Context, productID uint64, quantity int, reason string) error {
	ctx, span := s.tracer.Start(ctx, "product.Restock")
	defer span.End()

	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		product, err := s.products.GetWithLock(txCtx, productID)
		if err != nil {
			return err
		}
		return s.products.UpdateStock(txCtx, product, quantity, nil, reason)
	})
	if err != nil {
		return err
	}

	s.products.InvalidateCache(ctx, productID)
	logger.Ctx(ctx).Info().Uint64("product_id", productID).Int("quantity", quantity).Msg("product restocked")
	return nil
}

// AdjustStock 把商品库存盘点为绝对值，记一条 adjust 台账。
func (s *ProductService) AdjustStock(ctx context.Context, productID uint64, newQuantity int, reason string) error {
	ctx, span := s.tracer.Start(ctx, "product.AdjustStock")
	defer span.End()

	if newQuantity < 0 {
		return ErrInvalidQuantity
	}

	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		product, err := s.products.GetWithLock(txCtx, productID)
		if err != nil {
			return err
		}
		return s.products.AdjustStock(txCtx, product, newQuantity, reason)
	})
	if err != nil {
		return err
	}

	s.products.InvalidateCache(ctx, productID)
	logger.Ctx(ctx).Info().Uint64("product_id", productID).Int("new_quantity", newQuantity).Msg("stock adjusted")
	return nil
}
