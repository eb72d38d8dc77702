package application

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"comerge/internal/service/product/domain"
)

// fakeRepo 是无并发语义的简化仓储，只服务本包的用例。
type fakeRepo struct {
	products map[uint64]*domain.Product
	logs     []*domain.StockLog

	invalidated []uint64
}

func newFakeRepo(products ...*domain.Product) *fakeRepo {
	r := &fakeRepo{products: make(map[uint64]*domain.Product)}
	for _, p := range products {
		cp := *p
		r.products[p.ID] = &cp
	}
	return r
}

func (r *fakeRepo) GetByID(ctx context.Context, id uint64) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok || !p.IsActive() {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) GetWithLock(ctx context.Context, id uint64) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) UpdateStock(ctx context.Context, p *domain.Product, delta int, orderID *uint64, reason string) error {
	return r.mutate(p, p.StockQuantity+delta, domain.ChangeTypeForDelta(delta), orderID, reason)
}

func (r *fakeRepo) AdjustStock(ctx context.Context, p *domain.Product, newQuantity int, reason string) error {
	return r.mutate(p, newQuantity, domain.ChangeAdjust, nil, reason)
}

func (r *fakeRepo) mutate(p *domain.Product, newQuantity int, changeType domain.ChangeType, orderID *uint64, reason string) error {
	stored := r.products[p.ID]
	if stored == nil || stored.Version != p.Version {
		return domain.ErrConcurrentUpdate
	}
	r.logs = append(r.logs, &domain.StockLog{
		ID:             uint64(len(r.logs) + 1),
		ProductID:      p.ID,
		OrderID:        orderID,
		ChangeType:     changeType,
		QuantityBefore: stored.StockQuantity,
		QuantityAfter:  newQuantity,
		ChangeQuantity: newQuantity - stored.StockQuantity,
		Reason:         reason,
	})
	stored.StockQuantity = newQuantity
	stored.Version++
	p.StockQuantity = newQuantity
	p.Version = stored.Version
	return nil
}

func (r *fakeRepo) Search(ctx context.Context, keyword string, page, size int) (*domain.ProductPage, error) {
	var matched []*domain.Product
	for _, p := range r.products {
		if p.IsActive() && strings.Contains(p.Name+p.Keywords+p.Description, keyword) {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	return &domain.ProductPage{Products: matched, Total: int64(len(matched)), Page: page, Size: size}, nil
}

func (r *fakeRepo) ListStockLogs(ctx context.Context, productID uint64, page, size int) ([]*domain.StockLog, int64, error) {
	var logs []*domain.StockLog
	for _, l := range r.logs {
		if l.ProductID == productID {
			logs = append(logs, l)
		}
	}
	return logs, int64(len(logs)), nil
}

func (r *fakeRepo) InvalidateCache(ctx context.Context, productIDs ...uint64) {
	r.invalidated = append(r.invalidated, productIDs...)
}

type passthroughUoW struct{}

func (passthroughUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newService(repo *fakeRepo) *ProductService {
	return NewProductService(repo, passthroughUoW{}, noop.NewTracerProvider().Tracer("test"))
}

func sample(id uint64, name string, stock int, status domain.ProductStatus) *domain.Product {
	return &domain.Product{
		ID:            id,
		Name:          name,
		Price:         decimal.RequireFromString("9.90"),
		StockQuantity: stock,
		Status:        status,
		Version:       1,
	}
}

func TestGetProduct(t *testing.T) {
	repo := newFakeRepo(
		sample(1, "在售商品", 10, domain.StatusActive),
		sample(2, "下架商品", 10, domain.StatusInactive),
	)
	svc := newService(repo)

	p, err := svc.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "在售商品", p.Name)

	// 下架与不存在对外都是 not found
	_, err = svc.GetProduct(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = svc.GetProduct(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestSearchValidation(t *testing.T) {
	repo := newFakeRepo(sample(1, "蓝牙耳机", 10, domain.StatusActive))
	svc := newService(repo)

	_, err := svc.Search(context.Background(), "   ", 1, 20)
	assert.ErrorIs(t, err, ErrEmptyKeyword)

	// 非法分页参数被收敛而不是报错
	page, err := svc.Search(context.Background(), "耳机", -3, 10000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageSize, page.Size)
	assert.Equal(t, int64(1), page.Total)
}

func TestRestock(t *testing.T) {
	repo := newFakeRepo(sample(1, "商品A", 3, domain.StatusActive))
	svc := newService(repo)

	require.NoError(t, svc.Restock(context.Background(), 1, 7, "weekly replenishment"))

	p, err := svc.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 10, p.StockQuantity)
	assert.Equal(t, uint32(2), p.Version)

	logs, total, err := svc.ListStockLogs(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ChangeIncrease, logs[0].ChangeType)
	assert.Equal(t, 3, logs[0].QuantityBefore)
	assert.Equal(t, 10, logs[0].QuantityAfter)
	assert.Nil(t, logs[0].OrderID)
	assert.True(t, logs[0].Consistent())

	assert.Contains(t, repo.invalidated, uint64(1))
}

func TestRestockValidation(t *testing.T) {
	svc := newService(newFakeRepo(sample(1, "商品A", 3, domain.StatusActive)))

	assert.ErrorIs(t, svc.Restock(context.Background(), 1, 0, "x"), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.Restock(context.Background(), 1, -5, "x"), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.Restock(context.Background(), 999, 5, "x"), domain.ErrProductNotFound)
}

func TestAdjustStock(t *testing.T) {
	repo := newFakeRepo(sample(1, "商品A", 10, domain.StatusActive))
	svc := newService(repo)

	// 盘点可以向下调，归零也合法
	require.NoError(t, svc.AdjustStock(context.Background(), 1, 4, "inventory check"))
	require.NoError(t, svc.AdjustStock(context.Background(), 1, 0, "damaged goods written off"))

	assert.ErrorIs(t, svc.AdjustStock(context.Background(), 1, -1, "x"), ErrInvalidQuantity)

	logs, _, err := svc.ListStockLogs(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, domain.ChangeAdjust, l.ChangeType)
		assert.True(t, l.Consistent())
	}
	assert.Equal(t, 10, logs[0].QuantityBefore)
	assert.Equal(t, 4, logs[0].QuantityAfter)
	assert.Equal(t, 4, logs[1].QuantityBefore)
	assert.Equal(t, 0, logs[1].QuantityAfter)
}

func TestListStockLogsUnknownProduct(t *testing.T) {
	svc := newService(newFakeRepo())
	_, _, err := svc.ListStockLogs(context.Background(), 42, 1, 20)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
