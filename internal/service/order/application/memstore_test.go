package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"comerge/internal/service/order/domain"
	productdomain "comerge/internal/service/product/domain"
)

var (
	errNoTx         = errors.New("operation requires a unit of work")
	errStoreFailure = errors.New("storage backend unavailable")
)

// memStore 以内存结构复刻存储层的并发契约:
// 商品行级排他锁持有到工作单元结束，回滚撤销工作单元内的全部写入。
type memStore struct {
	mu        sync.Mutex
	products  map[uint64]*productdomain.Product
	rowLocks  map[uint64]chan struct{}
	stockLogs []*productdomain.StockLog
	orders    map[uint64]*domain.Order
	items     []*domain.OrderItem

	nextOrderID uint64
	nextItemID  uint64
	nextLogID   uint64
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uint64]*productdomain.Product),
		rowLocks: make(map[uint64]chan struct{}),
		orders:   make(map[uint64]*domain.Order),
	}
}

func (s *memStore) addProduct(p *productdomain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
	s.rowLocks[p.ID] = make(chan struct{}, 1)
}

func (s *memStore) productStockLogs(productID uint64) []*productdomain.StockLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var logs []*productdomain.StockLog
	for _, l := range s.stockLogs {
		if l.ProductID == productID {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
	return logs
}

func (s *memStore) orderItems(orderID uint64) []*domain.OrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []*domain.OrderItem
	for _, it := range s.items {
		if it.OrderID == orderID {
			items = append(items, it)
		}
	}
	return items
}

// memTx 记录一个工作单元持有的行锁与撤销操作。
type memTx struct {
	store  *memStore
	locked map[uint64]bool
	undo   []func()
}

type memTxKey struct{}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

func (tx *memTx) holdLock(ctx context.Context, productID uint64) error {
	if tx.locked[productID] {
		// 同一工作单元重入同一行锁不自我死锁，与数据库行为一致
		return nil
	}
	tx.store.mu.Lock()
	lock, ok := tx.store.rowLocks[productID]
	tx.store.mu.Unlock()
	if !ok {
		return productdomain.ErrProductNotFound
	}

	select {
	case lock <- struct{}{}:
		tx.locked[productID] = true
		return nil
	case <-ctx.Done():
		return productdomain.ErrConcurrentUpdate
	}
}

func (tx *memTx) release() {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for id := range tx.locked {
		<-tx.store.rowLocks[id]
	}
}

func (tx *memTx) rollback() {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
}

// memUnitOfWork 实现 domain.UnitOfWork。
type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &memTx{store: u.store, locked: make(map[uint64]bool)}
	err := fn(context.WithValue(ctx, memTxKey{}, tx))
	if err != nil {
		tx.rollback()
	}
	tx.release()
	return err
}

// memProductRepo 实现 productdomain.Repository。
type memProductRepo struct {
	store *memStore

	mu               sync.Mutex
	failUpdateFor    map[uint64]bool
	invalidatedCalls int
}

func newMemProductRepo(store *memStore) *memProductRepo {
	return &memProductRepo{store: store, failUpdateFor: make(map[uint64]bool)}
}

func (r *memProductRepo) failUpdateStockFor(productID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failUpdateFor[productID] = true
}

func (r *memProductRepo) GetByID(ctx context.Context, id uint64) (*productdomain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok || !p.IsActive() {
		return nil, productdomain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) GetWithLock(ctx context.Context, id uint64) (*productdomain.Product, error) {
	tx := txFrom(ctx)
	if tx == nil {
		return nil, errNoTx
	}
	if err := tx.holdLock(ctx, id); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, productdomain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) UpdateStock(ctx context.Context, p *productdomain.Product, delta int, orderID *uint64, reason string) error {
	return r.mutate(ctx, p, p.StockQuantity+delta, productdomain.ChangeTypeForDelta(delta), orderID, reason)
}

func (r *memProductRepo) AdjustStock(ctx context.Context, p *productdomain.Product, newQuantity int, reason string) error {
	return r.mutate(ctx, p, newQuantity, productdomain.ChangeAdjust, nil, reason)
}

func (r *memProductRepo) mutate(ctx context.Context, p *productdomain.Product,
	newQuantity int, changeType productdomain.ChangeType, orderID *uint64, reason string) error {

	tx := txFrom(ctx)
	if tx == nil {
		return errNoTx
	}

	r.mu.Lock()
	shouldFail := r.failUpdateFor[p.ID]
	r.mu.Unlock()
	if shouldFail {
		return errStoreFailure
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored := r.store.products[p.ID]
	if stored == nil || stored.Version != p.Version {
		return productdomain.ErrConcurrentUpdate
	}

	prevQuantity, prevVersion := stored.StockQuantity, stored.Version
	stored.StockQuantity = newQuantity
	stored.Version++

	r.store.nextLogID++
	entry := &productdomain.StockLog{
		ID:             r.store.nextLogID,
		ProductID:      p.ID,
		OrderID:        orderID,
		ChangeType:     changeType,
		QuantityBefore: prevQuantity,
		QuantityAfter:  newQuantity,
		ChangeQuantity: newQuantity - prevQuantity,
		Reason:         reason,
	}
	r.store.stockLogs = append(r.store.stockLogs, entry)

	entryID := entry.ID
	tx.undo = append(tx.undo, func() {
		stored.StockQuantity = prevQuantity
		stored.Version = prevVersion
		logs := r.store.stockLogs[:0]
		for _, l := range r.store.stockLogs {
			if l.ID != entryID {
				logs = append(logs, l)
			}
		}
		r.store.stockLogs = logs
	})

	p.StockQuantity = newQuantity
	p.Version = stored.Version
	return nil
}

func (r *memProductRepo) Search(ctx context.Context, keyword string, page, size int) (*productdomain.ProductPage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var matched []*productdomain.Product
	for _, p := range r.store.products {
		if p.IsActive() && strings.Contains(p.Name+p.Keywords+p.Description, keyword) {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	return &productdomain.ProductPage{Products: matched, Total: int64(len(matched)), Page: page, Size: size}, nil
}

func (r *memProductRepo) ListStockLogs(ctx context.Context, productID uint64, page, size int) ([]*productdomain.StockLog, int64, error) {
	logs := r.store.productStockLogs(productID)
	return logs, int64(len(logs)), nil
}

func (r *memProductRepo) InvalidateCache(ctx context.Context, productIDs ...uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidatedCalls++
}

// memOrderRepo 实现 domain.Repository。
type memOrderRepo struct {
	store *memStore
}

func newMemOrderRepo(store *memStore) *memOrderRepo {
	return &memOrderRepo{store: store}
}

func (r *memOrderRepo) Create(ctx context.Context, orderNo string, userID uint64) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextOrderID++
	order := &domain.Order{
		ID:          r.store.nextOrderID,
		OrderNo:     orderNo,
		UserID:      userID,
		TotalAmount: decimal.Zero,
		Status:      domain.StatusPending,
	}
	r.store.orders[order.ID] = order
	cp := *order
	return &cp, nil
}

func (r *memOrderRepo) Finalize(ctx context.Context, order *domain.Order, total decimal.Decimal, status domain.OrderStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	prevTotal, prevStatus := stored.TotalAmount, stored.Status
	stored.TotalAmount = total
	stored.Status = status

	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, func() {
			stored.TotalAmount = prevTotal
			stored.Status = prevStatus
		})
	}

	order.TotalAmount = total
	order.Status = status
	return nil
}

func (r *memOrderRepo) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.nextItemID++
	item.ID = r.store.nextItemID
	if item.Status == domain.ItemSuccess {
		item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	} else {
		item.TotalPrice = decimal.Zero
	}
	cp := *item
	r.store.items = append(r.store.items, &cp)

	itemID := item.ID
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, func() {
			items := r.store.items[:0]
			for _, it := range r.store.items {
				if it.ID != itemID {
					items = append(items, it)
				}
			}
			r.store.items = items
		})
	}
	return nil
}

func (r *memOrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, o := range r.store.orders {
		if o.OrderNo == orderNo {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *memOrderRepo) ListByUser(ctx context.Context, userID uint64, page, size int) ([]*domain.Order, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var orders []*domain.Order
	for _, o := range r.store.orders {
		if o.UserID == userID {
			cp := *o
			orders = append(orders, &cp)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, int64(len(orders)), nil
}

func (r *memOrderRepo) InvalidateCache(ctx context.Context, orderNo string) {}

// capturePublisher 记录发布过的事件。
type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.OrderPlacedEvent
}

func (p *capturePublisher) PublishOrderPlaced(ctx context.Context, event *domain.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
