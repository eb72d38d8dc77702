package application

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"comerge/internal/pkg/logger"
	"comerge/internal/pkg/metrics"
	"comerge/internal/service/order/domain"
	"comerge/internal/service/order/port"
	productdomain "comerge/internal/service/product/domain"
)

// maxBatchItems 是单次下单的条目数硬上限。
const maxBatchItems = 50

// 校验类错误。它们在创建任何订单记录之前拒绝请求，由 HTTP 层映射为 400。
var (
	ErrMissingUserID = errors.New("user id is required")
	ErrEmptyBatch    = errors.New("order items must not be empty")
	ErrBatchTooLarge = errors.Errorf("at most %d items per batch", maxBatchItems)
)

// OrderService 实现库存安全的批量下单。
// 单个批次在一个工作单元内顺序处理条目；跨批次的并发安全
// 完全依赖商品行的排他锁，缓存与事件都不在正确性路径上。
type OrderService struct {
	orders    domain.Repository
	products  productdomain.Repository
	uow       domain.UnitOfWork
	publisher port.EventPublisher
	tracer    trace.Tracer

	// lockWait 限定单行锁等待时长，超时按并发冲突处理而不是无限等待
	lockWait time.Duration
}

// NewOrderService 创建批量下单服务。publisher 可为 nil（不发布事件）。
func NewOrderService(
	orders domain.Repository,
	products productdomain.Repository,
	uow domain.UnitOfWork,
	publisher port.EventPublisher,
	tracer trace.Tracer,
	lockWait time.Duration,
) *OrderService {
	if lockWait <= 0 {
		lockWait = 5 * time.Second
	}
	return &OrderService{
		orders:    orders,
		products:  products,
		uow:       uow,
		publisher: publisher,
		tracer:    tracer,
		lockWait:  lockWait,
	}
}

// CreateBatchOrder 处理一个批量下单请求。
//
// 输入合法时总是返回一个结果对象: 业务性失败记录为失败条目，
// 事务中途的基础设施错误会回滚本批次的全部库存扣减与条目记录，
// 并把订单终态强制为 failed、总额 0，错误描述放进结果对象返回。
func (s *OrderService) CreateBatchOrder(ctx context.Context, req *BatchOrderRequest) (*BatchOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateBatchOrder")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	orderNo := GenerateOrderNo()
	span.SetAttributes(
		attribute.String("order.no", orderNo),
		attribute.Int("order.item_count", len(req.OrderItems)),
	)

	// 主记录先于事务创建: 批次即使被致命错误中止，
	// 也会留下一条可审计的 failed 订单
	order, err := s.orders.Create(ctx, orderNo, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "create pending order")
	}

	timer := prometheus.NewTimer(metrics.BatchDuration)
	defer timer.ObserveDuration()

	resp := &BatchOrderResponse{
		OrderNo:      orderNo,
		TotalAmount:  decimal.Zero,
		SuccessItems: []SuccessItem{},
		FailedItems:  []FailedItem{},
	}

	var (
		outcomes []*domain.ItemOutcome
		total    = decimal.Zero
		status   domain.OrderStatus
	)

	txErr := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		for _, item := range req.OrderItems {
			outcome, err := s.processItem(txCtx, order, item)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, outcome)
			if outcome.Succeeded() {
				total = total.Add(outcome.TotalPrice)
			}
		}

		succeeded, failed := countOutcomes(outcomes)
		status = domain.AggregateStatus(succeeded, failed)
		if err := s.orders.Finalize(txCtx, order, total, status); err != nil {
			return errors.Wrap(err, "finalize order")
		}
		return nil
	})

	if txErr != nil {
		// 工作单元已整体回滚: 本批次没有留下任何扣减和条目记录。
		// 回滚后的条目 ID 已无意义，结果里不再回传条目列表。
		logger.Ctx(ctx).Error().Err(txErr).Str("order_no", orderNo).Msg("batch order aborted, rolled back")
		span.RecordError(txErr)

		if err := s.orders.Finalize(ctx, order, decimal.Zero, domain.StatusFailed); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_no", orderNo).Msg("failed to mark aborted order as failed")
		}
		s.orders.InvalidateCache(ctx, orderNo)
		metrics.OrdersTotal.WithLabelValues(string(domain.StatusFailed)).Inc()

		resp.Status = string(domain.StatusFailed)
		resp.Error = txErr.Error()
		return resp, nil
	}

	resp.Status = string(status)
	resp.TotalAmount = total
	fillItems(resp, outcomes)

	s.afterCommit(ctx, order, status, total, outcomes)
	return resp, nil
}

func validateRequest(req *BatchOrderRequest) error {
	switch {
	case req.UserID == 0:
		return ErrMissingUserID
	case len(req.OrderItems) == 0:
		return ErrEmptyBatch
	case len(req.OrderItems) > maxBatchItems:
		return ErrBatchTooLarge
	default:
		return nil
	}
}

// processItem 处理单个条目并返回带标签的结果。
// 返回的 error 均为基础设施类错误，意味着整个批次需要中止回滚；
// 商品不存在/下架/库存不足/锁冲突都不是 error，而是失败标签。
func (s *OrderService) processItem(ctx context.Context, order *domain.Order, item BatchOrderItem) (*domain.ItemOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "order.processItem")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", int64(item.ProductID)),
		attribute.Int("item.quantity", item.Quantity),
	)

	// 上游漏过来的非法数量按单条目失败处理，不触碰商品
	if item.Quantity <= 0 {
		msg := fmt.Sprintf("invalid quantity %d for product %d", item.Quantity, item.ProductID)
		itemID, err := s.recordFailedItem(ctx, order, nil, item.Quantity, decimal.Zero, msg)
		if err != nil {
			return nil, err
		}
		return &domain.ItemOutcome{
			Kind:         domain.OutcomeInvalidQuantity,
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			OrderItemID:  itemID,
			ErrorMessage: msg,
		}, nil
	}

	// 带上限的锁等待: 第二个触碰同一商品的批次最多等 lockWait，
	// 超时被仓储映射为并发冲突
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	product, err := s.products.GetWithLock(lockCtx, item.ProductID)
	switch {
	case errors.Is(err, productdomain.ErrProductNotFound):
		msg := fmt.Sprintf("product %d not found or unavailable", item.ProductID)
		itemID, failErr := s.recordFailedItem(ctx, order, nil, item.Quantity, decimal.Zero, msg)
		if failErr != nil {
			return nil, failErr
		}
		return &domain.ItemOutcome{
			Kind:         domain.OutcomeProductNotFound,
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			OrderItemID:  itemID,
			ErrorMessage: msg,
		}, nil

	case errors.Is(err, productdomain.ErrConcurrentUpdate):
		// 冲突条目可重试，不写条目记录（锁都没拿到，没有可信的商品状态）
		logger.Ctx(ctx).Warn().Uint64("product_id", item.ProductID).Msg("lock wait timed out, reporting conflict")
		return &domain.ItemOutcome{
			Kind:         domain.OutcomeConflict,
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			ErrorMessage: productdomain.ErrConcurrentUpdate.Error(),
		}, nil

	case err != nil:
		return nil, errors.Wrapf(err, "lock product %d", item.ProductID)
	}

	if !product.IsActive() {
		notActive := &productdomain.ProductNotActiveError{ProductName: product.Name}
		itemID, failErr := s.recordFailedItem(ctx, order, &product.ID, item.Quantity, decimal.Zero, notActive.Error())
		if failErr != nil {
			return nil, failErr
		}
		return &domain.ItemOutcome{
			Kind:         domain.OutcomeProductInactive,
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     item.Quantity,
			OrderItemID:  itemID,
			ErrorMessage: notActive.Error(),
		}, nil
	}

	if !product.HasStock(item.Quantity) {
		insufficient := &productdomain.InsufficientStockError{
			ProductName:    product.Name,
			AvailableStock: product.StockQuantity,
			RequiredStock:  item.Quantity,
		}
		itemID, failErr := s.recordFailedItem(ctx, order, &product.ID, item.Quantity, product.Price, insufficient.Error())
		if failErr != nil {
			return nil, failErr
		}
		return &domain.ItemOutcome{
			Kind:           domain.OutcomeInsufficientStock,
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       item.Quantity,
			UnitPrice:      product.Price,
			OrderItemID:    itemID,
			ErrorMessage:   insufficient.Error(),
			AvailableStock: insufficient.AvailableStock,
			RequiredStock:  insufficient.RequiredStock,
		}, nil
	}

	// 库存充足: 原子扣减并记台账。此处失败是存储层故障，整批中止
	reason := fmt.Sprintf("order deduction - %s", order.OrderNo)
	if err := s.products.UpdateStock(ctx, product, -item.Quantity, &order.ID, reason); err != nil {
		return nil, errors.Wrapf(err, "decrement stock of product %d", product.ID)
	}

	orderItem := &domain.OrderItem{
		OrderID:   order.ID,
		ProductID: &product.ID,
		Quantity:  item.Quantity,
		UnitPrice: product.Price,
		Status:    domain.ItemSuccess,
	}
	if err := s.orders.CreateItem(ctx, orderItem); err != nil {
		return nil, errors.Wrapf(err, "create order item for product %d", product.ID)
	}

	return &domain.ItemOutcome{
		Kind:        domain.OutcomeSuccess,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    item.Quantity,
		UnitPrice:   product.Price,
		TotalPrice:  orderItem.TotalPrice,
		OrderItemID: orderItem.ID,
	}, nil
}

// recordFailedItem 落一条失败条目。写入失败属于存储层故障，向上中止批次。
func (s *OrderService) recordFailedItem(ctx context.Context, order *domain.Order,
	productID *uint64, quantity int, unitPrice decimal.Decimal, message string) (uint64, error) {

	item := &domain.OrderItem{
		OrderID:      order.ID,
		ProductID:    productID,
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		Status:       domain.ItemFailed,
		ErrorMessage: message,
	}
	if err := s.orders.CreateItem(ctx, item); err != nil {
		return 0, errors.Wrap(err, "create failed order item")
	}
	return item.ID, nil
}

// afterCommit 执行提交后的尽力而为动作: 缓存失效、打点、事件发布。
// 任何一步失败都不影响已提交的订单。
func (s *OrderService) afterCommit(ctx context.Context, order *domain.Order,
	status domain.OrderStatus, total decimal.Decimal, outcomes []*domain.ItemOutcome) {

	var (
		touchedProducts  []uint64
		placedItems      []domain.PlacedItem
		unitsDecremented int
	)
	for _, o := range outcomes {
		metrics.OrderItemsTotal.WithLabelValues(string(o.Kind)).Inc()
		if o.Succeeded() {
			touchedProducts = append(touchedProducts, o.ProductID)
			placedItems = append(placedItems, domain.PlacedItem{ProductID: o.ProductID, Quantity: o.Quantity})
			unitsDecremented += o.Quantity
		}
	}
	metrics.OrdersTotal.WithLabelValues(string(status)).Inc()
	metrics.StockUnitsDecremented.Add(float64(unitsDecremented))

	s.products.InvalidateCache(ctx, touchedProducts...)
	s.orders.InvalidateCache(ctx, order.OrderNo)

	if s.publisher != nil {
		event := &domain.OrderPlacedEvent{
			OrderNo:     order.OrderNo,
			UserID:      order.UserID,
			Status:      status,
			TotalAmount: total.StringFixed(2),
			Items:       placedItems,
			PlacedAt:    time.Now(),
		}
		if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order_no", order.OrderNo).Msg("order event publish failed")
		}
	}
}

func countOutcomes(outcomes []*domain.ItemOutcome) (succeeded, failed int) {
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return
}

func fillItems(resp *BatchOrderResponse, outcomes []*domain.ItemOutcome) {
	for _, o := range outcomes {
		if o.Succeeded() {
			resp.SuccessItems = append(resp.SuccessItems, SuccessItem{
				ProductID:   o.ProductID,
				ProductName: o.ProductName,
				Quantity:    o.Quantity,
				UnitPrice:   o.UnitPrice,
				TotalPrice:  o.TotalPrice,
				OrderItemID: o.OrderItemID,
			})
			continue
		}
		failed := FailedItem{
			ProductID:    o.ProductID,
			Quantity:     o.Quantity,
			ErrorMessage: o.ErrorMessage,
			OrderItemID:  o.OrderItemID,
		}
		if o.Kind == domain.OutcomeInsufficientStock {
			available, required := o.AvailableStock, o.RequiredStock
			failed.AvailableStock = &available
			failed.RequiredStock = &required
		}
		resp.FailedItems = append(resp.FailedItems, failed)
	}
}

// GetOrder 按订单号返回订单及其条目。
func (s *OrderService) GetOrder(ctx context.Context, orderNo string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder")
	defer span.End()
	return s.orders.GetByOrderNo(ctx, orderNo)
}

// ListOrders 按创建时间倒序返回用户的订单分页。
func (s *OrderService) ListOrders(ctx context.Context, userID uint64, page, size int) ([]*domain.Order, int64, error) {
	ctx, span := s.tracer.Start(ctx, "order.ListOrders")
	defer span.End()
	return s.orders.ListByUser(ctx, userID, page, size)
}
