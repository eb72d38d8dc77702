package port

import (
	"context"

	"comerge/internal/service/order/domain"
)

// EventPublisher 把已提交订单的事件交给下游。
// 实现必须是尽力而为的: 发布失败只记录，不得让写路径失败或阻塞。
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *domain.OrderPlacedEvent) error
}
