package domain

import "time"

// OrderPlacedEvent 在批次提交后发布给下游（通知、报表等）。
// 发布是尽力而为的，失败不影响已提交的订单。
type OrderPlacedEvent struct {
	OrderNo     string       `json:"order_no"`
	UserID      uint64       `json:"user_id"`
	Status      OrderStatus  `json:"status"`
	TotalAmount string       `json:"total_amount"`
	Items       []PlacedItem `json:"items"`
	PlacedAt    time.Time    `json:"placed_at"`
}

// PlacedItem 是事件中成功条目的摘要。
type PlacedItem struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
