package application

import "github.com/shopspring/decimal"

// BatchOrderRequest 是批量下单的请求体。
// 形状/类型校验由 HTTP 层完成，这里仍会防御数量与条目数上限。
type BatchOrderRequest struct {
	UserID     uint64           `json:"user_id"`
	OrderItems []BatchOrderItem `json:"order_items"`
}

// BatchOrderItem 是请求中的一个购买条目。
type BatchOrderItem struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// BatchOrderResponse 是批量下单的结果对象。
// 输入合法的请求总是得到它，业务性失败不会以异常形式透出。
type BatchOrderResponse struct {
	OrderNo      string          `json:"order_no"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	SuccessItems []SuccessItem   `json:"success_items"`
	FailedItems  []FailedItem    `json:"failed_items"`
	Error        string          `json:"error,omitempty"`
}

// SuccessItem 是成功条目的回传明细。
type SuccessItem struct {
	ProductID   uint64          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	OrderItemID uint64          `json:"order_item_id"`
}

// FailedItem 是失败条目的回传明细。
// 库存不足时附带可用/所需数量，其余场景两者为空。
type FailedItem struct {
	ProductID      uint64 `json:"product_id"`
	Quantity       int    `json:"quantity"`
	ErrorMessage   string `json:"error_message"`
	OrderItemID    uint64 `json:"order_item_id,omitempty"`
	AvailableStock *int   `json:"available_stock,omitempty"`
	RequiredStock  *int   `json:"required_stock,omitempty"`
}
