package infrastructure

import "comerge/internal/service/order/domain"

// ToDomainOrder 把数据库模型（含条目）转换为领域模型。
func ToDomainOrder(m *OrderModel) *domain.Order {
	order := &domain.Order{
		ID:          m.ID,
		OrderNo:     m.OrderNo,
		UserID:      m.UserID,
		TotalAmount: m.TotalAmount,
		Status:      domain.OrderStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for i := range m.Items {
		order.Items = append(order.Items, ToDomainOrderItem(&m.Items[i]))
	}
	return order
}

// ToDomainOrderItem 把条目模型转换为领域模型。
func ToDomainOrderItem(m *OrderItemModel) *domain.OrderItem {
	return &domain.OrderItem{
		ID:           m.ID,
		OrderID:      m.OrderID,
		ProductID:    m.ProductID,
		Quantity:     m.Quantity,
		UnitPrice:    m.UnitPrice,
		TotalPrice:   m.TotalPrice,
		Status:       domain.ItemStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
	}
}
