package infrastructure

import "comerge/internal/service/product/domain"

// ToDomainProduct 把数据库模型转换为领域模型。
func ToDomainProduct(m *ProductModel) *domain.Product {
	return &domain.Product{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		Keywords:      m.Keywords,
		Price:         m.Price,
		StockQuantity: m.StockQuantity,
		Status:        domain.ProductStatus(m.Status),
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ToDomainStockLog 把台账模型转换为领域模型。
func ToDomainStockLog(m *StockLogModel) *domain.StockLog {
	return &domain.StockLog{
		ID:             m.ID,
		ProductID:      m.ProductID,
		OrderID:        m.OrderID,
		ChangeType:     domain.ChangeType(m.ChangeType),
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		ChangeQuantity: m.ChangeQuantity,
		Reason:         m.Reason,
		CreatedAt:      m.CreatedAt,
	}
}
