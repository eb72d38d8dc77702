package infrastructure

import (
	"context"

	"gorm.io/gorm"

	"comerge/internal/pkg/database"
)

// GormUnitOfWork 用一个数据库事务实现 domain.UnitOfWork。
// 事务句柄通过 context 传给链路上的仓储调用，
// 工作单元内获取的行锁随提交或回滚自动释放。
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork 创建工作单元实例。
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// WithinTx 在单个事务内执行 fn: 返回 nil 提交，返回错误回滚并透传。
func (u *GormUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(database.WithTx(ctx, tx))
	})
}
