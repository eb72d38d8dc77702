package database

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"comerge/internal/pkg/config"
)

// MySQL 错误码，参考 go-sql-driver 透出的 server error number。
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// Open 建立 gorm 连接并设置连接池参数。
func Open(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// IsDuplicateEntry 判断是否违反了唯一键约束（如订单号撞号）。
func IsDuplicateEntry(err error) bool {
	return hasMySQLErrNumber(err, mysqlErrDuplicateEntry)
}

// IsLockConflict 判断是否为行锁等待超时或死锁。
// 这类错误对调用方而言是可重试的并发冲突，而不是基础设施故障。
func IsLockConflict(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return hasMySQLErrNumber(err, mysqlErrLockWaitTimeout) || hasMySQLErrNumber(err, mysqlErrDeadlock)
}

func hasMySQLErrNumber(err error, number uint16) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == number
	}
	return false
}

type txKey struct{}

// WithTx 将事务句柄放入 context，供仓储层透明取用。
// 事务边界由业务层的 UnitOfWork 控制，仓储自身不开启事务。
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// FromContext 取出当前 context 绑定的事务句柄；
// 不在事务中时回退到基础连接。
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}
