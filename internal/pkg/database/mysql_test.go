package database

import (
	"context"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateEntry(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ORD...' for key 'orders.order_no'"}
	assert.True(t, IsDuplicateEntry(dup))
	assert.True(t, IsDuplicateEntry(errors.Wrap(dup, "create order")))

	assert.False(t, IsDuplicateEntry(&mysql.MySQLError{Number: 1205}))
	assert.False(t, IsDuplicateEntry(errors.New("plain error")))
	assert.False(t, IsDuplicateEntry(nil))
}

func TestIsLockConflict(t *testing.T) {
	assert.True(t, IsLockConflict(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}))
	assert.True(t, IsLockConflict(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.True(t, IsLockConflict(context.DeadlineExceeded))
	assert.True(t, IsLockConflict(errors.Wrap(context.DeadlineExceeded, "lock product")))

	assert.False(t, IsLockConflict(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsLockConflict(errors.New("plain error")))
	assert.False(t, IsLockConflict(nil))
}

func TestTxRoundTrip(t *testing.T) {
	ctx := context.Background()
	base := &gorm.DB{}
	tx := &gorm.DB{}

	// 不在事务中时回退到基础连接
	assert.Same(t, base, FromContext(ctx, base))

	ctx = WithTx(ctx, tx)
	assert.Same(t, tx, FromContext(ctx, base))
}
