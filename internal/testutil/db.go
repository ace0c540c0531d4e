// Package testutil 测试辅助：内存 SQLite 上的完整表结构
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/example/embutidos/internal/repository/mysql"
)

var dbSeq int64

// NewDB 每个测试一个独立的内存库，单连接保证同一事务视图
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("file:embutidos_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := mysql.Open(sqlite.Open(name))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, mysql.Migrate(db))
	return db
}
