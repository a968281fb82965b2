package dao

import (
	"docinsight-backend/config"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OpenTestDB 创建独立的内存 SQLite 数据库并同步表结构，测试结束时关闭
func OpenTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = Close(db)
	})
	return db
}
