package mysql

import (
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/datamodels/category"
	"github.com/example/embutidos/internal/datamodels/news"
	"github.com/example/embutidos/internal/datamodels/order"
	"github.com/example/embutidos/internal/datamodels/payment"
	"github.com/example/embutidos/internal/datamodels/product"
	"github.com/example/embutidos/internal/datamodels/user"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Init 初始化全局 GORM 实例并自动迁移表结构
func Init(cfg *config.MySQLConfig) *gorm.DB {
	once.Do(func() {
		var err error
		db, err = Open(mysql.Open(cfg.DSN))
		if err != nil {
			zap.L().Fatal("failed to connect mysql", zap.Error(err))
		}
		if err = Migrate(db); err != nil {
			zap.L().Fatal("auto migrate failed", zap.Error(err))
		}
	})
	return db
}

// Open 按给定方言打开连接，测试中传入 sqlite
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// Migrate 自动迁移全部表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&category.Category{},
		&user.User{},
		&product.Product{},
		&order.Order{},
		&order.Line{},
		&payment.Record{},
		&news.News{},
	)
}

// DB 获取全局 DB
func DB() *gorm.DB {
	return db
}
