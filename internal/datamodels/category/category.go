package category

import "context"

// Category 商品分类（牛肉、猪肉、禽类……）
type Category struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// Repository 分类仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Category, error)
	ListAll(ctx context.Context) ([]*Category, error)
	Create(ctx context.Context, c *Category) error
}
