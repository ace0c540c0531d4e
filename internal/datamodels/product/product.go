package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product 商品模型
type Product struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"size:150;not null" json:"name"`
	Description    string          `gorm:"type:text" json:"description"`
	CategoryID     *int64          `gorm:"index" json:"category_id"`
	ProductionCost decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"production_cost"`
	SalePrice      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"sale_price"`
	Stock          int64           `gorm:"not null" json:"stock"`
	MinStock       *int64          `json:"min_stock"`
	ExpiresAt      *time.Time      `gorm:"index" json:"expires_at"`
	ReceivedAt     time.Time       `json:"received_at"`
	ImageURL       string          `gorm:"size:255" json:"image_url"`
	Active         bool            `gorm:"index;not null" json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Filter 前台商品筛选条件
type Filter struct {
	CategoryID *int64
	Search     string
	MaxPrice   *decimal.Decimal
	// Sort: precio_asc / precio_desc / nombre_asc，其余按最新
	Sort string
	// OnlyActive 前台只展示上架商品
	OnlyActive bool
	Limit      int
}

// Repository 商品仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	ListAll(ctx context.Context) ([]*Product, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*Product, error)
	Search(ctx context.Context, f Filter) ([]*Product, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	SetActive(ctx context.Context, id int64, active bool) error
}
