package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order 订单模型
type Order struct {
	ID       int64           `gorm:"primaryKey" json:"id"`
	UserID   *int64          `gorm:"index" json:"user_id"`
	Status   Status          `gorm:"index;not null" json:"status"`
	PlacedAt time.Time       `gorm:"index" json:"placed_at"`
	Total    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	Lines    []Line          `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
}

// Line 订单明细，UnitPrice 为下单时的售价快照，之后不再重算
type Line struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	OrderID   int64           `gorm:"index;not null" json:"order_id"`
	ProductID int64           `gorm:"index;not null" json:"product_id"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
}

// TableName 明细表名
func (Line) TableName() string {
	return "order_lines"
}

// Subtotal 数量 × 单价
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// LinesTotal 汇总明细金额
func LinesTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Repository 订单仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetWithLines(ctx context.Context, id int64) (*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Order, error)
	ListLines(ctx context.Context, orderIDs []int64) ([]Line, error)
	Count(ctx context.Context) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}
