package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Channel 支付渠道
type Channel string

const (
	ChannelPayPal Channel = "paypal"
	ChannelStripe Channel = "stripe"
	// ChannelCash 不落表，订单已付款但两个网关都没有记录时推断得出
	ChannelCash Channel = "cash"
)

// Label 报表中展示的渠道名
func (c Channel) Label() string {
	switch c {
	case ChannelPayPal:
		return "PayPal"
	case ChannelStripe:
		return "Stripe"
	default:
		return "Efectivo/Otro"
	}
}

// Record 网关支付记录，PayPal 与 Stripe 共用一张表，用 Channel 区分
type Record struct {
	ID      int64   `gorm:"primaryKey" json:"id"`
	OrderID int64   `gorm:"index;not null" json:"order_id"`
	Channel Channel `gorm:"size:16;not null;uniqueIndex:idx_channel_gateway_order" json:"channel"`
	// GatewayOrderID PayPal 订单号或 Stripe session id，用于幂等
	GatewayOrderID string          `gorm:"size:255;not null;uniqueIndex:idx_channel_gateway_order" json:"gateway_order_id"`
	TransactionID  string          `gorm:"size:255" json:"transaction_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status         string          `gorm:"size:50" json:"status"`
	PaidAt         time.Time       `gorm:"index" json:"paid_at"`
}

// TableName 支付表名
func (Record) TableName() string {
	return "payment_records"
}

// Repository 支付记录仓储接口
type Repository interface {
	GetByGatewayOrder(ctx context.Context, channel Channel, gatewayOrderID string) (*Record, error)
	ListAll(ctx context.Context) ([]*Record, error)
	ListByOrders(ctx context.Context, orderIDs []int64) ([]*Record, error)
}
