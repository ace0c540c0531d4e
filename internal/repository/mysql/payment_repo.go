package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/embutidos/internal/datamodels/payment"
)

type paymentRepo struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付记录仓储
func NewPaymentRepository(db *gorm.DB) payment.Repository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) GetByGatewayOrder(ctx context.Context, channel payment.Channel, gatewayOrderID string) (*payment.Record, error) {
	var rec payment.Record
	if err := r.db.WithContext(ctx).
		Where("channel = ? AND gateway_order_id = ?", channel, gatewayOrderID).
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *paymentRepo) ListAll(ctx context.Context) ([]*payment.Record, error) {
	var list []*payment.Record
	if err := r.db.WithContext(ctx).
		Order("paid_at DESC").
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *paymentRepo) ListByOrders(ctx context.Context, orderIDs []int64) ([]*payment.Record, error) {
	var list []*payment.Record
	if len(orderIDs) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
