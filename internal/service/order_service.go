package service

import (
	"context"
	"fmt"

	"github.com/example/embutidos/internal/datamodels/order"
	"github.com/example/embutidos/internal/datamodels/payment"
	"github.com/example/embutidos/internal/datamodels/product"
	"github.com/example/embutidos/internal/datamodels/user"
)

// OrderView 后台订单列表行
type OrderView struct {
	*order.Order
	Channel      payment.Channel `json:"channel"`
	ChannelLabel string          `json:"channel_label"`
	Customer     string          `json:"customer"`
}

// OrderLineView 订单明细带商品名
type OrderLineView struct {
	order.Line
	ProductName string `json:"product_name"`
}

// OrderDetails 订单详情
type OrderDetails struct {
	OrderView
	Items   []OrderLineView `json:"items"`
	Payment *payment.Record `json:"payment,omitempty"`
}

// OrderService 后台订单管理与个人中心订单
type OrderService struct {
	repo     order.Repository
	payments payment.Repository
	products product.Repository
	users    user.Repository
}

// NewOrderService 创建订单服务
func NewOrderService(repo order.Repository, payments payment.Repository, products product.Repository, users user.Repository) *OrderService {
	return &OrderService{repo: repo, payments: payments, products: products, users: users}
}

// ListRecent 查询最新的订单记录
func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.repo.ListRecent(ctx, limit)
}

// ListByUser 个人中心：自己的订单，最新在前
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *OrderService) views(ctx context.Context, orders []*order.Order) ([]OrderView, map[int64]*payment.Record, error) {
	ids := make([]int64, 0, len(orders))
	uids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		if o.UserID != nil {
			uids = append(uids, *o.UserID)
		}
	}
	records, err := s.payments.ListByOrders(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	idx := channelIndex(records)

	users, err := s.users.ListByIDs(ctx, uids)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName()
	}

	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		ch := channelOf(idx, o.ID)
		v := OrderView{Order: o, Channel: ch, ChannelLabel: ch.Label()}
		if o.UserID != nil {
			v.Customer = names[*o.UserID]
		}
		out = append(out, v)
	}
	return out, idx, nil
}

// List 全部订单，附带推断出的支付渠道
func (s *OrderService) List(ctx context.Context) ([]OrderView, error) {
	orders, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	views, _, err := s.views(ctx, orders)
	return views, err
}

// Details 订单详情；ownerID>0 时只允许查看自己的订单
func (s *OrderService) Details(ctx context.Context, id, ownerID int64) (*OrderDetails, error) {
	o, err := s.repo.GetWithLines(ctx, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	if ownerID > 0 && (o.UserID == nil || *o.UserID != ownerID) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}

	views, idx, err := s.views(ctx, []*order.Order{o})
	if err != nil {
		return nil, err
	}

	pids := make([]int64, 0, len(o.Lines))
	for _, l := range o.Lines {
		pids = append(pids, l.ProductID)
	}
	products, err := s.products.ListByIDs(ctx, pids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	d := &OrderDetails{OrderView: views[0], Payment: idx[o.ID]}
	for _, l := range o.Lines {
		d.Items = append(d.Items, OrderLineView{Line: l, ProductName: names[l.ProductID]})
	}
	return d, nil
}

// UpdateStatus 后台修改订单状态，只接受已定义的状态
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, raw int) error {
	st, err := order.ParseStatus(raw)
	if err != nil {
		return &ValidationError{Fields: map[string]string{"status": err.Error()}}
	}
	return notFound(s.repo.UpdateStatus(ctx, id, st), "order", id)
}

// ConfirmDelivery 标记为已送达
func (s *OrderService) ConfirmDelivery(ctx context.Context, id int64) error {
	return notFound(s.repo.UpdateStatus(ctx, id, order.StatusDelivered), "order", id)
}
