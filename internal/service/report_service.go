package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/embutidos/internal/datamodels/news"
	"github.com/example/embutidos/internal/datamodels/order"
	"github.com/example/embutidos/internal/datamodels/payment"
	"github.com/example/embutidos/internal/datamodels/product"
	"github.com/example/embutidos/internal/datamodels/user"
)

// 支付报表筛选
const (
	PaymentsAll    = "todos"
	PaymentsPayPal = "paypal"
	PaymentsStripe = "stripe"
	PaymentsOther  = "otro"
)

// 库存报表筛选
const (
	InventoryAll       = ""
	InventoryExpired   = "vencidos"
	InventoryExpiring  = "por_vencer"
	InventoryLowStock  = "stock_bajo"
	InventoryHighStock = "stock_alto"
)

// LedgerEntry 统一流水中的一行，每个订单至多一行
type LedgerEntry struct {
	OrderID       int64           `json:"order_id"`
	Channel       payment.Channel `json:"channel"`
	ChannelLabel  string          `json:"channel_label"`
	Customer      string          `json:"customer"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Date          time.Time       `json:"date"`
}

// PaymentsReport 支付报表
type PaymentsReport struct {
	Filter  string          `json:"filter"`
	Entries []LedgerEntry   `json:"entries"`
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
	Profit  decimal.Decimal `json:"profit"`
}

// InventoryItem 库存报表中的商品
type InventoryItem struct {
	*product.Product
	Threshold int64 `json:"threshold"`
	LowStock  bool  `json:"low_stock"`
	Expired   bool  `json:"expired"`
	Expiring  bool  `json:"expiring"`
}

// InventoryReport 库存报表
type InventoryReport struct {
	Filter string          `json:"filter"`
	Items  []InventoryItem `json:"items"`
}

// Alerts 定时告警内容
type Alerts struct {
	LowStock []InventoryItem `json:"low_stock"`
	Expired  []InventoryItem `json:"expired"`
	Expiring []InventoryItem `json:"expiring"`
}

// Empty 没有需要告警的商品
func (a *Alerts) Empty() bool {
	return len(a.LowStock) == 0 && len(a.Expired) == 0 && len(a.Expiring) == 0
}

// ReportOptions 报表阈值
type ReportOptions struct {
	DefaultMinStock int64
	ExpiringWithin  time.Duration
}

// ReportService 后台报表，只读
type ReportService struct {
	orders   order.Repository
	payments payment.Repository
	products product.Repository
	users    user.Repository
	opts     ReportOptions
}

// NewReportService 创建报表服务
func NewReportService(orders order.Repository, payments payment.Repository, products product.Repository, users user.Repository, opts ReportOptions) *ReportService {
	if opts.DefaultMinStock <= 0 {
		opts.DefaultMinStock = 10
	}
	if opts.ExpiringWithin <= 0 {
		opts.ExpiringWithin = 30 * 24 * time.Hour
	}
	return &ReportService{orders: orders, payments: payments, products: products, users: users, opts: opts}
}

// channelIndex 每个订单对应一条网关记录，PayPal 优先于 Stripe
func channelIndex(records []*payment.Record) map[int64]*payment.Record {
	idx := make(map[int64]*payment.Record, len(records))
	for _, r := range records {
		prev, ok := idx[r.OrderID]
		if !ok || (prev.Channel != payment.ChannelPayPal && r.Channel == payment.ChannelPayPal) {
			idx[r.OrderID] = r
		}
	}
	return idx
}

// channelOf 推断订单渠道：有网关记录取记录渠道，否则为现金/其他
func channelOf(idx map[int64]*payment.Record, orderID int64) payment.Channel {
	if r, ok := idx[orderID]; ok {
		return r.Channel
	}
	return payment.ChannelCash
}

func normalizePaymentsFilter(f string) string {
	switch f = strings.ToLower(strings.TrimSpace(f)); f {
	case PaymentsPayPal, PaymentsStripe, PaymentsOther:
		return f
	default:
		return PaymentsAll
	}
}

type paymentsFilter string

func (f paymentsFilter) match(ch payment.Channel) bool {
	switch string(f) {
	case PaymentsPayPal:
		return ch == payment.ChannelPayPal
	case PaymentsStripe:
		return ch == payment.ChannelStripe
	case PaymentsOther:
		return ch == payment.ChannelCash
	default:
		return true
	}
}

// ledgerOrders 只看"其他"渠道时，候选订单仅限已付款及之后的状态
func (s *ReportService) ledgerOrders(ctx context.Context, filter string) ([]*order.Order, error) {
	if filter == PaymentsOther {
		return s.orders.ListByStatus(ctx, order.SettledStatuses()...)
	}
	return s.orders.ListAll(ctx)
}

// Payments 统一支付流水：网关记录加上已付款但无网关记录的订单
func (s *ReportService) Payments(ctx context.Context, filter string) (*PaymentsReport, error) {
	filter = normalizePaymentsFilter(filter)
	match := paymentsFilter(filter)

	orders, err := s.ledgerOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	records, err := s.payments.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := channelIndex(records)

	entries := make([]LedgerEntry, 0, len(orders))
	listed := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if rec, ok := idx[o.ID]; ok {
			if !match.match(rec.Channel) {
				continue
			}
			entries = append(entries, LedgerEntry{
				OrderID:       o.ID,
				Channel:       rec.Channel,
				ChannelLabel:  rec.Channel.Label(),
				Amount:        rec.Amount,
				TransactionID: rec.TransactionID,
				Status:        rec.Status,
				Date:          rec.PaidAt,
			})
			listed = append(listed, o)
			continue
		}
		if !o.Status.Settled() || !match.match(payment.ChannelCash) {
			continue
		}
		entries = append(entries, LedgerEntry{
			OrderID:      o.ID,
			Channel:      payment.ChannelCash,
			ChannelLabel: payment.ChannelCash.Label(),
			Amount:       o.Total,
			Status:       o.Status.String(),
			Date:         o.PlacedAt,
		})
		listed = append(listed, o)
	}

	if err := s.fillCustomers(ctx, entries, listed); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].OrderID > entries[j].OrderID
	})

	revenue := decimal.Zero
	for _, e := range entries {
		revenue = revenue.Add(e.Amount)
	}
	cost, err := s.productionCost(ctx, listed)
	if err != nil {
		return nil, err
	}

	return &PaymentsReport{
		Filter:  filter,
		Entries: entries,
		Revenue: revenue,
		Cost:    cost,
		Profit:  revenue.Sub(cost),
	}, nil
}

func (s *ReportService) fillCustomers(ctx context.Context, entries []LedgerEntry, orders []*order.Order) error {
	owner := make(map[int64]int64, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		if o.UserID != nil {
			owner[o.ID] = *o.UserID
			ids = append(ids, *o.UserID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName()
	}
	for i := range entries {
		if uid, ok := owner[entries[i].OrderID]; ok {
			entries[i].Customer = names[uid]
		}
	}
	return nil
}

// productionCost 明细数量 × 商品当前成本
func (s *ReportService) productionCost(ctx context.Context, orders []*order.Order) (decimal.Decimal, error) {
	if len(orders) == 0 {
		return decimal.Zero, nil
	}
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	lines, err := s.orders.ListLines(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}
	pids := make([]int64, 0, len(lines))
	for _, l := range lines {
		pids = append(pids, l.ProductID)
	}
	products, err := s.products.ListByIDs(ctx, pids)
	if err != nil {
		return decimal.Zero, err
	}
	costs := make(map[int64]decimal.Decimal, len(products))
	for _, p := range products {
		costs[p.ID] = p.ProductionCost
	}

	total := decimal.Zero
	for _, l := range lines {
		if c, ok := costs[l.ProductID]; ok {
			total = total.Add(c.Mul(decimal.NewFromInt(l.Quantity)))
		}
	}
	return total, nil
}

func (s *ReportService) item(p *product.Product, now time.Time) InventoryItem {
	threshold := s.opts.DefaultMinStock
	if p.MinStock != nil {
		threshold = *p.MinStock
	}
	it := InventoryItem{Product: p, Threshold: threshold, LowStock: p.Stock <= threshold}
	if p.ExpiresAt != nil {
		it.Expired = p.ExpiresAt.Before(now)
		it.Expiring = !it.Expired && !p.ExpiresAt.After(now.Add(s.opts.ExpiringWithin))
	}
	return it
}

// Inventory 库存视图，按筛选条件过滤和排序
func (s *ReportService) Inventory(ctx context.Context, filter string, now time.Time) (*InventoryReport, error) {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	switch filter = strings.ToLower(strings.TrimSpace(filter)); filter {
	case InventoryExpired, InventoryExpiring, InventoryLowStock, InventoryHighStock:
	default:
		filter = InventoryAll
	}

	items := make([]InventoryItem, 0, len(products))
	for _, p := range products {
		it := s.item(p, now)
		switch filter {
		case InventoryExpired:
			if !it.Expired {
				continue
			}
		case InventoryExpiring:
			if !it.Expiring {
				continue
			}
		case InventoryLowStock:
			if !it.LowStock {
				continue
			}
		}
		items = append(items, it)
	}

	switch filter {
	case InventoryExpired, InventoryExpiring:
		sort.SliceStable(items, func(i, j int) bool { return items[i].ExpiresAt.Before(*items[j].ExpiresAt) })
	case InventoryLowStock:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Stock < items[j].Stock })
	case InventoryHighStock:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Stock > items[j].Stock })
	}
	return &InventoryReport{Filter: filter, Items: items}, nil
}

// Alerts 汇总低库存、已过期、即将过期的商品，只看上架商品
func (s *ReportService) Alerts(ctx context.Context, now time.Time) (*Alerts, error) {
	out := &Alerts{}
	for _, f := range []string{InventoryLowStock, InventoryExpired, InventoryExpiring} {
		rep, err := s.Inventory(ctx, f, now)
		if err != nil {
			return nil, err
		}
		active := make([]InventoryItem, 0, len(rep.Items))
		for _, it := range rep.Items {
			if it.Active {
				active = append(active, it)
			}
		}
		switch f {
		case InventoryLowStock:
			out.LowStock = active
		case InventoryExpired:
			out.Expired = active
		case InventoryExpiring:
			out.Expiring = active
		}
	}
	return out, nil
}

// DashboardSummary 后台首页数据
type DashboardSummary struct {
	Orders   int64          `json:"orders"`
	Users    int64          `json:"users"`
	News     int64          `json:"news"`
	Products int64          `json:"products"`
	Recent   []*order.Order `json:"recent"`
}

// DashboardService 后台首页
type DashboardService struct {
	orders   order.Repository
	users    user.Repository
	news     news.Repository
	products product.Repository
}

// NewDashboardService 创建首页服务
func NewDashboardService(orders order.Repository, users user.Repository, news news.Repository, products product.Repository) *DashboardService {
	return &DashboardService{orders: orders, users: users, news: news, products: products}
}

// Summary 各实体数量与最近五个订单
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	var (
		out DashboardSummary
		err error
	)
	if out.Orders, err = s.orders.Count(ctx); err != nil {
		return nil, err
	}
	if out.Users, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if out.News, err = s.news.Count(ctx); err != nil {
		return nil, err
	}
	if out.Products, err = s.products.Count(ctx); err != nil {
		return nil, err
	}
	if out.Recent, err = s.orders.ListRecent(ctx, 5); err != nil {
		return nil, err
	}
	return &out, nil
}
