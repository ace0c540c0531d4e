package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/embutidos/internal/datamodels/order"
	"github.com/example/embutidos/internal/datamodels/payment"
	"github.com/example/embutidos/internal/datamodels/product"
)

var day0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// placeOrder 直接写一张订单及其明细
func (f *fixture) placeOrder(t *testing.T, userID int64, status order.Status, at time.Time, lines ...order.Line) *order.Order {
	t.Helper()
	o := &order.Order{UserID: &userID, Status: status, PlacedAt: at, Total: order.LinesTotal(lines)}
	require.NoError(t, f.db.Omit("Lines").Create(o).Error)
	for i := range lines {
		lines[i].OrderID = o.ID
	}
	require.NoError(t, f.db.Create(&lines).Error)
	o.Lines = lines
	return o
}

func (f *fixture) record(t *testing.T, o *order.Order, ch payment.Channel, gatewayID, amount string, at time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&payment.Record{
		OrderID:        o.ID,
		Channel:        ch,
		GatewayOrderID: gatewayID,
		TransactionID:  "tx-" + gatewayID,
		Amount:         dec(amount),
		Status:         "COMPLETED",
		PaidAt:         at,
	}).Error)
}

func TestPaymentsLedgerPartition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.customer(t, "Ana", "Rojas", "ana@example.com")
	chorizo := f.product(t, "Chorizo", "10.00", "6.00", 100)
	jamon := f.product(t, "Jamón", "20.00", "15.00", 100)

	cash := f.placeOrder(t, u.ID, order.StatusShipped, day0,
		order.Line{ProductID: chorizo.ID, Quantity: 2, UnitPrice: dec("10.00")})
	pp := f.placeOrder(t, u.ID, order.StatusPaid, day0.Add(time.Hour),
		order.Line{ProductID: jamon.ID, Quantity: 1, UnitPrice: dec("20.00")})
	st := f.placeOrder(t, u.ID, order.StatusDelivered, day0.Add(2*time.Hour),
		order.Line{ProductID: chorizo.ID, Quantity: 1, UnitPrice: dec("10.00")},
		order.Line{ProductID: jamon.ID, Quantity: 1, UnitPrice: dec("20.00")})
	pending := f.placeOrder(t, u.ID, order.StatusPending, day0.Add(3*time.Hour),
		order.Line{ProductID: chorizo.ID, Quantity: 1, UnitPrice: dec("10.00")})

	f.record(t, pp, payment.ChannelPayPal, "PP-1", "20.00", pp.PlacedAt)
	f.record(t, st, payment.ChannelStripe, "cs_1", "30.00", st.PlacedAt)

	rep, err := f.reports.Payments(ctx, PaymentsAll)
	require.NoError(t, err)
	require.Len(t, rep.Entries, 3)

	// 最新在前
	assert.Equal(t, st.ID, rep.Entries[0].OrderID)
	assert.Equal(t, payment.ChannelStripe, rep.Entries[0].Channel)
	assert.Equal(t, pp.ID, rep.Entries[1].OrderID)
	assert.Equal(t, "PayPal", rep.Entries[1].ChannelLabel)
	assert.Equal(t, cash.ID, rep.Entries[2].OrderID)
	assert.Equal(t, "Efectivo/Otro", rep.Entries[2].ChannelLabel)

	seen := map[int64]int{}
	for _, e := range rep.Entries {
		seen[e.OrderID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "order %d listed once", id)
	}
	assert.NotContains(t, seen, pending.ID)

	assert.True(t, dec("70.00").Equal(rep.Revenue), rep.Revenue.String())
	// 成本按当前成本：2×6 + 1×15 + (6 + 15)
	assert.True(t, dec("48.00").Equal(rep.Cost), rep.Cost.String())
	assert.True(t, dec("22.00").Equal(rep.Profit), rep.Profit.String())

	for filter, want := range map[string]int64{PaymentsPayPal: pp.ID, PaymentsStripe: st.ID, PaymentsOther: cash.ID} {
		r, err := f.reports.Payments(ctx, filter)
		require.NoError(t, err)
		require.Len(t, r.Entries, 1, filter)
		assert.Equal(t, want, r.Entries[0].OrderID, filter)
	}

	paypalOnly, err := f.reports.Payments(ctx, PaymentsPayPal)
	require.NoError(t, err)
	assert.True(t, dec("15.00").Equal(paypalOnly.Cost))
	assert.True(t, dec("5.00").Equal(paypalOnly.Profit))

	unknown, err := f.reports.Payments(ctx, "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, PaymentsAll, unknown.Filter)
	assert.Len(t, unknown.Entries, 3)
}

func TestPaymentsPayPalWinsOverStripe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.customer(t, "Ana", "Rojas", "ana@example.com")
	p := f.product(t, "Chorizo", "10.00", "6.00", 100)

	o := f.placeOrder(t, u.ID, order.StatusPaid, day0, order.Line{ProductID: p.ID, Quantity: 1, UnitPrice: dec("10.00")})
	f.record(t, o, payment.ChannelStripe, "cs_dup", "10.00", day0)
	f.record(t, o, payment.ChannelPayPal, "PP-dup", "10.00", day0)

	rep, err := f.reports.Payments(ctx, PaymentsAll)
	require.NoError(t, err)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, payment.ChannelPayPal, rep.Entries[0].Channel)

	stripeOnly, err := f.reports.Payments(ctx, PaymentsStripe)
	require.NoError(t, err)
	assert.Empty(t, stripeOnly.Entries)
}

func TestPaymentsCostUsesCurrentProductionCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.customer(t, "Ana", "Rojas", "ana@example.com")
	p := f.product(t, "Chorizo", "10.00", "6.00", 100)
	f.placeOrder(t, u.ID, order.StatusPaid, day0, order.Line{ProductID: p.ID, Quantity: 3, UnitPrice: dec("10.00")})

	p.ProductionCost = dec("7.00")
	require.NoError(t, f.products.Update(ctx, p))

	rep, err := f.reports.Payments(ctx, PaymentsAll)
	require.NoError(t, err)
	assert.True(t, dec("21.00").Equal(rep.Cost))
	assert.True(t, dec("9.00").Equal(rep.Profit))
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) stocked(t *testing.T, name string, stock int64, minStock *int64, expires *time.Time) *product.Product {
	t.Helper()
	p := &product.Product{
		Name:           name,
		SalePrice:      dec("1.00"),
		ProductionCost: dec("0.50"),
		Stock:          stock,
		MinStock:       minStock,
		ExpiresAt:      expires,
		Active:         true,
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func names(items []InventoryItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func TestInventoryLowStockThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stocked(t, "ten", 10, ptr(int64(10)), nil)
	f.stocked(t, "eleven", 11, ptr(int64(10)), nil)
	f.stocked(t, "default-nine", 9, nil, nil)
	f.stocked(t, "custom", 4, ptr(int64(3)), nil)

	rep, err := f.reports.Inventory(ctx, InventoryLowStock, day0)
	require.NoError(t, err)
	assert.Equal(t, []string{"default-nine", "ten"}, names(rep.Items))
}

func TestInventoryExpiryViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := day0
	f.stocked(t, "expired-old", 50, nil, ptr(now.AddDate(0, 0, -20)))
	f.stocked(t, "expired-new", 50, nil, ptr(now.AddDate(0, 0, -1)))
	f.stocked(t, "soon", 50, nil, ptr(now.AddDate(0, 0, 3)))
	f.stocked(t, "edge", 50, nil, ptr(now.AddDate(0, 0, 30)))
	f.stocked(t, "later", 50, nil, ptr(now.AddDate(0, 0, 31)))
	f.stocked(t, "no-expiry", 50, nil, nil)

	expired, err := f.reports.Inventory(ctx, InventoryExpired, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"expired-old", "expired-new"}, names(expired.Items))

	expiring, err := f.reports.Inventory(ctx, InventoryExpiring, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"soon", "edge"}, names(expiring.Items))
}

func TestInventoryStockOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stocked(t, "mid", 20, nil, nil)
	f.stocked(t, "high", 90, nil, nil)
	f.stocked(t, "low", 1, nil, nil)

	high, err := f.reports.Inventory(ctx, InventoryHighStock, day0)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "mid", "low"}, names(high.Items))

	all, err := f.reports.Inventory(ctx, "cualquiera", day0)
	require.NoError(t, err)
	assert.Equal(t, InventoryAll, all.Filter)
	assert.Len(t, all.Items, 3)
}

func TestAlertsSkipInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stocked(t, "low", 2, nil, nil)
	off := f.stocked(t, "low-off", 2, nil, nil)
	require.NoError(t, f.products.SetActive(ctx, off.ID, false))
	f.stocked(t, "fine", 50, nil, ptr(day0.AddDate(1, 0, 0)))

	a, err := f.reports.Alerts(ctx, day0)
	require.NoError(t, err)
	assert.Equal(t, []string{"low"}, names(a.LowStock))
	assert.Empty(t, a.Expired)
	assert.Empty(t, a.Expiring)
	assert.False(t, a.Empty())
}

func TestPaymentsOtherOnlySettledOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.customer(t, "Ana", "Rojas", "ana@example.com")
	p := f.product(t, "Chorizo", "10.00", "6.00", 100)

	for i, st := range order.Statuses() {
		f.placeOrder(t, u.ID, st, day0.Add(time.Duration(i)*time.Hour),
			order.Line{ProductID: p.ID, Quantity: 1, UnitPrice: dec("10.00")})
	}

	rep, err := f.reports.Payments(ctx, PaymentsOther)
	require.NoError(t, err)
	require.Len(t, rep.Entries, len(order.SettledStatuses()))
	for _, e := range rep.Entries {
		assert.NotEqual(t, order.StatusPending.String(), e.Status)
		assert.Equal(t, payment.ChannelCash, e.Channel)
	}
	assert.True(t, dec("30.00").Equal(rep.Revenue), rep.Revenue.String())
}
