package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/embutidos/internal/datamodels/order"
	"github.com/example/embutidos/internal/datamodels/payment"
	"github.com/example/embutidos/internal/datamodels/product"
	"github.com/example/embutidos/internal/datamodels/user"
)

func TestOrderAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.customer(t, "Ana", "Rojas", "ana@example.com")
	p := f.product(t, "Chorizo", "10.00", "6.00", 100)
	o := f.placeOrder(t, u.ID, order.StatusPaid, day0, order.Line{ProductID: p.ID, Quantity: 2, UnitPrice: dec("10.00")})
	f.record(t, o, payment.ChannelStripe, "cs_9", "20.00", day0)

	list, err := f.orderSvc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Stripe", list[0].ChannelLabel)
	assert.Equal(t, "Ana Rojas", list[0].Customer)

	d, err := f.orderSvc.Details(ctx, o.ID, 0)
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.Equal(t, "Chorizo", d.Items[0].ProductName)
	require.NotNil(t, d.Payment)
	assert.Equal(t, "cs_9", d.Payment.GatewayOrderID)

	// 其他用户看不到
	_, err = f.orderSvc.Details(ctx, o.ID, u.ID+100)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = f.orderSvc.Details(ctx, 9999, 0)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, f.orderSvc.UpdateStatus(ctx, o.ID, int(order.StatusShipped)))
	got, err := f.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, got.Status)

	err = f.orderSvc.UpdateStatus(ctx, o.ID, 9)
	assert.True(t, errors.Is(err, ErrValidation))
	err = f.orderSvc.UpdateStatus(ctx, 9999, int(order.StatusPaid))
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, f.orderSvc.ConfirmDelivery(ctx, o.ID))
	got, _ = f.orders.GetByID(ctx, o.ID)
	assert.Equal(t, order.StatusDelivered, got.Status)

	mine, err := f.orderSvc.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestUserRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.userSvc.Register(ctx, RegisterInput{
		FirstName: "Ana", LastName: "Rojas", Email: " Ana@Example.com ", Password: "secreto1", ConfirmPassword: "secreto1",
	})
	require.NoError(t, err)
	assert.Equal(t, user.RoleClient, u.Role)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEqual(t, "secreto1", u.PasswordHash)

	_, err = f.userSvc.Register(ctx, RegisterInput{FirstName: "Otra", LastName: "Ana", Email: "ana@example.com", Password: "secreto1"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "email")

	_, err = f.userSvc.Register(ctx, RegisterInput{Email: "bad", Password: "1"})
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "first_name")
	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields, "password")

	res, err := f.userSvc.Login(ctx, "ana@example.com", "secreto1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, u.ID, res.User.ID)

	_, err = f.userSvc.Login(ctx, "ana@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	_, err = f.userSvc.Login(ctx, "nobody@example.com", "secreto1")
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, err = f.userSvc.ToggleActive(ctx, u.ID)
	require.NoError(t, err)
	_, err = f.userSvc.Login(ctx, "ana@example.com", "secreto1")
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestUserAdminUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.customer(t, "Ana", "Rojas", "ana@example.com")
	f.customer(t, "Luis", "Paz", "luis@example.com")

	got, err := f.userSvc.Update(ctx, u.ID, UserUpdate{
		FirstName: "Ana María", LastName: "Rojas", Email: "ana@example.com", Role: user.RoleAdmin, State: user.StateInactive,
	})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, got.Role)
	assert.False(t, got.Active)

	stored, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana María", stored.FirstName)
	assert.Equal(t, "x", stored.PasswordHash, "password untouched")

	_, err = f.userSvc.Update(ctx, u.ID, UserUpdate{FirstName: "A", LastName: "R", Email: "luis@example.com", Role: "Root", State: user.StateActive})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields, "role")

	_, err = f.userSvc.Update(ctx, 9999, UserUpdate{FirstName: "A", LastName: "R", Email: "z@example.com", Role: user.RoleClient, State: user.StateActive})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, created, err := f.userSvc.EnsureAdmin(ctx, "admin@eltio.com", "admin123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, user.RoleAdmin, u.Role)

	again, created, err := f.userSvc.EnsureAdmin(ctx, "admin@eltio.com", "whatever")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
}

func TestProductAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProductService(f.products, f.categories)
	cats := NewCategoryService(f.categories)

	c, err := cats.Create(ctx, "Cerdo", "")
	require.NoError(t, err)
	_, err = cats.Create(ctx, "  ", "")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Create(ctx, ProductInput{Name: "", SalePrice: dec("0"), Stock: -1, CategoryID: ptr(int64(999))})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	for _, field := range []string{"name", "sale_price", "stock", "category_id"} {
		assert.Contains(t, ve.Fields, field)
	}

	p, err := svc.Create(ctx, ProductInput{Name: "Chorizo", SalePrice: dec("12.00"), ProductionCost: dec("7.00"), Stock: 5, CategoryID: &c.ID})
	require.NoError(t, err)
	assert.True(t, p.Active)

	p, err = svc.Update(ctx, p.ID, ProductInput{Name: "Chorizo picante", SalePrice: dec("13.00"), ProductionCost: dec("7.00"), Stock: 8, CategoryID: &c.ID})
	require.NoError(t, err)
	assert.Equal(t, "Chorizo picante", p.Name)

	_, err = svc.Update(ctx, 9999, ProductInput{Name: "X", SalePrice: dec("1.00")})
	assert.True(t, errors.Is(err, ErrNotFound))

	p, err = svc.ToggleActive(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, p.Active)

	_, err = svc.GetActive(ctx, p.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	list, err := svc.Catalog(ctx, product.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCatalogFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProductService(f.products, f.categories)
	f.product(t, "Chorizo", "10.00", "6.00", 5)
	f.product(t, "Jamón", "30.00", "20.00", 5)
	f.product(t, "Salchicha de cerdo", "5.00", "2.00", 5)

	list, err := svc.Catalog(ctx, product.Filter{Sort: "precio_asc"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Salchicha de cerdo", list[0].Name)

	limit := dec("12.00")
	list, err = svc.Catalog(ctx, product.Filter{MaxPrice: &limit, Sort: "nombre_asc"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Chorizo", list[0].Name)

	list, err = svc.Catalog(ctx, product.Filter{Search: "cerdo"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	latest, err := svc.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "Salchicha de cerdo", latest[0].Name)
}

func TestNewsCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewNewsService(f.news)
	at := day0
	svc.now = func() time.Time { at = at.Add(time.Hour); return at }

	first, err := svc.Create(ctx, 1, "Apertura", "Abrimos nueva sucursal")
	require.NoError(t, err)
	second, err := svc.Create(ctx, 1, "Ofertas", "Chorizo 2x1")
	require.NoError(t, err)

	list, err := svc.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	_, err = svc.Create(ctx, 1, "", "")
	assert.True(t, errors.Is(err, ErrValidation))

	upd, err := svc.Update(ctx, first.ID, "Apertura oficial", "Abrimos")
	require.NoError(t, err)
	assert.Equal(t, "Apertura oficial", upd.Title)

	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, first.ID), ErrNotFound))
	_, err = svc.Get(ctx, first.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.customer(t, "Ana", "Rojas", "ana@example.com")
	p := f.product(t, "Chorizo", "10.00", "6.00", 100)
	for i := 0; i < 7; i++ {
		f.placeOrder(t, u.ID, order.StatusPaid, day0.Add(time.Duration(i)*time.Hour),
			order.Line{ProductID: p.ID, Quantity: 1, UnitPrice: dec("10.00")})
	}

	sum, err := NewDashboardService(f.orders, f.users, f.news, f.products).Summary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, sum.Orders)
	assert.EqualValues(t, 1, sum.Users)
	assert.EqualValues(t, 1, sum.Products)
	assert.EqualValues(t, 0, sum.News)
	require.Len(t, sum.Recent, 5)
	assert.True(t, sum.Recent[0].PlacedAt.After(sum.Recent[4].PlacedAt))
}

func TestNotifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.customer(t, "Ana", "Rojas", "ana@example.com")
	p := f.product(t, "Chorizo", "10.00", "6.00", 3)
	o := f.placeOrder(t, u.ID, order.StatusPaid, day0, order.Line{ProductID: p.ID, Quantity: 2, UnitPrice: dec("10.00")})

	sender := &recordingSender{}
	n := NewNotifier(f.orderSvc, f.userSvc, f.reports, sender, "admin@eltio.com")

	require.NoError(t, n.OrderPlaced(ctx, &OrderPlacedEvent{OrderID: o.ID, UserID: &u.ID}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ana@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].HTML, "Chorizo")
	assert.Contains(t, sender.sent[0].HTML, "20.00")

	err := n.OrderPlaced(ctx, &OrderPlacedEvent{OrderID: 9999, UserID: &u.ID})
	assert.True(t, errors.Is(err, ErrNotFound))

	alerts, err := n.InventoryDigest(ctx, day0)
	require.NoError(t, err)
	assert.Len(t, alerts.LowStock, 1)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "admin@eltio.com", sender.sent[1].To)
	assert.Contains(t, sender.sent[1].HTML, "Chorizo")
}
