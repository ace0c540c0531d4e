package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/example/embutidos/internal/auth"
	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/datamodels/cart"
	"github.com/example/embutidos/internal/datamodels/category"
	"github.com/example/embutidos/internal/datamodels/news"
	"github.com/example/embutidos/internal/datamodels/order"
	"github.com/example/embutidos/internal/datamodels/payment"
	"github.com/example/embutidos/internal/datamodels/product"
	"github.com/example/embutidos/internal/datamodels/user"
	"github.com/example/embutidos/internal/gateway/paypal"
	"github.com/example/embutidos/internal/gateway/stripe"
	"github.com/example/embutidos/internal/infra/mail"
	"github.com/example/embutidos/internal/repository/memory"
	"github.com/example/embutidos/internal/repository/mysql"
	"github.com/example/embutidos/internal/testutil"
)

type fakePayPal struct {
	createErr  error
	capture    *paypal.Capture
	captureErr error
	created    []decimal.Decimal
	captured   []string
}

func (f *fakePayPal) CreateOrder(_ context.Context, total decimal.Decimal) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, total)
	return "PP-ORDER-1", nil
}

func (f *fakePayPal) CaptureOrder(_ context.Context, id string) (*paypal.Capture, error) {
	f.captured = append(f.captured, id)
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	c := *f.capture
	c.OrderID = id
	return &c, nil
}

type fakeStripe struct {
	params  []stripe.SessionParams
	session *stripe.Session
	getErr  error
	gets    int
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, p stripe.SessionParams) (*stripe.Session, error) {
	f.params = append(f.params, p)
	return &stripe.Session{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (f *fakeStripe) GetSession(_ context.Context, id string) (*stripe.Session, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	s := *f.session
	s.ID = id
	return &s, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, v)
	return nil
}

type recordingSender struct {
	sent []mail.Message
}

func (s *recordingSender) Send(m mail.Message) error {
	s.sent = append(s.sent, m)
	return nil
}

type fixture struct {
	db *gorm.DB

	products   product.Repository
	categories category.Repository
	orders     order.Repository
	payments   payment.Repository
	users      user.Repository
	news       news.Repository
	carts      cart.Repository

	cart     *CartService
	checkout *CheckoutService
	reports  *ReportService
	orderSvc *OrderService
	userSvc  *UserService

	pp     *fakePayPal
	stripe *fakeStripe
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:         db,
		products:   mysql.NewProductRepository(db),
		categories: mysql.NewCategoryRepository(db),
		orders:     mysql.NewOrderRepository(db),
		payments:   mysql.NewPaymentRepository(db),
		users:      mysql.NewUserRepository(db),
		news:       mysql.NewNewsRepository(db),
		carts:      memory.NewCartRepository(30 * time.Minute),
		pp:         &fakePayPal{},
		stripe:     &fakeStripe{},
		events:     &recordingPublisher{},
	}
	f.cart = NewCartService(f.carts, f.products)
	f.checkout = NewCheckoutService(db, f.carts, f.payments, f.orders, f.cart, f.pp, f.stripe, f.events)
	f.reports = NewReportService(f.orders, f.payments, f.products, f.users, ReportOptions{DefaultMinStock: 10, ExpiringWithin: 30 * 24 * time.Hour})
	f.orderSvc = NewOrderService(f.orders, f.payments, f.products, f.users)
	f.userSvc = NewUserService(f.users, auth.NewAuthenticator(&config.JWTConfig{Secret: "test", TTL: time.Hour}, nil))
	f.userSvc.cost = bcrypt.MinCost
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) product(t *testing.T, name, price, cost string, stock int64) *product.Product {
	t.Helper()
	p := &product.Product{
		Name:           name,
		SalePrice:      dec(price),
		ProductionCost: dec(cost),
		Stock:          stock,
		Active:         true,
		ReceivedAt:     time.Now(),
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) customer(t *testing.T, first, last, email string) *user.User {
	t.Helper()
	u := &user.User{
		FirstName:    first,
		LastName:     last,
		Email:        email,
		PasswordHash: "x",
		Role:         user.RoleClient,
		State:        user.StateActive,
		Active:       true,
		RegisteredAt: time.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) stock(t *testing.T, id int64) int64 {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	n, err := f.orders.Count(context.Background())
	require.NoError(t, err)
	return n
}
