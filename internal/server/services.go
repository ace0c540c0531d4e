package server

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/embutidos/internal/auth"
	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/datamodels/cart"
	"github.com/example/embutidos/internal/gateway/paypal"
	"github.com/example/embutidos/internal/gateway/stripe"
	"github.com/example/embutidos/internal/infra/mq"
	"github.com/example/embutidos/internal/infra/redis"
	"github.com/example/embutidos/internal/repository/memory"
	"github.com/example/embutidos/internal/repository/mysql"
	rediscart "github.com/example/embutidos/internal/repository/redis"
	"github.com/example/embutidos/internal/service"
)

// Services 两个 HTTP 服务共用的服务集合
type Services struct {
	Auth       *auth.Authenticator
	Cart       *service.CartService
	Checkout   *service.CheckoutService
	Products   *service.ProductService
	Categories *service.CategoryService
	News       *service.NewsService
	Users      *service.UserService
	Orders     *service.OrderService
	Reports    *service.ReportService
	Dashboard  *service.DashboardService
}

// Deps 构建 Services 所需的基础设施
type Deps struct {
	DB     *gorm.DB
	Carts  cart.Repository
	Auth   *auth.Authenticator
	PayPal service.PayPalGateway
	Stripe service.StripeGateway
	Events mq.Publisher
	Report service.ReportOptions
}

// NewServices 组装仓储与服务
func NewServices(d Deps) *Services {
	productRepo := mysql.NewProductRepository(d.DB)
	categoryRepo := mysql.NewCategoryRepository(d.DB)
	orderRepo := mysql.NewOrderRepository(d.DB)
	paymentRepo := mysql.NewPaymentRepository(d.DB)
	userRepo := mysql.NewUserRepository(d.DB)
	newsRepo := mysql.NewNewsRepository(d.DB)

	cartSvc := service.NewCartService(d.Carts, productRepo)
	return &Services{
		Auth:       d.Auth,
		Cart:       cartSvc,
		Checkout:   service.NewCheckoutService(d.DB, d.Carts, paymentRepo, orderRepo, cartSvc, d.PayPal, d.Stripe, d.Events),
		Products:   service.NewProductService(productRepo, categoryRepo),
		Categories: service.NewCategoryService(categoryRepo),
		News:       service.NewNewsService(newsRepo),
		Users:      service.NewUserService(userRepo, d.Auth),
		Orders:     service.NewOrderService(orderRepo, paymentRepo, productRepo, userRepo),
		Reports:    service.NewReportService(orderRepo, paymentRepo, productRepo, userRepo, d.Report),
		Dashboard:  service.NewDashboardService(orderRepo, userRepo, newsRepo, productRepo),
	}
}

// BuildServices 按配置初始化 MySQL / Redis / RabbitMQ 与支付网关
func BuildServices(cfg *config.Config) *Services {
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	var (
		carts cart.Repository
		cache *auth.TokenCache
	)
	if redisClient != nil {
		keys := redis.NewKeyspace(cfg.Redis.Shards, cfg.Redis.ShardReplicas)
		carts = rediscart.NewCartRepository(redisClient, keys, cfg.Session.IdleTimeout)
		cache = auth.NewTokenCache(redisClient, keys, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)
	} else {
		carts = memory.NewCartRepository(cfg.Session.IdleTimeout)
	}

	d := Deps{
		DB:     db,
		Carts:  carts,
		Auth:   auth.NewAuthenticator(&cfg.JWT, cache),
		Events: mq.NewPublisher(mqConn, cfg.RabbitMQ.Queue),
		Report: service.ReportOptions{
			DefaultMinStock: cfg.Report.DefaultMinStock,
			ExpiringWithin:  cfg.Report.ExpiringWithin,
		},
	}
	// 未配置凭据的渠道保持 nil，结算时返回网关不可用
	if cfg.PayPal.ClientID != "" {
		d.PayPal = paypal.New(&cfg.PayPal)
	} else {
		zap.L().Warn("paypal credentials missing, channel disabled")
	}
	if cfg.Stripe.SecretKey != "" {
		d.Stripe = stripe.New(&cfg.Stripe)
	} else {
		zap.L().Warn("stripe secret key missing, channel disabled")
	}
	return NewServices(d)
}
