package server

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/mvc"
	"github.com/kataras/iris/v12/sessions"

	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/middleware"
	webcontrollers "github.com/example/embutidos/web/controllers"
)

// RegisterRoutes 注册前台商店的 HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config, svc *Services) {
	app.Use(middleware.Metrics("store"))
	app.Get("/metrics", middleware.MetricsHandler())

	// 会话只用于给购物车一个稳定的键，空闲超时即丢弃
	sess := sessions.New(sessions.Config{
		Cookie:       cfg.Session.Cookie,
		Expires:      cfg.Session.IdleTimeout,
		AllowReclaim: true,
	})
	app.Use(sess.Handler())
	app.Use(middleware.Identify(svc.Auth))

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"code": 0,
			"msg":  "ok",
		})
	})

	// 首页：最新三个上架商品与最新新闻
	api.Get("/home", func(ctx iris.Context) {
		latest, err := svc.Products.Latest(ctx.Request().Context(), 3)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		news, err := svc.News.ListRecent(ctx.Request().Context())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, iris.Map{"products": latest, "news": news})
	})

	catalog := mvc.New(api.Party("/products"))
	catalog.Register(svc.Products)
	catalog.Handle(new(webcontrollers.CatalogController))

	api.Get("/categories", func(ctx iris.Context) {
		list, err := svc.Categories.List(ctx.Request().Context())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, list)
	})

	api.Get("/news", func(ctx iris.Context) {
		list, err := svc.News.ListRecent(ctx.Request().Context())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, list)
	})

	api.Get("/news/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		n, err := svc.News.Get(ctx.Request().Context(), id)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, n)
	})

	// 用户注册 / 登录表单
	userController := webcontrollers.NewUserController(svc.Users, svc.Orders, cfg.JWT.TTL)
	app.Post("/user/register", userController.PostRegister)
	app.Post("/user/login", userController.PostLogin)
	app.Get("/user/logout", userController.Logout)
	api.Post("/login", userController.APILogin)

	profile := api.Party("/profile", middleware.RequireLogin())
	profile.Get("/orders", userController.MyOrders)
	profile.Get("/orders/{id:int64}", userController.MyOrder)

	// 购物车
	cartController := webcontrollers.NewCartController(svc.Cart)
	cart := app.Party("/cart")
	cart.Get("/", cartController.Show)
	cart.Post("/add", cartController.Add)
	cart.Post("/increase", cartController.Increase)
	cart.Post("/decrease", cartController.Decrease)
	cart.Post("/remove", cartController.Remove)
	cart.Post("/clear", cartController.Clear)

	// 结算需要登录，并按客户端限流
	checkoutController := webcontrollers.NewCheckoutController(svc.Checkout, cfg.Stripe.Domain)
	checkout := app.Party("/checkout", middleware.RequireLogin(), middleware.CheckoutRateLimit())
	checkout.Post("/cash", checkoutController.Cash)
	checkout.Post("/paypal/create", checkoutController.PayPalCreate)
	checkout.Post("/paypal/capture", checkoutController.PayPalCapture)
	checkout.Post("/stripe/create", checkoutController.StripeCreate)
	checkout.Get("/stripe/success", checkoutController.StripeSuccess)
}
