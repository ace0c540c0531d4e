package server

import (
	"fmt"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/shopspring/decimal"

	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/datamodels/order"
	"github.com/example/embutidos/internal/datamodels/user"
	"github.com/example/embutidos/internal/middleware"
	"github.com/example/embutidos/internal/service"
	webcontrollers "github.com/example/embutidos/web/controllers"
)

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由
// 端口通常是 8081，与前台 Web 服务分离。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config, svc *Services) {
	app.Use(middleware.Metrics("admin"))
	app.Get("/metrics", middleware.MetricsHandler())
	app.Use(middleware.Identify(svc.Auth))

	userController := webcontrollers.NewUserController(svc.Users, svc.Orders, cfg.JWT.TTL)
	app.Post("/api/login", userController.APILogin)

	api := app.Party("/api", middleware.RequireRole(string(user.RoleAdmin)))

	// ---------- 首页统计 ----------

	api.Get("/dashboard", func(ctx iris.Context) {
		sum, err := svc.Dashboard.Summary(ctx.Request().Context())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, sum)
	})

	api.Get("/monitor", func(ctx iris.Context) {
		webcontrollers.OK(ctx, service.GetMonitor().GetStats())
	})

	api.Post("/monitor/reset", func(ctx iris.Context) {
		service.GetMonitor().Reset()
		webcontrollers.OK(ctx, nil)
	})

	// ---------- 商品管理 ----------

	// 商品列表（后台用：返回所有商品）
	api.Get("/products", func(ctx iris.Context) {
		list, err := svc.Products.ListAll(ctx.Request().Context())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, list)
	})

	api.Get("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		p, err := svc.Products.GetByID(ctx.Request().Context(), id)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, p)
	})

	// 创建商品
	api.Post("/products", func(ctx iris.Context) {
		in, ok := readProduct(ctx)
		if !ok {
			return
		}
		p, err := svc.Products.Create(ctx.Request().Context(), in)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, p)
	})

	// 更新商品
	api.Put("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		in, ok := readProduct(ctx)
		if !ok {
			return
		}
		p, err := svc.Products.Update(ctx.Request().Context(), id, in)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, p)
	})

	// 上架 / 下架切换
	api.Post("/products/{id:int64}/toggle", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		p, err := svc.Products.ToggleActive(ctx.Request().Context(), id)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, p)
	})

	// ---------- 分类 ----------

	api.Get("/categories", func(ctx iris.Context) {
		list, err := svc.Categories.List(ctx.Request().Context())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, list)
	})

	api.Post("/categories", func(ctx iris.Context) {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			webcontrollers.BadRequest(ctx, "body", "JSON inválido")
			return
		}
		c, err := svc.Categories.Create(ctx.Request().Context(), req.Name, req.Description)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, c)
	})

	// ---------- 订单管理 ----------

	api.Get("/orders", func(ctx iris.Context) {
		list, err := svc.Orders.List(ctx.Request().Context())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, list)
	})

	// 状态下拉框的可选项
	api.Get("/orders/statuses", func(ctx iris.Context) {
		webcontrollers.OK(ctx, order.Statuses())
	})

	api.Get("/orders/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		d, err := svc.Orders.Details(ctx.Request().Context(), id, 0)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, d)
	})

	api.Put("/orders/{id:int64}/status", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req struct {
			Status int `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			webcontrollers.BadRequest(ctx, "status", "requerido")
			return
		}
		if err := svc.Orders.UpdateStatus(ctx.Request().Context(), id, req.Status); err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, nil)
	})

	// 确认送达
	api.Post("/orders/{id:int64}/deliver", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := svc.Orders.ConfirmDelivery(ctx.Request().Context(), id); err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, nil)
	})

	// ---------- 用户管理 ----------

	api.Get("/users", func(ctx iris.Context) {
		list, err := svc.Users.List(ctx.Request().Context())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, list)
	})

	api.Get("/users/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		u, err := svc.Users.GetByID(ctx.Request().Context(), id)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, u)
	})

	api.Put("/users/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req service.UserUpdate
		if err := ctx.ReadJSON(&req); err != nil {
			webcontrollers.BadRequest(ctx, "body", "JSON inválido")
			return
		}
		u, err := svc.Users.Update(ctx.Request().Context(), id, req)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, u)
	})

	api.Post("/users/{id:int64}/toggle", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		u, err := svc.Users.ToggleActive(ctx.Request().Context(), id)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, u)
	})

	// ---------- 新闻 ----------

	api.Get("/news", func(ctx iris.Context) {
		list, err := svc.News.ListRecent(ctx.Request().Context())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, list)
	})

	api.Post("/news", func(ctx iris.Context) {
		var req newsRequest
		if err := ctx.ReadJSON(&req); err != nil {
			webcontrollers.BadRequest(ctx, "body", "JSON inválido")
			return
		}
		n, err := svc.News.Create(ctx.Request().Context(), middleware.UserID(ctx), req.Title, req.Body)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, n)
	})

	api.Put("/news/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		var req newsRequest
		if err := ctx.ReadJSON(&req); err != nil {
			webcontrollers.BadRequest(ctx, "body", "JSON inválido")
			return
		}
		n, err := svc.News.Update(ctx.Request().Context(), id, req.Title, req.Body)
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, n)
	})

	api.Delete("/news/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := svc.News.Delete(ctx.Request().Context(), id); err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, nil)
	})

	// ---------- 报表 ----------

	// 支付流水：filtro=todos|paypal|stripe|otro
	api.Get("/reports/payments", func(ctx iris.Context) {
		rep, err := svc.Reports.Payments(ctx.Request().Context(), ctx.URLParamDefault("filtro", service.PaymentsAll))
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, rep)
	})

	// 库存：filtro=vencidos|por_vencer|stock_bajo|stock_alto，缺省为全部
	api.Get("/reports/inventory", func(ctx iris.Context) {
		rep, err := svc.Reports.Inventory(ctx.Request().Context(), ctx.URLParam("filtro"), time.Now())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, rep)
	})

	api.Get("/reports/alerts", func(ctx iris.Context) {
		alerts, err := svc.Reports.Alerts(ctx.Request().Context(), time.Now())
		if err != nil {
			webcontrollers.Fail(ctx, err)
			return
		}
		webcontrollers.OK(ctx, alerts)
	})
}

type newsRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type productRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	CategoryID     *int64          `json:"category_id"`
	ProductionCost decimal.Decimal `json:"production_cost"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	Stock          int64           `json:"stock"`
	MinStock       *int64          `json:"min_stock"`
	ExpiresAt      string          `json:"expires_at"`
	ImageURL       string          `json:"image_url"`
	Active         *bool           `json:"active"`
}

func (r *productRequest) toInput() (service.ProductInput, error) {
	in := service.ProductInput{
		Name:           r.Name,
		Description:    r.Description,
		CategoryID:     r.CategoryID,
		ProductionCost: r.ProductionCost,
		SalePrice:      r.SalePrice,
		Stock:          r.Stock,
		MinStock:       r.MinStock,
		ImageURL:       r.ImageURL,
		Active:         r.Active,
	}
	if r.ExpiresAt != "" {
		t, err := parseAdminTime(r.ExpiresAt)
		if err != nil {
			return in, err
		}
		in.ExpiresAt = &t
	}
	return in, nil
}

func readProduct(ctx iris.Context) (service.ProductInput, bool) {
	var req productRequest
	if err := ctx.ReadJSON(&req); err != nil {
		webcontrollers.BadRequest(ctx, "body", "JSON inválido")
		return service.ProductInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		webcontrollers.BadRequest(ctx, "expires_at", "fecha inválida")
		return in, false
	}
	return in, true
}

// 支持多种常见时间格式，精确到秒；纯日期按当天零点
func parseAdminTime(v string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format: %s", v)
}
