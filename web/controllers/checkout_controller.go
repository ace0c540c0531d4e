package controllers

import (
	"github.com/kataras/iris/v12"

	"github.com/example/embutidos/internal/middleware"
	"github.com/example/embutidos/internal/service"
)

// CheckoutController 结算：现金、PayPal、Stripe，均要求已登录
type CheckoutController struct {
	checkout *service.CheckoutService
	domain   string
}

// NewCheckoutController domain 用于拼接 Stripe 回跳地址
func NewCheckoutController(checkoutSvc *service.CheckoutService, domain string) *CheckoutController {
	return &CheckoutController{checkout: checkoutSvc, domain: domain}
}

// Cash POST /checkout/cash
func (c *CheckoutController) Cash(ctx iris.Context) {
	o, err := c.checkout.PayCash(ctx.Request().Context(), sessionID(ctx), middleware.UserID(ctx))
	if err != nil {
		Fail(ctx, err)
		return
	}
	OK(ctx, o)
}

// PayPalCreate POST /checkout/paypal/create，返回给 PayPal JS SDK 的订单号
func (c *CheckoutController) PayPalCreate(ctx iris.Context) {
	id, err := c.checkout.CreatePayPalOrder(ctx.Request().Context(), sessionID(ctx))
	if err != nil {
		Fail(ctx, err)
		return
	}
	OK(ctx, iris.Map{"id": id})
}

// PayPalCapture POST /checkout/paypal/capture，order_id 可来自表单或 JSON
func (c *CheckoutController) PayPalCapture(ctx iris.Context) {
	id := ctx.FormValue("order_id")
	if id == "" {
		var body struct {
			OrderID string `json:"order_id"`
		}
		if err := ctx.ReadJSON(&body); err == nil {
			id = body.OrderID
		}
	}
	o, err := c.checkout.CapturePayPalOrder(ctx.Request().Context(), sessionID(ctx), middleware.UserID(ctx), id)
	if err != nil {
		Fail(ctx, err)
		return
	}
	OK(ctx, o)
}

// StripeCreate POST /checkout/stripe/create
func (c *CheckoutController) StripeCreate(ctx iris.Context) {
	res, err := c.checkout.CreateStripeSession(ctx.Request().Context(), sessionID(ctx), c.domain)
	if err != nil {
		Fail(ctx, err)
		return
	}
	OK(ctx, res)
}

// StripeSuccess GET /checkout/stripe/success?session_id=
func (c *CheckoutController) StripeSuccess(ctx iris.Context) {
	o, err := c.checkout.CompleteStripeSession(ctx.Request().Context(), sessionID(ctx), middleware.UserID(ctx), ctx.URLParam("session_id"))
	if err != nil {
		Fail(ctx, err)
		return
	}
	OK(ctx, o)
}
