package controllers

import (
	"strconv"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/sessions"

	"github.com/example/embutidos/internal/service"
)

// CartController 会话购物车，表单操作完成后跳回 /cart
type CartController struct {
	cart *service.CartService
}

func NewCartController(cartSvc *service.CartService) *CartController {
	return &CartController{cart: cartSvc}
}

// sessionID 购物车以 iris 会话 ID 为键
func sessionID(ctx iris.Context) string {
	return sessions.Get(ctx).ID()
}

func productID(ctx iris.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.FormValue("product_id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(ctx, "product_id", "requerido")
		return 0, false
	}
	return id, true
}

func (c *CartController) done(ctx iris.Context, err error) {
	if err != nil {
		Fail(ctx, err)
		return
	}
	ctx.Redirect("/cart", iris.StatusFound)
}

// Show GET /cart，按当前价格返回购物车
func (c *CartController) Show(ctx iris.Context) {
	priced, err := c.cart.Read(ctx.Request().Context(), sessionID(ctx))
	if err != nil {
		Fail(ctx, err)
		return
	}
	OK(ctx, priced)
}

// Add POST /cart/add，quantity 缺省为 1
func (c *CartController) Add(ctx iris.Context) {
	id, ok := productID(ctx)
	if !ok {
		return
	}
	qty := int64(1)
	if raw := ctx.FormValue("quantity"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			BadRequest(ctx, "quantity", "debe ser numérico")
			return
		}
		qty = n
	}
	c.done(ctx, c.cart.Add(ctx.Request().Context(), sessionID(ctx), id, qty))
}

func (c *CartController) Increase(ctx iris.Context) {
	if id, ok := productID(ctx); ok {
		c.done(ctx, c.cart.Increase(ctx.Request().Context(), sessionID(ctx), id))
	}
}

func (c *CartController) Decrease(ctx iris.Context) {
	if id, ok := productID(ctx); ok {
		c.done(ctx, c.cart.Decrease(ctx.Request().Context(), sessionID(ctx), id))
	}
}

func (c *CartController) Remove(ctx iris.Context) {
	if id, ok := productID(ctx); ok {
		c.done(ctx, c.cart.Remove(ctx.Request().Context(), sessionID(ctx), id))
	}
}

func (c *CartController) Clear(ctx iris.Context) {
	c.done(ctx, c.cart.Clear(ctx.Request().Context(), sessionID(ctx)))
}
