package controllers

import (
	"net/http"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/example/embutidos/internal/middleware"
	"github.com/example/embutidos/internal/service"
)

// UserController 负责注册/登录表单与个人订单
type UserController struct {
	userService  *service.UserService
	orderService *service.OrderService
	tokenTTL     time.Duration
}

// NewUserController 构造函数，供路由层复用同一套逻辑。
func NewUserController(userSvc *service.UserService, orderSvc *service.OrderService, tokenTTL time.Duration) *UserController {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &UserController{userService: userSvc, orderService: orderSvc, tokenTTL: tokenTTL}
}

func (c *UserController) setToken(ctx iris.Context, token string, maxAge int) {
	ctx.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// PostRegister 处理注册表单提交，成功后跳转到登录页。
func (c *UserController) PostRegister(ctx iris.Context) {
	in := service.RegisterInput{
		FirstName:       ctx.FormValue("first_name"),
		LastName:        ctx.FormValue("last_name"),
		SecondLastName:  ctx.FormValue("second_last_name"),
		Phone:           ctx.FormValue("phone"),
		Email:           ctx.FormValue("email"),
		Password:        ctx.FormValue("password"),
		ConfirmPassword: ctx.FormValue("confirm_password"),
	}
	if _, err := c.userService.Register(ctx.Request().Context(), in); err != nil {
		Fail(ctx, err)
		return
	}
	ctx.Redirect("/user/login", iris.StatusFound)
}

// PostLogin 处理登录表单提交，成功后写 cookie 并跳回首页。
func (c *UserController) PostLogin(ctx iris.Context) {
	res, err := c.userService.Login(ctx.Request().Context(), ctx.FormValue("email"), ctx.FormValue("password"))
	if err != nil {
		Fail(ctx, err)
		return
	}
	c.setToken(ctx, res.Token, int(c.tokenTTL.Seconds()))
	ctx.Redirect("/", iris.StatusFound)
}

// APILogin JSON 登录，返回 token 供 Authorization 头使用
func (c *UserController) APILogin(ctx iris.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ReadJSON(&req); err != nil {
		BadRequest(ctx, "body", "JSON inválido")
		return
	}
	res, err := c.userService.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		Fail(ctx, err)
		return
	}
	OK(ctx, res)
}

// Logout 清理 cookie 并回到首页。
func (c *UserController) Logout(ctx iris.Context) {
	c.setToken(ctx, "", -1)
	ctx.Redirect("/", iris.StatusFound)
}

// MyOrders 当前用户的订单，最新在前
func (c *UserController) MyOrders(ctx iris.Context) {
	list, err := c.orderService.ListByUser(ctx.Request().Context(), middleware.UserID(ctx))
	if err != nil {
		Fail(ctx, err)
		return
	}
	OK(ctx, list)
}

// MyOrder 当前用户的订单详情，别人的订单返回 404
func (c *UserController) MyOrder(ctx iris.Context) {
	id, _ := ctx.Params().GetInt64("id")
	d, err := c.orderService.Details(ctx.Request().Context(), id, middleware.UserID(ctx))
	if err != nil {
		Fail(ctx, err)
		return
	}
	OK(ctx, d)
}
