package middleware

import (
	"strings"

	"github.com/kataras/iris/v12"

	"github.com/example/embutidos/internal/auth"
)

const (
	// TokenCookie 登录后写入的 cookie 名
	TokenCookie = "token"

	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxEmail  = "email"
)

func tokenFrom(ctx iris.Context) string {
	if c := ctx.GetCookie(TokenCookie); c != "" {
		return c
	}
	h := ctx.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return h
}

// Identify 有合法 token 时把用户信息写入 ctx.Values，不拦截请求
func Identify(a *auth.Authenticator) iris.Handler {
	return func(ctx iris.Context) {
		if tok := tokenFrom(ctx); tok != "" {
			if claims, err := a.Verify(ctx.Request().Context(), tok); err == nil {
				ctx.Values().Set(ctxUserID, claims.UserID)
				ctx.Values().Set(ctxRole, claims.Role)
				ctx.Values().Set(ctxEmail, claims.Email)
			}
		}
		ctx.Next()
	}
}

// UserID 当前登录用户，未登录为 0
func UserID(ctx iris.Context) int64 {
	return ctx.Values().GetInt64Default(ctxUserID, 0)
}

// Role 当前用户角色
func Role(ctx iris.Context) string {
	return ctx.Values().GetString(ctxRole)
}

// RequireLogin 未登录返回 401，需放在 Identify 之后
func RequireLogin() iris.Handler {
	return func(ctx iris.Context) {
		if UserID(ctx) == 0 {
			ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"code": iris.StatusUnauthorized, "msg": "debe iniciar sesión"})
			return
		}
		ctx.Next()
	}
}

// RequireRole 登录且角色匹配，否则 401/403
func RequireRole(role string) iris.Handler {
	return func(ctx iris.Context) {
		if UserID(ctx) == 0 {
			ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"code": iris.StatusUnauthorized, "msg": "debe iniciar sesión"})
			return
		}
		if Role(ctx) != role {
			ctx.StopWithJSON(iris.StatusForbidden, iris.Map{"code": iris.StatusForbidden, "msg": "acceso denegado"})
			return
		}
		ctx.Next()
	}
}
