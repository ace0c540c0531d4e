package controllers

import (
	"errors"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/example/embutidos/internal/service"
)

// OK 统一的成功响应
func OK(ctx iris.Context, data any) {
	_ = ctx.JSON(iris.Map{"code": 0, "msg": "ok", "data": data})
}

// Fail 把服务层错误映射成 HTTP 状态码，未知错误只返回笼统信息
func Fail(ctx iris.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": iris.StatusBadRequest, "msg": "datos inválidos", "data": ve.Fields})
	case errors.Is(err, service.ErrValidation):
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": iris.StatusBadRequest, "msg": err.Error()})
	case errors.Is(err, service.ErrEmptyCart):
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": iris.StatusBadRequest, "msg": "el carrito está vacío"})
	case errors.Is(err, service.ErrProductUnavailable):
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": iris.StatusBadRequest, "msg": "producto no disponible"})
	case errors.Is(err, service.ErrPaymentNotCompleted):
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"code": iris.StatusBadRequest, "msg": "el pago no fue completado"})
	case errors.Is(err, service.ErrNotFound):
		ctx.StopWithJSON(iris.StatusNotFound, iris.Map{"code": iris.StatusNotFound, "msg": "no encontrado"})
	case errors.Is(err, service.ErrUnauthorized):
		ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"code": iris.StatusUnauthorized, "msg": "credenciales inválidas"})
	case errors.Is(err, service.ErrForbidden):
		ctx.StopWithJSON(iris.StatusForbidden, iris.Map{"code": iris.StatusForbidden, "msg": "acceso denegado"})
	default:
		zap.L().Error("request failed",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.Path()),
			zap.Error(err))
		ctx.StopWithJSON(iris.StatusInternalServerError, iris.Map{"code": iris.StatusInternalServerError, "msg": "error interno"})
	}
}

// BadRequest 参数解析失败
func BadRequest(ctx iris.Context, field, msg string) {
	Fail(ctx, &service.ValidationError{Fields: map[string]string{field: msg}})
}
