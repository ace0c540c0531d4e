package controllers

import (
	"strconv"

	"github.com/kataras/iris/v12"
	"github.com/shopspring/decimal"

	"github.com/example/embutidos/internal/datamodels/product"
	"github.com/example/embutidos/internal/service"
)

// CatalogController 前台商品目录（MVC），挂载在 /api/products
type CatalogController struct {
	Ctx      iris.Context
	Products *service.ProductService
}

// Get 处理 GET /api/products?categoria=&q=&precio_max=&orden=
func (c *CatalogController) Get() {
	var f product.Filter
	if raw := c.Ctx.URLParam("categoria"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			BadRequest(c.Ctx, "categoria", "debe ser numérico")
			return
		}
		f.CategoryID = &id
	}
	if raw := c.Ctx.URLParam("precio_max"); raw != "" {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			BadRequest(c.Ctx, "precio_max", "debe ser un número")
			return
		}
		f.MaxPrice = &limit
	}
	f.Search = c.Ctx.URLParam("q")
	f.Sort = c.Ctx.URLParam("orden")

	list, err := c.Products.Catalog(c.Ctx.Request().Context(), f)
	if err != nil {
		Fail(c.Ctx, err)
		return
	}
	OK(c.Ctx, list)
}

// GetBy 处理 GET /api/products/{id}，下架商品按不存在处理
func (c *CatalogController) GetBy(id int64) {
	p, err := c.Products.GetActive(c.Ctx.Request().Context(), id)
	if err != nil {
		Fail(c.Ctx, err)
		return
	}
	OK(c.Ctx, p)
}
