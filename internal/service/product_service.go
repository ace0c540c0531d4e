package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/embutidos/internal/datamodels/category"
	"github.com/example/embutidos/internal/datamodels/product"
)

// ProductInput 后台新增/编辑商品的表单
type ProductInput struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	CategoryID     *int64          `json:"category_id"`
	ProductionCost decimal.Decimal `json:"production_cost"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	Stock          int64           `json:"stock"`
	MinStock       *int64          `json:"min_stock"`
	ExpiresAt      *time.Time      `json:"expires_at"`
	ImageURL       string          `json:"image_url"`
	Active         *bool           `json:"active"`
}

type ProductService struct {
	repo       product.Repository
	categories category.Repository
}

func NewProductService(repo product.Repository, categories category.Repository) *ProductService {
	return &ProductService{repo: repo, categories: categories}
}

// Catalog 前台商品列表，只含上架商品
func (s *ProductService) Catalog(ctx context.Context, f product.Filter) ([]*product.Product, error) {
	f.OnlyActive = true
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.Search(ctx, f)
}

// Latest 首页展示最新上架的 n 个商品
func (s *ProductService) Latest(ctx context.Context, n int) ([]*product.Product, error) {
	return s.repo.Search(ctx, product.Filter{OnlyActive: true, Limit: n})
}

// GetActive 前台详情，下架商品视为不存在
func (s *ProductService) GetActive(ctx context.Context, id int64) (*product.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, notFound(gorm.ErrRecordNotFound, "product", id)
	}
	return p, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

func (s *ProductService) ListAll(ctx context.Context) ([]*product.Product, error) {
	return s.repo.ListAll(ctx)
}

func (s *ProductService) validate(ctx context.Context, in *ProductInput) error {
	errs := fieldErrors{}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		errs.add("name", "requerido")
	} else if len(in.Name) > 150 {
		errs.add("name", "máximo 150 caracteres")
	}
	if !in.SalePrice.IsPositive() {
		errs.add("sale_price", "debe ser mayor que cero")
	}
	if in.ProductionCost.IsNegative() {
		errs.add("production_cost", "no puede ser negativo")
	}
	if in.Stock < 0 {
		errs.add("stock", "no puede ser negativo")
	}
	if in.MinStock != nil && *in.MinStock < 0 {
		errs.add("min_stock", "no puede ser negativo")
	}
	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			errs.add("category_id", "categoría inexistente")
		}
	}
	return errs.err()
}

func (in *ProductInput) apply(p *product.Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.CategoryID = in.CategoryID
	p.ProductionCost = in.ProductionCost
	p.SalePrice = in.SalePrice
	p.Stock = in.Stock
	p.MinStock = in.MinStock
	p.ExpiresAt = in.ExpiresAt
	p.ImageURL = in.ImageURL
	if in.Active != nil {
		p.Active = *in.Active
	}
}

// Create 新增商品，默认上架
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*product.Product, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	p := &product.Product{Active: true, ReceivedAt: time.Now()}
	in.apply(p)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update 编辑商品；行已被删除时返回 ErrNotFound
func (s *ProductService) Update(ctx context.Context, id int64, in ProductInput) (*product.Product, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, notFound(err, "product", id)
	}
	return p, nil
}

// ToggleActive 上架/下架切换
func (s *ProductService) ToggleActive(ctx context.Context, id int64) (*product.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, !p.Active); err != nil {
		return nil, notFound(err, "product", id)
	}
	p.Active = !p.Active
	return p, nil
}

// CategoryService 商品分类
type CategoryService struct {
	repo category.Repository
}

func NewCategoryService(repo category.Repository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context) ([]*category.Category, error) {
	return s.repo.ListAll(ctx)
}

func (s *CategoryService) Create(ctx context.Context, name, description string) (*category.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Fields: map[string]string{"name": "requerido"}}
	}
	c := &category.Category{Name: name, Description: strings.TrimSpace(description)}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
