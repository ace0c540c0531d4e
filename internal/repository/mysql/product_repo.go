package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/embutidos/internal/datamodels/product"
)

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepo{db: db}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ListAll(ctx context.Context) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) ListByIDs(ctx context.Context, ids []int64) ([]*product.Product, error) {
	var list []*product.Product
	if len(ids) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) Search(ctx context.Context, f product.Filter) ([]*product.Product, error) {
	query := r.db.WithContext(ctx).Model(&product.Product{})
	if f.OnlyActive {
		query = query.Where("active = ?", true)
	}
	if f.CategoryID != nil {
		query = query.Where("category_id = ?", *f.CategoryID)
	}
	if f.Search != "" {
		kw := "%" + f.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", kw, kw)
	}
	if f.MaxPrice != nil && f.MaxPrice.IsPositive() {
		query = query.Where("sale_price <= ?", *f.MaxPrice)
	}
	switch f.Sort {
	case "precio_asc":
		query = query.Order("sale_price ASC")
	case "precio_desc":
		query = query.Order("sale_price DESC")
	case "nombre_asc":
		query = query.Order("name ASC")
	default:
		query = query.Order("id DESC")
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var list []*product.Product
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&product.Product{}).Count(&n).Error
	return n, err
}

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update 整行更新；行已不存在时返回 gorm.ErrRecordNotFound
func (r *productRepo) Update(ctx context.Context, p *product.Product) error {
	res := r.db.WithContext(ctx).
		Model(&product.Product{}).
		Where("id = ?", p.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&product.Product{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
