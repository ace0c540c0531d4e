package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/embutidos/internal/datamodels/cart"
	"github.com/example/embutidos/internal/datamodels/product"
)

// PricedLine 带当前售价的购物车行
type PricedLine struct {
	Product  *product.Product `json:"product"`
	Quantity int64            `json:"quantity"`
	Subtotal decimal.Decimal  `json:"subtotal"`
}

// PricedCart 读取时实时计算的购物车视图
type PricedCart struct {
	Lines []PricedLine    `json:"lines"`
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

// Empty 没有可结算的行
func (c *PricedCart) Empty() bool {
	return c == nil || len(c.Lines) == 0
}

// CartService 会话购物车：只存商品与数量，价格在 Read 时从商品表取
type CartService struct {
	carts    cart.Repository
	products product.Repository
}

// NewCartService 创建购物车服务
func NewCartService(carts cart.Repository, products product.Repository) *CartService {
	return &CartService{carts: carts, products: products}
}

func findLine(lines []cart.Line, productID int64) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func removeLine(lines []cart.Line, i int) []cart.Line {
	return append(lines[:i], lines[i+1:]...)
}

// Add 加入购物车，与已有行合并，合并后的数量不超过当前库存
func (s *CartService) Add(ctx context.Context, sessionID string, productID, qty int64) error {
	if qty <= 0 {
		return &ValidationError{Fields: map[string]string{"quantity": "debe ser mayor que cero"}}
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %d: %w", productID, ErrProductUnavailable)
		}
		return err
	}
	if !p.Active {
		return fmt.Errorf("product %d: %w", productID, ErrProductUnavailable)
	}

	lines, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return err
	}

	i := findLine(lines, productID)
	merged := qty
	if i >= 0 {
		merged += lines[i].Quantity
	}
	if merged > p.Stock {
		merged = p.Stock
	}

	switch {
	case merged <= 0 && i >= 0:
		lines = removeLine(lines, i)
	case merged <= 0:
		return nil
	case i >= 0:
		lines[i].Quantity = merged
	default:
		lines = append(lines, cart.Line{ProductID: productID, Quantity: merged})
	}
	return s.carts.Save(ctx, sessionID, lines)
}

// Increase 数量加一，已达库存时不变
func (s *CartService) Increase(ctx context.Context, sessionID string, productID int64) error {
	lines, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	i := findLine(lines, productID)
	if i < 0 {
		return nil
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if lines[i].Quantity >= p.Stock {
		return nil
	}
	lines[i].Quantity++
	return s.carts.Save(ctx, sessionID, lines)
}

// Decrease 数量减一，减到 0 时移除该行
func (s *CartService) Decrease(ctx context.Context, sessionID string, productID int64) error {
	lines, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	i := findLine(lines, productID)
	if i < 0 {
		return nil
	}
	lines[i].Quantity--
	if lines[i].Quantity <= 0 {
		lines = removeLine(lines, i)
	}
	return s.carts.Save(ctx, sessionID, lines)
}

func (s *CartService) Remove(ctx context.Context, sessionID string, productID int64) error {
	lines, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	i := findLine(lines, productID)
	if i < 0 {
		return nil
	}
	return s.carts.Save(ctx, sessionID, removeLine(lines, i))
}

func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	return s.carts.Delete(ctx, sessionID)
}

// Read 计算价格视图，不修改购物车；已删除的商品直接跳过
func (s *CartService) Read(ctx context.Context, sessionID string) (*PricedCart, error) {
	lines, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := &PricedCart{Lines: []PricedLine{}, Total: decimal.Zero}
	if len(lines) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			continue
		}
		sub := p.SalePrice.Mul(decimal.NewFromInt(l.Quantity))
		out.Lines = append(out.Lines, PricedLine{Product: p, Quantity: l.Quantity, Subtotal: sub})
		out.Total = out.Total.Add(sub)
		out.Count += l.Quantity
	}
	return out, nil
}
