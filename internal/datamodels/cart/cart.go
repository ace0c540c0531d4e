package cart

import "context"

// Line 购物车行，只保存商品引用和数量，价格在读取时计算
type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// Repository 按会话 ID 存取购物车
type Repository interface {
	Load(ctx context.Context, sessionID string) ([]Line, error)
	Save(ctx context.Context, sessionID string, lines []Line) error
	Delete(ctx context.Context, sessionID string) error
	// Take 取出并删除，结算时用来独占购物车
	Take(ctx context.Context, sessionID string) ([]Line, error)
}
