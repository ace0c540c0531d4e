package news

import (
	"context"
	"time"
)

// News 新闻公告，和订单/支付无关
type News struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	PublishedAt time.Time `gorm:"index" json:"published_at"`
	AuthorID    *int64    `gorm:"index" json:"author_id"`
}

// Repository 新闻仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*News, error)
	ListRecent(ctx context.Context) ([]*News, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, n *News) error
	Update(ctx context.Context, n *News) error
	Delete(ctx context.Context, id int64) error
}
