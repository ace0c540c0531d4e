package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/embutidos/internal/datamodels/news"
)

type newsRepo struct {
	db *gorm.DB
}

// NewNewsRepository 创建新闻仓储
func NewNewsRepository(db *gorm.DB) news.Repository {
	return &newsRepo{db: db}
}

func (r *newsRepo) GetByID(ctx context.Context, id int64) (*news.News, error) {
	var n news.News
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *newsRepo) ListRecent(ctx context.Context) ([]*news.News, error) {
	var list []*news.News
	if err := r.db.WithContext(ctx).
		Order("published_at DESC").
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *newsRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&news.News{}).Count(&n).Error
	return n, err
}

func (r *newsRepo) Create(ctx context.Context, n *news.News) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *newsRepo) Update(ctx context.Context, n *news.News) error {
	res := r.db.WithContext(ctx).
		Model(&news.News{}).
		Where("id = ?", n.ID).
		Select("title", "body", "published_at", "author_id").
		Updates(n)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL 对未变化的行返回 0，需要再确认一次行是否还在
		var cnt int64
		if err := r.db.WithContext(ctx).Model(&news.News{}).Where("id = ?", n.ID).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

func (r *newsRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&news.News{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
