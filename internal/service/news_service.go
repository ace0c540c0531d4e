package service

import (
	"context"
	"strings"
	"time"

	"github.com/example/embutidos/internal/datamodels/news"
)

// NewsService 新闻公告
type NewsService struct {
	repo news.Repository
	now  func() time.Time
}

func NewNewsService(repo news.Repository) *NewsService {
	return &NewsService{repo: repo, now: time.Now}
}

// ListRecent 最新在前
func (s *NewsService) ListRecent(ctx context.Context) ([]*news.News, error) {
	return s.repo.ListRecent(ctx)
}

func (s *NewsService) Get(ctx context.Context, id int64) (*news.News, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "news", id)
	}
	return n, nil
}

func validateNews(title, body string) error {
	errs := fieldErrors{}
	if strings.TrimSpace(title) == "" {
		errs.add("title", "requerido")
	} else if len(title) > 200 {
		errs.add("title", "máximo 200 caracteres")
	}
	if strings.TrimSpace(body) == "" {
		errs.add("body", "requerido")
	}
	return errs.err()
}

// Create 发布新闻，作者为当前管理员
func (s *NewsService) Create(ctx context.Context, authorID int64, title, body string) (*news.News, error) {
	if err := validateNews(title, body); err != nil {
		return nil, err
	}
	n := &news.News{
		Title:       strings.TrimSpace(title),
		Body:        body,
		PublishedAt: s.now(),
	}
	if authorID > 0 {
		n.AuthorID = &authorID
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NewsService) Update(ctx context.Context, id int64, title, body string) (*news.News, error) {
	if err := validateNews(title, body); err != nil {
		return nil, err
	}
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Title = strings.TrimSpace(title)
	n.Body = body
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, notFound(err, "news", id)
	}
	return n, nil
}

func (s *NewsService) Delete(ctx context.Context, id int64) error {
	return notFound(s.repo.Delete(ctx, id), "news", id)
}
