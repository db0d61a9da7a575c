package service

import (
	"context"
	"strings"

	"launchgpt-go/internal/model"
	"launchgpt-go/pkg/log"
)

// ChatSearcher 在聊天索引中检索，由 es.ChatIndex 实现。
type ChatSearcher interface {
	SearchChats(ctx context.Context, userID uint, text string, size int) ([]model.SearchHit, error)
}

// SearchService 接口定义了搜索操作。
type SearchService interface {
	Search(ctx context.Context, userID uint, query string, size int) ([]model.SearchHit, error)
}

type searchService struct {
	searcher ChatSearcher
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(searcher ChatSearcher) SearchService {
	return &searchService{searcher: searcher}
}

// Search 只在用户自己的记录中检索。
func (s *searchService) Search(ctx context.Context, userID uint, query string, size int) ([]model.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	log.Infow("[SearchService] 开始检索", "userId", userID, "size", size)
	hits, err := s.searcher.SearchChats(ctx, userID, query, size)
	if err != nil {
		log.Errorw("[SearchService] 检索失败", "userId", userID, "error", err)
		return nil, err
	}
	return hits, nil
}
