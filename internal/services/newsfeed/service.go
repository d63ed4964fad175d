// Package newsfeed 聚合新闻标题，作为无原生检索能力模型的降级数据源
package newsfeed

import (
	"strings"
	"sync"
	"time"

	"github.com/run-bigpig/ycp/internal/pkg/paths"
)

// 缓存有效期
const cacheTTL = 5 * time.Minute

// Service 新闻标题聚合服务
type Service struct {
	fetchers map[string]Fetcher
	cache    *FileCache
}

// NewService 创建新闻聚合服务
func NewService() (*Service, error) {
	cache, err := NewFileCache(paths.EnsureCacheDir("newsfeed"), cacheTTL)
	if err != nil {
		return nil, err
	}

	fetchers := map[string]Fetcher{
		"hackernews": NewHackerNewsFetcher(),
		"cnn":        NewCNNLiteFetcher(),
	}

	return &Service{
		fetchers: fetchers,
		cache:    cache,
	}, nil
}

// GetHeadlines 获取单个来源的标题，优先走缓存
func (s *Service) GetHeadlines(source string) FetchResult {
	fetcher, ok := s.fetchers[source]
	if !ok {
		return FetchResult{
			Source: source,
			Error:  "unsupported source",
		}
	}

	if items, ok := s.cache.Get(source); ok {
		return FetchResult{
			Source:    source,
			Items:     items,
			UpdatedAt: time.Now(),
			FromCache: true,
		}
	}

	items, err := fetcher.Fetch()
	if err != nil {
		return FetchResult{
			Source: source,
			Error:  err.Error(),
		}
	}

	_ = s.cache.Set(source, items)

	return FetchResult{
		Source:    source,
		Items:     items,
		UpdatedAt: time.Now(),
	}
}

// GetAllHeadlines 并发获取全部来源的标题
func (s *Service) GetAllHeadlines() []FetchResult {
	sources := make([]string, 0, len(s.fetchers))
	for src := range s.fetchers {
		sources = append(sources, src)
	}

	var wg sync.WaitGroup
	results := make([]FetchResult, len(sources))
	for i, src := range sources {
		wg.Add(1)
		go func(idx int, source string) {
			defer wg.Done()
			results[idx] = s.GetHeadlines(source)
		}(i, src)
	}
	wg.Wait()
	return results
}

// Search 跨来源按关键词过滤标题，keyword 为空返回全部
func (s *Service) Search(keyword string, limit int) []Headline {
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	var matched []Headline
	for _, result := range s.GetAllHeadlines() {
		for _, item := range result.Items {
			if keyword != "" && !strings.Contains(strings.ToLower(item.Title), keyword) {
				continue
			}
			matched = append(matched, item)
			if limit > 0 && len(matched) >= limit {
				return matched
			}
		}
	}
	return matched
}
