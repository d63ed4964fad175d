package newsfeed

import "time"

// Headline 新闻标题条目
type Headline struct {
	Title  string `json:"title"`  // 标题
	URL    string `json:"url"`    // 链接
	Source string `json:"source"` // 来源标识
	Rank   int    `json:"rank"`   // 页面内排序
}

// FetchResult 单个来源的抓取结果
type FetchResult struct {
	Source    string     `json:"source"`     // 来源标识
	Items     []Headline `json:"items"`      // 标题列表
	UpdatedAt time.Time  `json:"updated_at"` // 更新时间
	FromCache bool       `json:"from_cache"` // 是否来自缓存
	Error     string     `json:"error"`      // 错误信息
}

// Fetcher 新闻标题抓取接口
type Fetcher interface {
	// Fetch 抓取标题列表
	Fetch() ([]Headline, error)
	// Source 返回来源标识
	Source() string
}
