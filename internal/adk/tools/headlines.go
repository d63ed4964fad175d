package tools

import (
	"fmt"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// GetHeadlinesInput 标题查询输入参数
type GetHeadlinesInput struct {
	Keyword string `json:"keyword,omitzero" jsonschema:"过滤关键词，可为空"`
	Limit   int    `json:"limit,omitzero" jsonschema:"返回条数，默认15条"`
}

// GetHeadlinesOutput 标题查询输出
type GetHeadlinesOutput struct {
	Data string `json:"data" jsonschema:"新闻标题列表"`
}

// createHeadlinesTool 创建新闻标题工具
func (r *Registry) createHeadlinesTool() (tool.Tool, error) {
	handler := func(ctx tool.Context, input GetHeadlinesInput) (GetHeadlinesOutput, error) {
		limit := input.Limit
		if limit == 0 {
			limit = 15
		}

		items := r.newsService.Search(input.Keyword, limit)
		if len(items) == 0 {
			return GetHeadlinesOutput{Data: "No matching headlines found"}, nil
		}

		var result string
		for _, h := range items {
			result += fmt.Sprintf("[%s] %s (%s)\n", h.Source, h.Title, h.URL)
		}
		return GetHeadlinesOutput{Data: result}, nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "get_headlines",
		Description: "Fetch current news headlines from live sources, optionally filtered by keyword",
	}, handler)
}
