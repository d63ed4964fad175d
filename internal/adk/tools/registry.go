// Package tools 提供专家可用的内置工具
package tools

import (
	"fmt"

	"github.com/run-bigpig/ycp/internal/services/newsfeed"

	"google.golang.org/adk/tool"
)

// ToolInfo 工具信息
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry 内置工具注册表
type Registry struct {
	newsService *newsfeed.Service
	tools       map[string]tool.Tool
	infos       []ToolInfo
}

// NewRegistry 创建工具注册表
func NewRegistry(newsService *newsfeed.Service) (*Registry, error) {
	r := &Registry{
		newsService: newsService,
		tools:       make(map[string]tool.Tool),
	}

	headlines, err := r.createHeadlinesTool()
	if err != nil {
		return nil, fmt.Errorf("create headlines tool error: %w", err)
	}
	r.register("get_headlines", "Fetch current news headlines, optionally filtered by keyword", headlines)

	return r, nil
}

// register 登记一个工具
func (r *Registry) register(name, description string, t tool.Tool) {
	r.tools[name] = t
	r.infos = append(r.infos, ToolInfo{Name: name, Description: description})
}

// All 获取全部工具
func (r *Registry) All() []tool.Tool {
	result := make([]tool.Tool, 0, len(r.tools))
	for _, name := range r.names() {
		result = append(result, r.tools[name])
	}
	return result
}

// GetTools 根据名称列表获取工具
func (r *Registry) GetTools(names []string) []tool.Tool {
	var result []tool.Tool
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			result = append(result, t)
		}
	}
	return result
}

// Infos 获取全部工具信息
func (r *Registry) Infos() []ToolInfo {
	out := make([]ToolInfo, len(r.infos))
	copy(out, r.infos)
	return out
}

// names 按登记顺序返回工具名
func (r *Registry) names() []string {
	out := make([]string, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, info.Name)
	}
	return out
}
