package swarm

import (
	"context"
	"errors"
	"strings"

	"github.com/run-bigpig/ycp/internal/logger"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// 日志实例
var log = logger.New("Swarm")

// 错误定义
var (
	ErrEmptyResponse      = errors.New("模型返回内容为空")
	ErrSchemaWithSearch   = errors.New("响应 Schema 与联网检索不能同时启用")
	ErrUnusableSelection  = errors.New("角色选择结果不可用")
	ErrMalformedFindings  = errors.New("专家结论 JSON 不符合约定结构")
	ErrMalformedConsensus = errors.New("共识结果 JSON 不符合约定结构")
)

// GenerateOptions 单次补全调用选项
// Schema 与 Search 互斥：Gemini 的响应 Schema 不能与检索工具同时下发，
// 启用检索时只能靠提示词约束输出结构再做防御性解析
type GenerateOptions struct {
	Schema *genai.Schema // 期望的结构化输出 Schema（可选）
	Search bool          // 启用联网检索
}

// generate 发起一次补全调用并聚合纯文本输出
// 过滤 thought 片段，单次尽力而为，不做重试
func generate(ctx context.Context, llm model.LLM, prompt string, opts GenerateOptions) (string, error) {
	if opts.Schema != nil && opts.Search {
		return "", ErrSchemaWithSearch
	}

	cfg := &genai.GenerateContentConfig{}
	if opts.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = opts.Schema
	}
	if opts.Search {
		cfg.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		}
	}

	req := &model.LLMRequest{
		Contents: []*genai.Content{
			{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(prompt)}},
		},
		Config: cfg,
	}

	var result strings.Builder
	for resp, err := range llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", err
		}
		if resp != nil && resp.Content != nil {
			for _, part := range resp.Content.Parts {
				if part.Thought {
					continue
				}
				if part.Text != "" {
					result.WriteString(part.Text)
				}
			}
		}
	}

	if strings.TrimSpace(result.String()) == "" {
		return "", ErrEmptyResponse
	}
	return result.String(), nil
}
