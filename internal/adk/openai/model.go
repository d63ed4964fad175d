// Package openai 将 OpenAI 兼容接口适配为 adk model.LLM
package openai

import (
	"context"
	"errors"
	"iter"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/adk/model"
)

var _ model.LLM = &Model{}

// ErrNoChoicesInResponse 响应不含任何候选
var ErrNoChoicesInResponse = errors.New("no choices in OpenAI response")

// Model 基于 OpenAI 兼容接口的 model.LLM 实现（仅非流式）
// 分析管线不向外透出部分输出，流式请求也按单次聚合响应处理
type Model struct {
	client    *openai.Client
	modelName string
}

// NewModel 创建 OpenAI 兼容模型
func NewModel(modelName string, cfg openai.ClientConfig) *Model {
	return &Model{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
	}
}

// Name 返回模型名称
func (m *Model) Name() string {
	return m.modelName
}

// GenerateContent 实现 model.LLM 接口
func (m *Model) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		openaiReq, err := toChatCompletionRequest(req, m.modelName)
		if err != nil {
			yield(nil, err)
			return
		}

		resp, err := m.client.CreateChatCompletion(ctx, openaiReq)
		if err != nil {
			yield(nil, err)
			return
		}

		llmResp, err := fromChatCompletionResponse(&resp)
		if err != nil {
			yield(nil, err)
			return
		}

		yield(llmResp, nil)
	}
}
