package swarm

import (
	"context"
	"iter"

	"github.com/run-bigpig/ycp/internal/models"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// fakeLLM 返回固定内容的测试模型
type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{
			Content: &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{genai.NewPartFromText(f.response)},
			},
		}, nil)
	}
}

// testCatalog 测试用角色目录
func testCatalog() []models.RoleProfile {
	return []models.RoleProfile{
		{Role: models.RoleNewsfeed, Description: "Breaking news and headline coverage"},
		{Role: models.RoleSocialMedia, Description: "Social platform sentiment"},
		{Role: models.RoleReddit, Description: "Community discussion signals"},
		{Role: models.RoleFinance, Description: "Markets and pricing data"},
		{Role: models.RoleMacro, Description: "Macroeconomic context"},
		{Role: models.RoleEntertainment, Description: "Culture and entertainment signals"},
	}
}
