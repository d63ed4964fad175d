package swarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/run-bigpig/ycp/internal/adk"
	"github.com/run-bigpig/ycp/internal/adk/mcp"
	"github.com/run-bigpig/ycp/internal/adk/tools"
	"github.com/run-bigpig/ycp/internal/models"
	"github.com/run-bigpig/ycp/internal/registry"
)

// ModelCreationTimeout 模型创建的最大时长
const ModelCreationTimeout = 10 * time.Second

// ErrNoAIConfig 未配置 AI 服务
var ErrNoAIConfig = errors.New("AI service not configured")

// Service 蜂群分析服务，负责把 AI 配置装配成可运行的控制器
type Service struct {
	modelFactory *adk.ModelFactory
	toolRegistry *tools.Registry
	mcpManager   *mcp.Manager
}

// NewService 创建蜂群分析服务
func NewService() *Service {
	return &Service{
		modelFactory: adk.NewModelFactory(),
	}
}

// NewServiceFull 创建带内置工具和 MCP 支持的蜂群分析服务
func NewServiceFull(toolRegistry *tools.Registry, mcpMgr *mcp.Manager) *Service {
	return &Service{
		modelFactory: adk.NewModelFactory(),
		toolRegistry: toolRegistry,
		mcpManager:   mcpMgr,
	}
}

// BuildController 根据 AI 配置装配控制器
// 编排、分析、共识三个阶段共用同一个 LLM 实例
func (s *Service) BuildController(ctx context.Context, aiConfig *models.AIConfig, opts Options) (*Controller, error) {
	if aiConfig == nil {
		return nil, ErrNoAIConfig
	}

	modelCtx, cancel := context.WithTimeout(ctx, ModelCreationTimeout)
	defer cancel()
	llm, err := s.modelFactory.CreateModel(modelCtx, aiConfig)
	if err != nil {
		return nil, fmt.Errorf("create model error: %w", err)
	}
	log.Info("model created: %s", aiConfig.ModelName)

	catalog, err := registry.Load()
	if err != nil {
		return nil, fmt.Errorf("load role catalog error: %w", err)
	}

	selector := NewOrchestrator(llm)
	analyzer := NewRunnerFull(llm, aiConfig.SupportsSearch(), s.toolRegistry, s.mcpManager)
	synthesizer := NewAggregator(llm)

	return NewController(catalog.Profiles(), selector, analyzer, synthesizer, opts), nil
}
