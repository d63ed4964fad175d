package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/run-bigpig/ycp/internal/adk/mcp"
	"github.com/run-bigpig/ycp/internal/adk/tools"
	"github.com/run-bigpig/ycp/internal/models"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"
)

// SentinelFindings 分析失败时的哨兵结论
// 保证每个被选中的角色总有恰好一份结论，共识阶段输入永远完整
func SentinelFindings() models.AgentFindings {
	return models.AgentFindings{
		KeyFindings:     []string{"Data unavailable", "Analysis inconclusive", "Check source manually"},
		ConfidenceScore: 50,
		Prediction:      models.PredictionUncertain,
		Reasoning:       "Analysis failed due to connection or model error.",
	}
}

// Runner 专家执行器，对单个角色跑一次分析
type Runner struct {
	llm          model.LLM
	searchable   bool            // 提供商支持原生联网检索（Gemini GoogleSearch）
	toolRegistry *tools.Registry // 内置工具，检索不可用时的降级数据源
	mcpManager   *mcp.Manager    // 用户配置的 MCP 工具集（可选）
}

// NewRunner 创建专家执行器
func NewRunner(llm model.LLM, searchable bool) *Runner {
	return &Runner{llm: llm, searchable: searchable}
}

// NewRunnerFull 创建带内置工具与 MCP 的专家执行器
func NewRunnerFull(llm model.LLM, searchable bool, registry *tools.Registry, mcpMgr *mcp.Manager) *Runner {
	return &Runner{llm: llm, searchable: searchable, toolRegistry: registry, mcpManager: mcpMgr}
}

// Analyze 以指定角色视角分析问题，永不失败
// 网络错误、超时、响应不可解析一律落到哨兵结论
func (r *Runner) Analyze(ctx context.Context, profile models.RoleProfile, topic string) models.AgentFindings {
	content, err := r.run(ctx, profile, topic)
	if err != nil {
		log.Warn("agent %s analysis failed, substituting sentinel: %v", profile.Role, err)
		return SentinelFindings()
	}

	findings, err := decodeFindings(content)
	if err != nil {
		log.Warn("agent %s response unusable, substituting sentinel: %v", profile.Role, err)
		return SentinelFindings()
	}
	return findings
}

// run 执行一次角色分析调用
func (r *Runner) run(ctx context.Context, profile models.RoleProfile, topic string) (string, error) {
	prompt := buildAnalysisPrompt(profile, topic)

	// Gemini 原生检索：Schema 与检索互斥，只能靠提示词约束 JSON 结构
	if r.searchable {
		return generate(ctx, r.llm, prompt, GenerateOptions{Search: true})
	}

	// 无原生检索的提供商：挂内置工具 + MCP 工具集，通过 adk runner 执行
	return r.runWithTools(ctx, profile, prompt, topic)
}

// runWithTools 通过 adk Agent 运行（内置工具降级路径）
func (r *Runner) runWithTools(ctx context.Context, profile models.RoleProfile, instruction string, topic string) (string, error) {
	var agentTools []tool.Tool
	if r.toolRegistry != nil {
		agentTools = r.toolRegistry.All()
	}
	var toolsets []tool.Toolset
	if r.mcpManager != nil {
		toolsets = r.mcpManager.GetAllToolsets()
	}

	agentInstance, err := llmagent.New(llmagent.Config{
		Name:        roleSlug(profile.Role),
		Model:       r.llm,
		Description: profile.Description,
		Instruction: instruction,
		Tools:       agentTools,
		Toolsets:    toolsets,
	})
	if err != nil {
		return "", err
	}

	sessionService := session.InMemoryService()
	run, err := runner.New(runner.Config{
		AppName:        "ycp",
		Agent:          agentInstance,
		SessionService: sessionService,
	})
	if err != nil {
		return "", err
	}

	sessionID := fmt.Sprintf("agent-%s-%s", roleSlug(profile.Role), uuid.New().String()[:8])
	_, err = sessionService.Create(ctx, &session.CreateRequest{
		AppName:   "ycp",
		UserID:    "user",
		SessionID: sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("create session error: %w", err)
	}

	userMsg := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(topic),
		},
	}

	var content string
	for event, err := range run.Run(ctx, "user", sessionID, userMsg, agent.RunConfig{}) {
		if err != nil {
			return "", err
		}
		if event != nil && event.LLMResponse.Content != nil {
			for _, part := range event.LLMResponse.Content.Parts {
				if part.Thought {
					continue
				}
				if part.Text != "" {
					content += part.Text
				}
			}
		}
	}
	return content, nil
}

// findingsWire 专家结论的线上结构
type findingsWire struct {
	KeyFindings     []string `json:"keyFindings"`
	ConfidenceScore *int     `json:"confidenceScore"`
	Prediction      string   `json:"prediction"`
	Reasoning       string   `json:"reasoning"`
}

// decodeFindings 严格解码并校验专家结论
// 容忍代码块包裹与夹杂文字，但结构或取值非法时返回错误，由调用方换哨兵
func decodeFindings(content string) (models.AgentFindings, error) {
	jsonStr := ExtractJSON(content)
	if jsonStr == "" {
		return models.AgentFindings{}, fmt.Errorf("%w: no JSON in response: %s", ErrMalformedFindings, truncateString(content, 200))
	}

	var wire findingsWire
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return models.AgentFindings{}, fmt.Errorf("%w: %v", ErrMalformedFindings, err)
	}

	if wire.ConfidenceScore == nil {
		return models.AgentFindings{}, fmt.Errorf("%w: missing confidenceScore", ErrMalformedFindings)
	}
	if *wire.ConfidenceScore < 0 || *wire.ConfidenceScore > 100 {
		return models.AgentFindings{}, fmt.Errorf("%w: confidenceScore %d out of [0,100]", ErrMalformedFindings, *wire.ConfidenceScore)
	}

	prediction := models.Prediction(strings.ToUpper(strings.TrimSpace(wire.Prediction)))
	if !prediction.Valid() {
		return models.AgentFindings{}, fmt.Errorf("%w: prediction %q", ErrMalformedFindings, wire.Prediction)
	}

	if len(wire.KeyFindings) == 0 {
		return models.AgentFindings{}, fmt.Errorf("%w: empty keyFindings", ErrMalformedFindings)
	}
	if wire.Reasoning == "" {
		return models.AgentFindings{}, fmt.Errorf("%w: missing reasoning", ErrMalformedFindings)
	}

	return models.AgentFindings{
		KeyFindings:     wire.KeyFindings,
		ConfidenceScore: *wire.ConfidenceScore,
		Prediction:      prediction,
		Reasoning:       wire.Reasoning,
	}, nil
}

// buildAnalysisPrompt 构建角色分析 Prompt
func buildAnalysisPrompt(profile models.RoleProfile, topic string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are the %s analyst of a prediction-market analysis swarm.\n", profile.Role))
	sb.WriteString(fmt.Sprintf("Your specialty: %s\n\n", profile.Description))
	sb.WriteString(fmt.Sprintf("Current date: %s\n\n", time.Now().Format("2006-01-02")))
	sb.WriteString("## Market question\n")
	sb.WriteString(topic + "\n\n")
	sb.WriteString("## Your task\n")
	sb.WriteString("Research the question strictly from your specialist perspective, using live sources where available, ")
	sb.WriteString("and deliver your finding.\n\n")
	sb.WriteString("## Output format (respond with ONLY this JSON object, no prose around it)\n")
	sb.WriteString(`{"keyFindings":["evidence 1","evidence 2","evidence 3"],"confidenceScore":75,"prediction":"YES","reasoning":"one short paragraph"}`)
	sb.WriteString("\n\nkeyFindings: exactly 3 short evidence bullets. confidenceScore: integer 0-100. prediction: YES, NO or UNCERTAIN.")
	return sb.String()
}

// roleSlug 将角色名转为 adk Agent 可用的标识
func roleSlug(role models.RoleName) string {
	return strings.ReplaceAll(strings.ToLower(string(role)), " ", "_")
}
