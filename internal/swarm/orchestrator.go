package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/run-bigpig/ycp/internal/models"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// 编排约束常量
const (
	MinSelectedRoles = 3
	MaxSelectedRoles = 6
)

// Orchestrator 编排者，根据问题挑选最相关的专家角色
type Orchestrator struct {
	llm model.LLM
}

// NewOrchestrator 创建编排者
func NewOrchestrator(llm model.LLM) *Orchestrator {
	return &Orchestrator{llm: llm}
}

// roleSelection 角色选择的结构化响应
type roleSelection struct {
	Roles     []string `json:"roles"`
	Rationale string   `json:"rationale"`
}

// selectionSchema 角色选择的响应 Schema
var selectionSchema = &genai.Schema{
	Type: "OBJECT",
	Properties: map[string]*genai.Schema{
		"roles": {
			Type:        "ARRAY",
			Description: "3 to 6 role names picked from the catalog, most relevant first",
			Items:       &genai.Schema{Type: "STRING"},
		},
		"rationale": {
			Type:        "STRING",
			Description: "One short sentence explaining the selection",
		},
	},
	Required: []string{"roles", "rationale"},
}

// Select 为问题挑选 3-6 个专家角色，顺序即部署顺序
// 任何调用或解析失败都吞掉，降级为目录前 3 个角色，绝不向管线抛错
func (o *Orchestrator) Select(ctx context.Context, topic string, catalog []models.RoleProfile) []models.RoleName {
	selected, err := o.trySelect(ctx, topic, catalog)
	if err != nil {
		log.Warn("role selection failed, falling back to first %d catalog roles: %v", MinSelectedRoles, err)
		return fallbackRoles(catalog)
	}
	return selected
}

// trySelect 单次尽力而为的角色选择
func (o *Orchestrator) trySelect(ctx context.Context, topic string, catalog []models.RoleProfile) ([]models.RoleName, error) {
	prompt := buildSelectionPrompt(topic, catalog)

	content, err := generate(ctx, o.llm, prompt, GenerateOptions{Schema: selectionSchema})
	if err != nil {
		return nil, err
	}

	jsonStr := ExtractJSON(content)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON in response: %s", ErrUnusableSelection, truncateString(content, 200))
	}

	var sel roleSelection
	if err := json.Unmarshal([]byte(jsonStr), &sel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnusableSelection, err)
	}

	// 与目录取交集，丢弃模型幻觉出的角色名，同时去重
	valid := make(map[models.RoleName]bool, len(catalog))
	for _, p := range catalog {
		valid[p.Role] = true
	}
	seen := make(map[models.RoleName]bool, len(sel.Roles))
	var roles []models.RoleName
	for _, raw := range sel.Roles {
		role := models.RoleName(strings.TrimSpace(raw))
		if !valid[role] || seen[role] {
			continue
		}
		seen[role] = true
		roles = append(roles, role)
		if len(roles) == MaxSelectedRoles {
			break
		}
	}

	// 过滤后不足下限视为结果不可用，走降级
	if len(roles) < MinSelectedRoles {
		return nil, fmt.Errorf("%w: only %d valid roles after filtering", ErrUnusableSelection, len(roles))
	}

	log.Debug("selected roles: %v, rationale: %s", roles, truncateString(sel.Rationale, 120))
	return roles, nil
}

// fallbackRoles 确定性降级：目录顺序的前 3 个角色
func fallbackRoles(catalog []models.RoleProfile) []models.RoleName {
	n := MinSelectedRoles
	if len(catalog) < n {
		n = len(catalog)
	}
	roles := make([]models.RoleName, 0, n)
	for _, p := range catalog[:n] {
		roles = append(roles, p.Role)
	}
	return roles
}

// buildSelectionPrompt 构建角色选择 Prompt
func buildSelectionPrompt(topic string, catalog []models.RoleProfile) string {
	var sb strings.Builder
	sb.WriteString("You are the orchestrator of a prediction-market analysis swarm.\n\n")
	sb.WriteString("## Market question\n")
	sb.WriteString(topic + "\n\n")
	sb.WriteString("## Available specialist roles\n")
	for _, p := range catalog {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", p.Role, p.Description))
	}
	sb.WriteString("\n## Your task\n")
	sb.WriteString(fmt.Sprintf("Pick the %d to %d roles most relevant to this question, most relevant first. ", MinSelectedRoles, MaxSelectedRoles))
	sb.WriteString("Use the exact role names from the catalog.\n")
	return sb.String()
}
