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

// TopReasonCount 共识结果固定携带的理由条数
const TopReasonCount = 3

// SentinelConsensus 共识合成失败时的中性哨兵
func SentinelConsensus() models.Consensus {
	return models.Consensus{
		Probability: 50,
		TopReasons:  []string{"Conflicting data", "Insufficient consensus"},
		Verdict:     "Unable to reach consensus.",
	}
}

// AgentReport 按选择顺序排列的单专家报告，共识阶段的输入单元
type AgentReport struct {
	Role     models.RoleName
	Findings models.AgentFindings
}

// Aggregator 共识合成器
// 不做任何本地数值聚合，概率合成完全交给模型；本地只负责
// Prompt 构建、响应解析与失败哨兵替换
type Aggregator struct {
	llm model.LLM
}

// NewAggregator 创建共识合成器
func NewAggregator(llm model.LLM) *Aggregator {
	return &Aggregator{llm: llm}
}

// consensusWire 共识结果的线上结构
type consensusWire struct {
	Probability *int     `json:"probability"`
	TopReasons  []string `json:"topReasons"`
	Verdict     string   `json:"verdict"`
}

// consensusSchema 共识结果的响应 Schema
var consensusSchema = &genai.Schema{
	Type: "OBJECT",
	Properties: map[string]*genai.Schema{
		"probability": {
			Type:        "INTEGER",
			Description: "Synthesized probability of YES, integer 0-100",
		},
		"topReasons": {
			Type:        "ARRAY",
			Description: "Exactly 3 reasons driving the verdict, strongest first",
			Items:       &genai.Schema{Type: "STRING"},
		},
		"verdict": {
			Type:        "STRING",
			Description: "One-sentence verdict",
		},
	},
	Required: []string{"probability", "topReasons", "verdict"},
}

// Synthesize 将全部专家报告合成为单一共识，永不失败
// 调用或解析失败一律落到中性哨兵
func (a *Aggregator) Synthesize(ctx context.Context, topic string, reports []AgentReport) models.Consensus {
	consensus, err := a.trySynthesize(ctx, topic, reports)
	if err != nil {
		log.Warn("consensus synthesis failed, substituting sentinel: %v", err)
		return SentinelConsensus()
	}
	return consensus
}

// trySynthesize 单次尽力而为的共识合成
func (a *Aggregator) trySynthesize(ctx context.Context, topic string, reports []AgentReport) (models.Consensus, error) {
	prompt := buildConsensusPrompt(topic, reports)

	content, err := generate(ctx, a.llm, prompt, GenerateOptions{Schema: consensusSchema})
	if err != nil {
		return models.Consensus{}, err
	}

	jsonStr := ExtractJSON(content)
	if jsonStr == "" {
		return models.Consensus{}, fmt.Errorf("%w: no JSON in response: %s", ErrMalformedConsensus, truncateString(content, 200))
	}

	var wire consensusWire
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return models.Consensus{}, fmt.Errorf("%w: %v", ErrMalformedConsensus, err)
	}

	if wire.Probability == nil || *wire.Probability < 0 || *wire.Probability > 100 {
		return models.Consensus{}, fmt.Errorf("%w: probability out of [0,100]", ErrMalformedConsensus)
	}
	if len(wire.TopReasons) < TopReasonCount {
		return models.Consensus{}, fmt.Errorf("%w: got %d topReasons, want %d", ErrMalformedConsensus, len(wire.TopReasons), TopReasonCount)
	}
	if wire.Verdict == "" {
		return models.Consensus{}, fmt.Errorf("%w: missing verdict", ErrMalformedConsensus)
	}

	return models.Consensus{
		Probability: *wire.Probability,
		TopReasons:  wire.TopReasons[:TopReasonCount],
		Verdict:     wire.Verdict,
	}, nil
}

// buildConsensusPrompt 构建共识合成 Prompt，报告按选择顺序嵌入
func buildConsensusPrompt(topic string, reports []AgentReport) string {
	var sb strings.Builder
	sb.WriteString("You are the consensus synthesizer of a prediction-market analysis swarm.\n\n")
	sb.WriteString("## Market question\n")
	sb.WriteString(topic + "\n\n")
	sb.WriteString("## Specialist findings\n")
	for _, r := range reports {
		sb.WriteString(fmt.Sprintf("### %s (prediction: %s, confidence: %d/100)\n", r.Role, r.Findings.Prediction, r.Findings.ConfidenceScore))
		for _, kf := range r.Findings.KeyFindings {
			sb.WriteString("- " + kf + "\n")
		}
		sb.WriteString("Reasoning: " + r.Findings.Reasoning + "\n\n")
	}
	sb.WriteString("## Your task\n")
	sb.WriteString("Weigh every finding and synthesize one overall probability that the question resolves YES, ")
	sb.WriteString(fmt.Sprintf("the %d reasons that drive it most (strongest first), and a one-sentence verdict.\n", TopReasonCount))
	return sb.String()
}
