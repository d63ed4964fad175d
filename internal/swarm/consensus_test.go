package swarm

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/run-bigpig/ycp/internal/models"
)

// testReports 两份顺序固定的专家报告
func testReports() []AgentReport {
	return []AgentReport{
		{
			Role: models.RoleFinance,
			Findings: models.AgentFindings{
				KeyFindings:     []string{"ETF inflows", "funding neutral", "spot demand up"},
				ConfidenceScore: 70,
				Prediction:      models.PredictionYes,
				Reasoning:       "market structure supports upside",
			},
		},
		{
			Role: models.RoleMacro,
			Findings: models.AgentFindings{
				KeyFindings:     []string{"rates steady", "dollar weak", "liquidity improving"},
				ConfidenceScore: 55,
				Prediction:      models.PredictionUncertain,
				Reasoning:       "macro tailwinds but fragile",
			},
		},
	}
}

// TestAggregatorSynthesize 测试共识合成的全函数语义
func TestAggregatorSynthesize(t *testing.T) {
	ctx := context.Background()
	topic := "Will Bitcoin close above $100k this year?"

	t.Run("合法响应返回共识", func(t *testing.T) {
		a := NewAggregator(&fakeLLM{
			response: `{"probability":72,"topReasons":["strong inflows","macro support","cycle timing"],"verdict":"Likely yes."}`,
		})
		got := a.Synthesize(ctx, topic, testReports())
		if got.Probability != 72 || got.Verdict != "Likely yes." {
			t.Errorf("Synthesize() = %+v", got)
		}
		if len(got.TopReasons) != TopReasonCount {
			t.Errorf("topReasons = %v", got.TopReasons)
		}
	})

	t.Run("超过3条理由截断", func(t *testing.T) {
		a := NewAggregator(&fakeLLM{
			response: `{"probability":60,"topReasons":["r1","r2","r3","r4","r5"],"verdict":"v"}`,
		})
		got := a.Synthesize(ctx, topic, testReports())
		want := []string{"r1", "r2", "r3"}
		if !reflect.DeepEqual(got.TopReasons, want) {
			t.Errorf("topReasons = %v, want %v", got.TopReasons, want)
		}
	})

	t.Run("不足3条理由落哨兵", func(t *testing.T) {
		a := NewAggregator(&fakeLLM{
			response: `{"probability":60,"topReasons":["only one"],"verdict":"v"}`,
		})
		got := a.Synthesize(ctx, topic, testReports())
		if !reflect.DeepEqual(got, SentinelConsensus()) {
			t.Errorf("Synthesize() = %+v, want sentinel", got)
		}
	})

	t.Run("概率超界落哨兵", func(t *testing.T) {
		a := NewAggregator(&fakeLLM{
			response: `{"probability":140,"topReasons":["r1","r2","r3"],"verdict":"v"}`,
		})
		got := a.Synthesize(ctx, topic, testReports())
		if got.Probability != 50 {
			t.Errorf("probability = %d, want sentinel 50", got.Probability)
		}
	})

	t.Run("模型失败落哨兵", func(t *testing.T) {
		a := NewAggregator(&fakeLLM{err: errors.New("connection reset")})
		got := a.Synthesize(ctx, topic, testReports())
		if !reflect.DeepEqual(got, SentinelConsensus()) {
			t.Errorf("Synthesize() = %+v, want sentinel", got)
		}
	})
}

// TestBuildConsensusPrompt 报告按选择顺序嵌入提示词
func TestBuildConsensusPrompt(t *testing.T) {
	reports := testReports()
	prompt := buildConsensusPrompt("topic", reports)

	financeIdx := strings.Index(prompt, string(models.RoleFinance))
	macroIdx := strings.Index(prompt, string(models.RoleMacro))
	if financeIdx == -1 || macroIdx == -1 {
		t.Fatal("提示词缺少角色段落")
	}
	if financeIdx > macroIdx {
		t.Error("报告顺序与选择顺序不一致")
	}
	for _, r := range reports {
		if !strings.Contains(prompt, r.Findings.Reasoning) {
			t.Errorf("提示词缺少 %s 的推理内容", r.Role)
		}
	}
}
