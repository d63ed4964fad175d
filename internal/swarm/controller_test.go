package swarm

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/run-bigpig/ycp/internal/models"
)

// stubSelector 返回固定角色列表
type stubSelector struct {
	roles []models.RoleName
}

func (s *stubSelector) Select(ctx context.Context, topic string, catalog []models.RoleProfile) []models.RoleName {
	return s.roles
}

// stubAnalyzer 按角色返回预设结论，未预设的角色落哨兵
type stubAnalyzer struct {
	findings map[models.RoleName]models.AgentFindings
	delays   map[models.RoleName]time.Duration
	block    chan struct{} // 非空时所有分析阻塞在此

	mu    sync.Mutex
	calls []models.RoleName
}

func (a *stubAnalyzer) Analyze(ctx context.Context, profile models.RoleProfile, topic string) models.AgentFindings {
	a.mu.Lock()
	a.calls = append(a.calls, profile.Role)
	a.mu.Unlock()

	if a.block != nil {
		<-a.block
	}
	if d, ok := a.delays[profile.Role]; ok {
		time.Sleep(d)
	}
	if f, ok := a.findings[profile.Role]; ok {
		return f
	}
	return SentinelFindings()
}

func (a *stubAnalyzer) callOrder() []models.RoleName {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.RoleName, len(a.calls))
	copy(out, a.calls)
	return out
}

// stubSynthesizer 返回固定共识并记录收到的报告
type stubSynthesizer struct {
	consensus models.Consensus

	mu      sync.Mutex
	reports []AgentReport
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, topic string, reports []AgentReport) models.Consensus {
	s.mu.Lock()
	s.reports = reports
	s.mu.Unlock()
	return s.consensus
}

func (s *stubSynthesizer) gotReports() []AgentReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports
}

// findingsFor 构造一份可辨识的结论
func findingsFor(role models.RoleName, prediction models.Prediction, confidence int) models.AgentFindings {
	return models.AgentFindings{
		KeyFindings:     []string{string(role) + " evidence 1", string(role) + " evidence 2", string(role) + " evidence 3"},
		ConfidenceScore: confidence,
		Prediction:      prediction,
		Reasoning:       string(role) + " reasoning",
	}
}

// drain 读尽快照流并返回全部快照
func drain(t *testing.T, stream <-chan models.MarketAnalysis) []models.MarketAnalysis {
	t.Helper()
	var snapshots []models.MarketAnalysis
	timeout := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-stream:
			if !ok {
				return snapshots
			}
			snapshots = append(snapshots, snap)
		case <-timeout:
			t.Fatal("快照流未在超时前关闭")
			return nil
		}
	}
}

// TestControllerFullRun 完整跑通一次分析
func TestControllerFullRun(t *testing.T) {
	selected := []models.RoleName{models.RoleFinance, models.RoleMacro, models.RoleNewsfeed}
	analyzer := &stubAnalyzer{
		findings: map[models.RoleName]models.AgentFindings{
			models.RoleFinance:  findingsFor(models.RoleFinance, models.PredictionYes, 70),
			models.RoleMacro:    findingsFor(models.RoleMacro, models.PredictionUncertain, 55),
			models.RoleNewsfeed: findingsFor(models.RoleNewsfeed, models.PredictionYes, 65),
		},
	}
	synth := &stubSynthesizer{
		consensus: models.Consensus{
			Probability: 72,
			TopReasons:  []string{"inflows", "macro support", "news momentum"},
			Verdict:     "Likely resolves YES.",
		},
	}
	c := NewController(testCatalog(), &stubSelector{roles: selected}, analyzer, synth, Options{})

	stream, err := c.Run(context.Background(), "Will Bitcoin close above $100k this year?")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	snapshots := drain(t, stream)

	if len(snapshots) == 0 {
		t.Fatal("未收到任何快照")
	}

	// 状态只进不退
	order := map[models.RunStatus]int{
		models.RunInput:         0,
		models.RunOrchestrating: 1,
		models.RunSwarming:      2,
		models.RunConsensus:     3,
	}
	prev := -1
	for i, snap := range snapshots {
		rank, ok := order[snap.Status]
		if !ok {
			t.Fatalf("快照 %d 状态非法: %s", i, snap.Status)
		}
		if rank < prev {
			t.Fatalf("快照 %d 状态回退: %s", i, snap.Status)
		}
		prev = rank
	}

	final := snapshots[len(snapshots)-1]
	if final.Status != models.RunConsensus {
		t.Errorf("终态 = %s, want consensus", final.Status)
	}
	if len(final.Agents) != len(selected) {
		t.Fatalf("专家数 = %d, want %d", len(final.Agents), len(selected))
	}
	for i, agent := range final.Agents {
		if agent.Role != selected[i] {
			t.Errorf("专家 %d 角色 = %s, want %s", i, agent.Role, selected[i])
		}
		if agent.Status != models.AgentCompleted {
			t.Errorf("专家 %s 状态 = %s, want completed", agent.Role, agent.Status)
		}
		if agent.Findings == nil {
			t.Errorf("专家 %s 缺少结论", agent.Role)
		}
	}
	if final.FinalConsensus == nil || final.FinalConsensus.Probability != 72 {
		t.Errorf("共识 = %+v", final.FinalConsensus)
	}

	// 报告按选择顺序组装
	reports := synth.gotReports()
	if len(reports) != len(selected) {
		t.Fatalf("报告数 = %d", len(reports))
	}
	for i, r := range reports {
		if r.Role != selected[i] {
			t.Errorf("报告 %d 角色 = %s, want %s", i, r.Role, selected[i])
		}
		if !reflect.DeepEqual(r.Findings, analyzer.findings[selected[i]]) {
			t.Errorf("报告 %d 结论与专家输出不一致", i)
		}
	}
}

// TestControllerParallelAssemblyOrder 并行模式下完成顺序打乱也按选择顺序组装
func TestControllerParallelAssemblyOrder(t *testing.T) {
	selected := []models.RoleName{models.RoleFinance, models.RoleMacro, models.RoleNewsfeed}
	analyzer := &stubAnalyzer{
		findings: map[models.RoleName]models.AgentFindings{
			models.RoleFinance:  findingsFor(models.RoleFinance, models.PredictionYes, 70),
			models.RoleMacro:    findingsFor(models.RoleMacro, models.PredictionNo, 60),
			models.RoleNewsfeed: findingsFor(models.RoleNewsfeed, models.PredictionYes, 65),
		},
		delays: map[models.RoleName]time.Duration{
			models.RoleFinance:  80 * time.Millisecond, // 第一个选中的最后完成
			models.RoleMacro:    40 * time.Millisecond,
			models.RoleNewsfeed: 5 * time.Millisecond,
		},
	}
	synth := &stubSynthesizer{consensus: SentinelConsensus()}
	c := NewController(testCatalog(), &stubSelector{roles: selected}, analyzer, synth, Options{Mode: ModeParallel})

	stream, err := c.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	drain(t, stream)

	reports := synth.gotReports()
	for i, r := range reports {
		if r.Role != selected[i] {
			t.Errorf("报告 %d 角色 = %s, want %s", i, r.Role, selected[i])
		}
	}
}

// TestControllerStaggeredOrder 串行模式按选择顺序逐个分析
func TestControllerStaggeredOrder(t *testing.T) {
	selected := []models.RoleName{models.RoleReddit, models.RoleEntertainment, models.RoleSocialMedia}
	analyzer := &stubAnalyzer{
		findings: map[models.RoleName]models.AgentFindings{
			models.RoleReddit:        findingsFor(models.RoleReddit, models.PredictionYes, 60),
			models.RoleEntertainment: findingsFor(models.RoleEntertainment, models.PredictionNo, 45),
			models.RoleSocialMedia:   findingsFor(models.RoleSocialMedia, models.PredictionYes, 58),
		},
	}
	synth := &stubSynthesizer{consensus: SentinelConsensus()}
	c := NewController(testCatalog(), &stubSelector{roles: selected}, analyzer, synth, Options{
		Mode:             ModeStaggered,
		MinAgentDuration: time.Millisecond,
	})

	stream, err := c.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	drain(t, stream)

	if got := analyzer.callOrder(); !reflect.DeepEqual(got, selected) {
		t.Errorf("分析顺序 = %v, want %v", got, selected)
	}
}

// TestControllerAgentFailureIsolated 单专家失败只影响自己的结论
func TestControllerAgentFailureIsolated(t *testing.T) {
	selected := []models.RoleName{models.RoleFinance, models.RoleMacro, models.RoleNewsfeed}
	analyzer := &stubAnalyzer{
		findings: map[models.RoleName]models.AgentFindings{
			models.RoleFinance:  findingsFor(models.RoleFinance, models.PredictionYes, 70),
			models.RoleNewsfeed: findingsFor(models.RoleNewsfeed, models.PredictionYes, 65),
			// Macro 未预设，落哨兵
		},
	}
	synth := &stubSynthesizer{consensus: SentinelConsensus()}
	c := NewController(testCatalog(), &stubSelector{roles: selected}, analyzer, synth, Options{})

	stream, err := c.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	snapshots := drain(t, stream)
	final := snapshots[len(snapshots)-1]

	for _, agent := range final.Agents {
		if agent.Status != models.AgentCompleted || agent.Findings == nil {
			t.Fatalf("专家 %s 未完成", agent.Role)
		}
		if agent.Role == models.RoleMacro {
			if !reflect.DeepEqual(*agent.Findings, SentinelFindings()) {
				t.Errorf("失败专家结论 = %+v, want sentinel", *agent.Findings)
			}
		} else if agent.Findings.Prediction != models.PredictionYes {
			t.Errorf("正常专家 %s 结论被污染: %+v", agent.Role, *agent.Findings)
		}
	}
}

// TestControllerEmptyTopic 空问题直接拒绝
func TestControllerEmptyTopic(t *testing.T) {
	c := NewController(testCatalog(), &stubSelector{}, &stubAnalyzer{}, &stubSynthesizer{}, Options{})
	if _, err := c.Run(context.Background(), "   "); !errors.Is(err, ErrEmptyTopic) {
		t.Errorf("Run(空问题) error = %v, want ErrEmptyTopic", err)
	}
}

// TestControllerReset 重置后在途运行的迟到更新被丢弃
func TestControllerReset(t *testing.T) {
	selected := []models.RoleName{models.RoleFinance, models.RoleMacro, models.RoleNewsfeed}
	block := make(chan struct{})
	analyzer := &stubAnalyzer{block: block}
	synth := &stubSynthesizer{consensus: SentinelConsensus()}
	c := NewController(testCatalog(), &stubSelector{roles: selected}, analyzer, synth, Options{})

	stream, err := c.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// 等运行进入 swarming
	deadline := time.After(3 * time.Second)
	for c.Current().Status != models.RunSwarming {
		select {
		case <-deadline:
			t.Fatal("未进入 swarming")
		case <-time.After(5 * time.Millisecond):
		}
	}

	c.Reset()

	cur := c.Current()
	if cur.Status != models.RunInput || cur.RunID != "" || len(cur.Agents) != 0 {
		t.Fatalf("重置后状态 = %+v", cur)
	}

	// 释放在途分析，其回写应因 runID 不匹配被丢弃
	close(block)
	time.Sleep(100 * time.Millisecond)

	cur = c.Current()
	if cur.Status != models.RunInput || len(cur.Agents) != 0 {
		t.Errorf("迟到更新污染了重置后的状态: %+v", cur)
	}

	// 旧流已被关闭
	for range stream {
	}

	// 重置后可以立刻开新运行
	analyzer2 := &stubAnalyzer{
		findings: map[models.RoleName]models.AgentFindings{
			models.RoleFinance:  findingsFor(models.RoleFinance, models.PredictionYes, 70),
			models.RoleMacro:    findingsFor(models.RoleMacro, models.PredictionYes, 60),
			models.RoleNewsfeed: findingsFor(models.RoleNewsfeed, models.PredictionYes, 65),
		},
	}
	c2 := NewController(testCatalog(), &stubSelector{roles: selected}, analyzer2, synth, Options{})
	stream2, err := c2.Run(context.Background(), "another question")
	if err != nil {
		t.Fatalf("重置后 Run() error: %v", err)
	}
	snapshots := drain(t, stream2)
	if snapshots[len(snapshots)-1].Status != models.RunConsensus {
		t.Error("重置后的新运行未跑完")
	}
}

// TestControllerRerun 再次 Run 会废弃上一次运行
func TestControllerRerun(t *testing.T) {
	selected := []models.RoleName{models.RoleFinance, models.RoleMacro, models.RoleNewsfeed}
	block := make(chan struct{})
	analyzer := &stubAnalyzer{block: block}
	synth := &stubSynthesizer{consensus: SentinelConsensus()}
	c := NewController(testCatalog(), &stubSelector{roles: selected}, analyzer, synth, Options{})

	stream1, err := c.Run(context.Background(), "first question")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	firstRunID := c.Current().RunID

	stream2, err := c.Run(context.Background(), "second question")
	if err != nil {
		t.Fatalf("第二次 Run() error: %v", err)
	}
	if c.Current().RunID == firstRunID {
		t.Error("第二次运行应获得新的 runID")
	}

	// 第一条流被关闭
	for range stream1 {
	}

	close(block)
	snapshots := drain(t, stream2)
	final := snapshots[len(snapshots)-1]
	if final.Topic != "second question" {
		t.Errorf("终态 topic = %q", final.Topic)
	}
	if final.Status != models.RunConsensus {
		t.Errorf("终态 = %s", final.Status)
	}
}

// TestControllerCurrentIsSnapshot Current 返回与内部状态解耦的副本
func TestControllerCurrentIsSnapshot(t *testing.T) {
	c := NewController(testCatalog(), &stubSelector{}, &stubAnalyzer{}, &stubSynthesizer{}, Options{})
	snap := c.Current()
	snap.Status = models.RunConsensus
	snap.Topic = "tampered"
	if cur := c.Current(); cur.Status != models.RunInput || cur.Topic != "" {
		t.Errorf("外部修改快照影响了内部状态: %+v", cur)
	}
}
