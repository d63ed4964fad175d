package swarm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/run-bigpig/ycp/internal/models"
)

// 执行模式常量
const (
	ModeParallel  = "parallel"  // 并行模式：全部专家同时分析
	ModeStaggered = "staggered" // 串行模式：按选择顺序逐个分析，保证阶段可见
)

// DefaultMinAgentDuration 串行模式下单个专家的最小占用时长
const DefaultMinAgentDuration = 1200 * time.Millisecond

// 快照通道缓冲大小，单次运行的快照数远小于此
const snapshotBuffer = 64

// ErrEmptyTopic 问题为空
var ErrEmptyTopic = errors.New("topic is empty")

// Selector 角色选择阶段（全函数，内部消化失败）
type Selector interface {
	Select(ctx context.Context, topic string, catalog []models.RoleProfile) []models.RoleName
}

// Analyzer 单专家分析阶段（全函数，失败落哨兵）
type Analyzer interface {
	Analyze(ctx context.Context, profile models.RoleProfile, topic string) models.AgentFindings
}

// Synthesizer 共识合成阶段（全函数，失败落哨兵）
type Synthesizer interface {
	Synthesize(ctx context.Context, topic string, reports []AgentReport) models.Consensus
}

// Options 控制器运行选项
type Options struct {
	Mode             string        // parallel / staggered
	MinAgentDuration time.Duration // 串行模式下单专家最小时长
}

// Controller 蜂群控制器，唯一持有运行状态的写入方
// 所有变更都经过 apply 串行化，并以 runID 区分新旧运行，
// 过期运行的异步回调一律丢弃（reset 不会取消已发出的外部调用）
type Controller struct {
	catalog     []models.RoleProfile
	selector    Selector
	analyzer    Analyzer
	synthesizer Synthesizer
	opts        Options

	mu       sync.Mutex
	analysis models.MarketAnalysis
	stream   chan models.MarketAnalysis // 活跃运行的快照流，无运行时为 nil
}

// NewController 创建蜂群控制器
func NewController(catalog []models.RoleProfile, selector Selector, analyzer Analyzer, synthesizer Synthesizer, opts Options) *Controller {
	if opts.Mode == "" {
		opts.Mode = ModeParallel
	}
	if opts.MinAgentDuration <= 0 {
		opts.MinAgentDuration = DefaultMinAgentDuration
	}
	return &Controller{
		catalog:     catalog,
		selector:    selector,
		analyzer:    analyzer,
		synthesizer: synthesizer,
		opts:        opts,
		analysis:    models.MarketAnalysis{Status: models.RunInput, Agents: []models.AgentInstance{}},
	}
}

// Run 启动一次完整分析，返回状态快照流
// 流在 finalConsensus 填充后关闭；再次 Run 或 Reset 会废弃当前运行
func (c *Controller) Run(ctx context.Context, topic string) (<-chan models.MarketAnalysis, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	c.mu.Lock()
	// 整体替换而非增量重置
	if c.stream != nil {
		close(c.stream)
	}
	runID := uuid.New().String()
	c.analysis = models.MarketAnalysis{
		RunID:  runID,
		Topic:  topic,
		Status: models.RunInput,
		Agents: []models.AgentInstance{},
	}
	ch := make(chan models.MarketAnalysis, snapshotBuffer)
	c.stream = ch
	c.publishLocked()
	c.mu.Unlock()

	go c.run(ctx, runID, topic)

	log.Info("run %s started, topic: %s", runID[:8], truncateString(topic, 80))
	return ch, nil
}

// Reset 废弃当前分析，回到全新 input 状态
// 任何阶段都可触发；在途外部调用不取消，其结果因 runID 不匹配被丢弃
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		close(c.stream)
		c.stream = nil
	}
	c.analysis = models.MarketAnalysis{Status: models.RunInput, Agents: []models.AgentInstance{}}
	log.Info("analysis reset")
}

// Current 返回当前状态快照
func (c *Controller) Current() models.MarketAnalysis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analysis.Clone()
}

// Catalog 返回角色目录副本
func (c *Controller) Catalog() []models.RoleProfile {
	out := make([]models.RoleProfile, len(c.catalog))
	copy(out, c.catalog)
	return out
}

// run 驱动一次运行走完 orchestrating → swarming → consensus
func (c *Controller) run(ctx context.Context, runID string, topic string) {
	// 阶段1: 编排（成功或降级都不阻断）
	if !c.apply(runID, func(m *models.MarketAnalysis) {
		m.Status = models.RunOrchestrating
	}) {
		return
	}

	selected := c.selector.Select(ctx, topic, c.Catalog())

	// 实例化专家并进入 swarming
	if !c.apply(runID, func(m *models.MarketAnalysis) {
		m.Agents = make([]models.AgentInstance, 0, len(selected))
		for i, role := range selected {
			m.Agents = append(m.Agents, models.AgentInstance{
				ID:     i,
				Role:   role,
				Status: models.AgentSelected,
			})
		}
		m.Status = models.RunSwarming
	}) {
		return
	}

	profiles := c.profilesFor(selected)
	results := make([]models.AgentFindings, len(selected))

	switch c.opts.Mode {
	case ModeStaggered:
		c.runStaggered(ctx, runID, topic, profiles, results)
	default:
		c.runParallel(ctx, runID, topic, profiles, results)
	}

	// 全部专家 completed 后才进入 consensus
	if !c.apply(runID, func(m *models.MarketAnalysis) {
		m.Status = models.RunConsensus
	}) {
		return
	}

	// 按原始选择顺序组装报告，而非完成顺序
	reports := make([]AgentReport, len(selected))
	for i, role := range selected {
		reports[i] = AgentReport{Role: role, Findings: results[i]}
	}

	consensus := c.synthesizer.Synthesize(ctx, topic, reports)

	if !c.apply(runID, func(m *models.MarketAnalysis) {
		cc := consensus
		m.FinalConsensus = &cc
	}) {
		return
	}

	c.finish(runID)
	log.Info("run %s reached consensus: probability=%d", runID[:8], consensus.Probability)
}

// runParallel 并行执行全部专家分析
func (c *Controller) runParallel(ctx context.Context, runID string, topic string, profiles []models.RoleProfile, results []models.AgentFindings) {
	var wg sync.WaitGroup
	for i := range profiles {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.runAgent(ctx, runID, id, topic, profiles[id], results)
		}(i)
	}
	wg.Wait()
}

// runStaggered 按选择顺序串行执行，每个专家至少占用 MinAgentDuration
func (c *Controller) runStaggered(ctx context.Context, runID string, topic string, profiles []models.RoleProfile, results []models.AgentFindings) {
	for i := range profiles {
		start := time.Now()
		c.markAnalyzing(runID, i)
		results[i] = c.analyzer.Analyze(ctx, profiles[i], topic)

		// 补足最小时长，让状态流转肉眼可见
		if remaining := c.opts.MinAgentDuration - time.Since(start); remaining > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(remaining):
			}
		}
		c.attachFindings(runID, i, results[i])
	}
}

// runAgent 执行单个专家：selected → analyzing → completed
func (c *Controller) runAgent(ctx context.Context, runID string, id int, topic string, profile models.RoleProfile, results []models.AgentFindings) {
	c.markAnalyzing(runID, id)
	results[id] = c.analyzer.Analyze(ctx, profile, topic)
	c.attachFindings(runID, id, results[id])
}

// markAnalyzing 将指定专家推进到 analyzing
func (c *Controller) markAnalyzing(runID string, id int) {
	c.apply(runID, func(m *models.MarketAnalysis) {
		if id < len(m.Agents) && m.Agents[id].Status == models.AgentSelected {
			m.Agents[id].Status = models.AgentAnalyzing
		}
	})
}

// attachFindings 挂载结论并推进到 completed，只写自己的实例，挂载后不可变
func (c *Controller) attachFindings(runID string, id int, findings models.AgentFindings) {
	c.apply(runID, func(m *models.MarketAnalysis) {
		if id >= len(m.Agents) || m.Agents[id].Findings != nil {
			return
		}
		f := findings
		m.Agents[id].Findings = &f
		m.Agents[id].Status = models.AgentCompleted
	})
}

// apply 串行化应用一次状态变更并发布快照
// runID 与当前运行不符时直接丢弃（过期运行的迟到回调）
func (c *Controller) apply(runID string, mutate func(*models.MarketAnalysis)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.analysis.RunID != runID {
		log.Debug("stale update for run %s dropped", runID[:8])
		return false
	}
	mutate(&c.analysis)
	c.publishLocked()
	return true
}

// publishLocked 向快照流发布当前状态的深拷贝，调用方须持锁
// 流满时丢弃本帧：快照是全量状态，后续帧会覆盖
func (c *Controller) publishLocked() {
	if c.stream == nil {
		return
	}
	select {
	case c.stream <- c.analysis.Clone():
	default:
		log.Warn("snapshot stream full, frame dropped")
	}
}

// finish 运行正常收尾，关闭属于本次运行的快照流
func (c *Controller) finish(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.analysis.RunID != runID || c.stream == nil {
		return
	}
	close(c.stream)
	c.stream = nil
}

// profilesFor 将角色名映射回目录条目，顺序与选择顺序一致
func (c *Controller) profilesFor(selected []models.RoleName) []models.RoleProfile {
	index := make(map[models.RoleName]models.RoleProfile, len(c.catalog))
	for _, p := range c.catalog {
		index[p.Role] = p
	}
	out := make([]models.RoleProfile, len(selected))
	for i, role := range selected {
		out[i] = index[role]
	}
	return out
}

