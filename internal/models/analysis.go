package models

// Prediction 单个专家的方向判断
type Prediction string

// 判断结果常量
const (
	PredictionYes       Prediction = "YES"
	PredictionNo        Prediction = "NO"
	PredictionUncertain Prediction = "UNCERTAIN"
)

// Valid 判断取值是否合法
func (p Prediction) Valid() bool {
	switch p {
	case PredictionYes, PredictionNo, PredictionUncertain:
		return true
	}
	return false
}

// AgentStatus 专家实例生命周期状态（只进不退）
type AgentStatus string

// 专家状态常量
const (
	AgentSelected  AgentStatus = "selected"
	AgentAnalyzing AgentStatus = "analyzing"
	AgentCompleted AgentStatus = "completed"
)

// RunStatus 单次分析的运行状态（只进不退）
type RunStatus string

// 运行状态常量
const (
	RunInput         RunStatus = "input"
	RunOrchestrating RunStatus = "orchestrating"
	RunSwarming      RunStatus = "swarming"
	RunConsensus     RunStatus = "consensus"
)

// AgentFindings 单个专家的分析结论（一旦挂到实例上即不可变）
type AgentFindings struct {
	KeyFindings     []string   `json:"keyFindings"`     // 关键证据，约定 3 条
	ConfidenceScore int        `json:"confidenceScore"` // 置信度 0-100
	Prediction      Prediction `json:"prediction"`      // YES/NO/UNCERTAIN
	Reasoning       string     `json:"reasoning"`       // 简要推理
}

// AgentInstance 专家实例，按编排选择顺序创建
type AgentInstance struct {
	ID       int            `json:"id"`       // 选择顺序位次
	Role     RoleName       `json:"role"`     // 所属角色
	Status   AgentStatus    `json:"status"`   // selected → analyzing → completed
	Findings *AgentFindings `json:"findings"` // completed 前为空
}

// Consensus 汇总裁决
type Consensus struct {
	Probability int      `json:"probability"` // P(YES) 0-100
	TopReasons  []string `json:"topReasons"`  // 主要理由
	Verdict     string   `json:"verdict"`     // 一句话裁决
}

// MarketAnalysis 一次完整分析的聚合状态，同时只有一个活跃实例
type MarketAnalysis struct {
	RunID          string          `json:"runId"`          // 本次运行标识
	Topic          string          `json:"topic"`          // 用户提交的问题，设置后不变
	Status         RunStatus       `json:"status"`         // input → orchestrating → swarming → consensus
	Agents         []AgentInstance `json:"agents"`         // 插入顺序 = 选择顺序
	FinalConsensus *Consensus      `json:"finalConsensus"` // consensus 阶段完成后填充
}

// Clone 深拷贝，用于向外发布快照时与内部状态解耦
func (m *MarketAnalysis) Clone() MarketAnalysis {
	out := MarketAnalysis{
		RunID:  m.RunID,
		Topic:  m.Topic,
		Status: m.Status,
	}
	if len(m.Agents) > 0 {
		out.Agents = make([]AgentInstance, len(m.Agents))
		copy(out.Agents, m.Agents)
		for i := range out.Agents {
			if f := out.Agents[i].Findings; f != nil {
				cp := *f
				cp.KeyFindings = append([]string(nil), f.KeyFindings...)
				out.Agents[i].Findings = &cp
			}
		}
	}
	if m.FinalConsensus != nil {
		cp := *m.FinalConsensus
		cp.TopReasons = append([]string(nil), m.FinalConsensus.TopReasons...)
		out.FinalConsensus = &cp
	}
	return out
}
