package models

// AI 提供商常量
const (
	AIProviderGemini = "gemini"
	AIProviderOpenAI = "openai"
)

// AIConfig AI 服务配置
type AIConfig struct {
	Provider  string `json:"provider"`  // 提供商: gemini/openai
	APIKey    string `json:"apiKey"`    // API 密钥
	BaseURL   string `json:"baseUrl"`   // 自定义接入点（可选）
	ModelName string `json:"modelName"` // 模型名称
}

// SupportsSearch 判断提供商是否支持原生联网检索
// Gemini 可挂载 GoogleSearch 工具；OpenAI 兼容接口走内置工具降级
func (c *AIConfig) SupportsSearch() bool {
	return c.Provider == AIProviderGemini
}

// MCPTransport 传输类型常量
const (
	MCPTransportHTTP    = "http"
	MCPTransportSSE     = "sse"
	MCPTransportCommand = "command"
)

// MCPServerConfig MCP 服务器配置
type MCPServerConfig struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Enabled       bool     `json:"enabled"`
	TransportType string   `json:"transportType"` // http/sse/command
	Endpoint      string   `json:"endpoint"`      // http/sse 接入点
	Command       string   `json:"command"`       // command 模式可执行文件
	Args          []string `json:"args"`          // command 模式参数
	ToolFilter    []string `json:"toolFilter"`    // 工具白名单，为空表示全部
}
