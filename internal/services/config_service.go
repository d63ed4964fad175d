// Package services 提供应用层服务
package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/run-bigpig/ycp/internal/logger"
	"github.com/run-bigpig/ycp/internal/models"
	"github.com/run-bigpig/ycp/internal/pkg/paths"
	"github.com/run-bigpig/ycp/internal/swarm"
)

var configLog = logger.New("config")

// 配置文件名
const configFileName = "config.json"

// AppConfig 应用配置
type AppConfig struct {
	AI            models.AIConfig          `json:"ai"`            // AI 服务配置
	ExecutionMode string                   `json:"executionMode"` // 蜂群执行模式: parallel/staggered
	MCPServers    []models.MCPServerConfig `json:"mcpServers"`    // MCP 服务器列表
}

// ConfigService 配置服务，负责应用配置的读写与持久化
type ConfigService struct {
	mu       sync.RWMutex
	config   AppConfig
	filePath string
}

// NewConfigService 创建配置服务，加载已有配置或使用默认值
func NewConfigService() *ConfigService {
	s := &ConfigService{
		filePath: filepath.Join(paths.GetDataDir(), configFileName),
		config:   defaultConfig(),
	}
	s.load()
	return s
}

// defaultConfig 默认配置
func defaultConfig() AppConfig {
	return AppConfig{
		AI: models.AIConfig{
			Provider: models.AIProviderGemini,
		},
		ExecutionMode: swarm.ModeParallel,
		MCPServers:    []models.MCPServerConfig{},
	}
}

// load 从磁盘加载配置，文件不存在或损坏时保留默认值
func (s *ConfigService) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			configLog.Warn("read config error: %v", err)
		}
		return
	}

	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		configLog.Error("parse config error, using defaults: %v", err)
		return
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	configLog.Info("config loaded from %s", s.filePath)
}

// save 将当前配置写入磁盘
func (s *ConfigService) save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.config, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0644)
}

// GetAIConfig 获取 AI 配置
func (s *ConfigService) GetAIConfig() models.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.AI
}

// SaveAIConfig 保存 AI 配置
func (s *ConfigService) SaveAIConfig(cfg models.AIConfig) error {
	s.mu.Lock()
	s.config.AI = cfg
	s.mu.Unlock()
	return s.save()
}

// GetExecutionMode 获取蜂群执行模式
func (s *ConfigService) GetExecutionMode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.ExecutionMode
}

// SaveExecutionMode 保存蜂群执行模式
func (s *ConfigService) SaveExecutionMode(mode string) error {
	s.mu.Lock()
	s.config.ExecutionMode = mode
	s.mu.Unlock()
	return s.save()
}

// GetMCPServers 获取 MCP 服务器配置列表
func (s *ConfigService) GetMCPServers() []models.MCPServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MCPServerConfig, len(s.config.MCPServers))
	copy(out, s.config.MCPServers)
	return out
}

// SaveMCPServers 保存 MCP 服务器配置列表
func (s *ConfigService) SaveMCPServers(servers []models.MCPServerConfig) error {
	s.mu.Lock()
	s.config.MCPServers = servers
	s.mu.Unlock()
	return s.save()
}
