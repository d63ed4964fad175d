package services

import (
	"context"

	"github.com/run-bigpig/ycp/internal/logger"
	"github.com/run-bigpig/ycp/internal/models"
	"github.com/run-bigpig/ycp/internal/swarm"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

var pusherLog = logger.New("pusher")

// 事件名称常量
const (
	EventSwarmStateUpdate = "swarm:state:update"
	EventSwarmRunStart    = "swarm:run:start"
	EventSwarmRunReset    = "swarm:run:reset"
	EventSwarmRunError    = "swarm:run:error"
	EventSwarmCatalog     = "swarm:catalog"
)

// safeCall 安全调用，捕获 panic 避免崩溃
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			pusherLog.Error("panic recovered: %v", r)
		}
	}()
	fn()
}

// SwarmPusher 蜂群状态推送服务
// 监听前端的运行/重置请求，把控制器的状态快照实时推送到前端
type SwarmPusher struct {
	ctx        context.Context
	controller *swarm.Controller

	stopChan chan struct{}
	running  bool
}

// NewSwarmPusher 创建蜂群状态推送服务
func NewSwarmPusher(controller *swarm.Controller) *SwarmPusher {
	return &SwarmPusher{
		controller: controller,
		stopChan:   make(chan struct{}),
	}
}

// Start 启动推送服务
func (p *SwarmPusher) Start(ctx context.Context) {
	p.ctx = ctx
	p.running = true

	// 监听前端请求
	p.setupEventListeners()

	// 启动时推送角色目录和当前状态
	safeCall(p.pushCatalog)
	safeCall(func() { p.pushState(p.controller.Current()) })
}

// Stop 停止推送服务
func (p *SwarmPusher) Stop() {
	if p.running {
		close(p.stopChan)
		p.running = false
	}
}

// setupEventListeners 设置事件监听
func (p *SwarmPusher) setupEventListeners() {
	// 监听分析启动请求
	runtime.EventsOn(p.ctx, EventSwarmRunStart, func(data ...any) {
		if len(data) > 0 {
			if topic, ok := data[0].(string); ok {
				p.StartRun(topic)
			}
		}
	})

	// 监听重置请求
	runtime.EventsOn(p.ctx, EventSwarmRunReset, func(data ...any) {
		p.controller.Reset()
		safeCall(func() { p.pushState(p.controller.Current()) })
	})
}

// StartRun 启动一次分析并转发其快照流
func (p *SwarmPusher) StartRun(topic string) {
	stream, err := p.controller.Run(p.ctx, topic)
	if err != nil {
		pusherLog.Error("run start error: %v", err)
		safeCall(func() {
			runtime.EventsEmit(p.ctx, EventSwarmRunError, err.Error())
		})
		return
	}

	go p.forward(stream)
}

// forward 将快照流逐帧推送到前端，流关闭后退出
func (p *SwarmPusher) forward(stream <-chan models.MarketAnalysis) {
	for {
		select {
		case <-p.stopChan:
			return
		case snapshot, ok := <-stream:
			if !ok {
				return
			}
			safeCall(func() { p.pushState(snapshot) })
		}
	}
}

// pushState 推送状态快照
func (p *SwarmPusher) pushState(snapshot models.MarketAnalysis) {
	runtime.EventsEmit(p.ctx, EventSwarmStateUpdate, snapshot)
}

// pushCatalog 推送角色目录
func (p *SwarmPusher) pushCatalog() {
	runtime.EventsEmit(p.ctx, EventSwarmCatalog, p.controller.Catalog())
}
