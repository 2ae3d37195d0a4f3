package task

import (
	"sync/atomic"

	"git.fiblab.net/sim/syncer/v3"
	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/adaptive-junction/clock"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity/junction"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity/lane"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity/vehicle"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/config"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/randengine"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/recorder"
)

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有组件和状态
// 说明：时钟同时承担暂停/恢复/停止信号，路口、车辆生成器与记录器共享同一个车道注册表
type Context struct {
	// 任务名
	job string
	// 本次运行的标识，写入驶离记录
	runID string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 辅助程序，向显示层提供RPC服务；为nil时不提供
	sidecar *syncer.Sidecar
	// sidecar close channel
	sidecarCloseCh chan struct{}
	serving        bool

	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 出口方向选择使用的随机数引擎
	random *randengine.Engine

	lanes    *lane.Registry
	junction *junction.Junction
	source   *vehicle.Source

	// 驶离记录器，未配置输出时为nil
	recorder      *recorder.Recorder
	closeRecorder func()
}

// NewContext 创建新的仿真任务上下文
// 参数：
//   - job: 任务名称
//   - rc: 运行时配置
//   - sidecar: sidecar实例，为nil时不注册RPC服务
//   - startSidecarServe: 是否启动sidecar服务
//
// 返回：初始化完成的Context实例
// 算法说明：
// 1. 创建时钟、随机数引擎与车道注册表
// 2. 创建路口（信号灯调度器、放行器、驶离事件分发）与车辆生成器
// 3. 配置了输出时连接MongoDB并创建记录器
// 4. 注册RPC服务到sidecar并启动sidecar服务（如果需要）
func NewContext(
	job string,
	rc *config.RuntimeConfig,
	sidecar *syncer.Sidecar,
	startSidecarServe bool,
) *Context {
	ctx := &Context{
		job:            job,
		runID:          uuid.NewString(),
		sidecar:        sidecar,
		sidecarCloseCh: make(chan struct{}),
		runtimeConfig:  rc,
	}
	ctx.clock = clock.New(rc.C)
	ctx.random = randengine.New(rc.C.Seed)
	ctx.lanes = lane.NewRegistry()
	ctx.junction = junction.New(ctx.lanes, rc.PriorityLane, ctx.random, ctx.clock, rc.All.Junction.FeedBuffer)
	ctx.source = vehicle.NewSource(ctx.lanes)

	if rc.All.Output.URI != "" {
		ctx.recorder, ctx.closeRecorder = recorder.Open(rc.All.Output, ctx.runID)
	}

	if sidecar != nil {
		ctx.clock.Register(sidecar)
		ctx.junction.Register(sidecar)
		if startSidecarServe {
			ctx.serving = true
			go func() {
				err := sidecar.Serve()
				if err != nil {
					log.Panicf("failed to serve: %v", err)
				}
				ctx.sidecarCloseCh <- struct{}{}
			}()
		}
	}
	log.Infof("job %s run %s: priority lane %v", job, ctx.runID, rc.PriorityLane)
	return ctx
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) Junction() *junction.Junction {
	return ctx.junction
}

func (ctx *Context) Source() *vehicle.Source {
	return ctx.source
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) RunID() string {
	return ctx.runID
}

// Init 重置时钟并注入预置车辆
func (ctx *Context) Init() {
	ctx.clock.Init()
	ctx.source.Preload(ctx.runtimeConfig.Preload)
	ac, bd := ctx.junction.LightState()
	log.Infof("Lane: %v", len(ctx.lanes.Stats()))
	log.Infof("Light: AC=%v BD=%v", ac, bd)
}

// Close 停止仿真并释放资源，重复调用无额外效果
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	ctx.clock.Stop()
	ctx.junction.Close()
	if ctx.closeRecorder != nil {
		ctx.closeRecorder()
	}
	if ctx.serving {
		ctx.sidecar.Close()
		// wait for graceful stop
		<-ctx.sidecarCloseCh
	}
}
