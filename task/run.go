package task

import (
	"context"
	"flag"
	"sync"
	"time"
)

const (
	SelfName = "city" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 10, "心跳日志间隔（逻辑秒）")
)

// heartbeat 定期输出路口状态，暂停期间不输出
func (ctx *Context) heartbeat(c context.Context) {
	interval := time.Duration(*heartBeatInterval) * time.Second
	if interval <= 0 {
		return
	}
	for ctx.clock.Sleep(c, interval) {
		v := ctx.junction.View()
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		enqueued, passed, waiting := ctx.lanes.Totals()
		log.Infof(
			"T: %d:%02d:%05.2f cycle %d %v(%.1fs left) enqueued %d passed %d waiting %d dropped %d",
			hour, minute, second,
			v.Cycle, v.Phase, v.Remaining.Seconds(),
			enqueued, passed, waiting, v.Dropped,
		)
	}
}

// Run 运行
// 功能：启动信号灯调度、车辆生成、放行三个并发循环（以及可选的记录器与心跳日志），
// 直到收到停止信号或c被取消
// 算法说明：
// 1. 初始化时钟与预置车辆
// 2. 记录器先订阅驶离事件，再启动各循环，保证不漏掉第一次放行
// 3. 三个循环全部退出后关闭驶离事件分发，等待记录器写完剩余记录
func (ctx *Context) Run(c context.Context) {
	ctx.Init()

	var recorderWg sync.WaitGroup
	if ctx.recorder != nil {
		events, cancel := ctx.junction.Departures()
		defer cancel()
		recorderWg.Add(1)
		go func() {
			defer recorderWg.Done()
			ctx.recorder.Run(context.WithoutCancel(c), events)
		}()
	}

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){
		func(c context.Context) { ctx.junction.RunScheduler(c, ctx.clock) },
		func(c context.Context) { ctx.source.Run(c, ctx.clock) },
		func(c context.Context) { ctx.junction.RunDispatcher(c, ctx.clock) },
		ctx.heartbeat,
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(c)
		}()
	}
	wg.Wait()

	ctx.junction.Close()
	recorderWg.Wait()
	enqueued, passed, waiting := ctx.lanes.Totals()
	log.Infof("engine complete at %v: enqueued %d passed %d waiting %d", ctx.clock, enqueued, passed, waiting)
	ctx.Close()
}
