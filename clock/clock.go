package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/config"
)

// Clock 仿真时钟
// 功能：提供逻辑时间，并承载暂停/恢复/停止三个控制信号
// 说明：逻辑时间 = (墙钟流逝时间 - 暂停时长) × 速度倍率；暂停期间逻辑时间冻结，
// 恢复后各协程从冻结处继续计时，已经开始的相位倒计时不会重置
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	Speed float64       // 每秒墙钟时间对应的逻辑秒数
	Poll  time.Duration // 挂起时检查暂停/停止信号的逻辑时间粒度

	mtx         sync.Mutex
	cond        *sync.Cond
	start       time.Time     // 计时起点（墙钟）
	pausedAt    time.Time     // 本次暂停开始时刻（墙钟）
	pausedTotal time.Duration // 已结束的暂停累计时长（墙钟）
	paused      bool
	stopped     bool
	stopCh      chan struct{}
}

// New 根据配置创建时钟并开始计时
// 参数：c-控制配置（速度倍率、轮询粒度）
func New(c config.Control) *Clock {
	clk := &Clock{
		Speed:  c.Speed,
		Poll:   c.PollInterval,
		stopCh: make(chan struct{}),
	}
	if clk.Speed <= 0 {
		clk.Speed = config.DefaultSpeed
	}
	if clk.Poll <= 0 {
		clk.Poll = config.DefaultPollInterval
	}
	clk.cond = sync.NewCond(&clk.mtx)
	clk.Init()
	return clk
}

// Init 重置计时起点与暂停累计，不改变停止状态
func (c *Clock) Init() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.start = time.Now()
	c.pausedAt = c.start
	c.pausedTotal = 0
}

// Elapsed 当前逻辑时间（自计时起点）
func (c *Clock) Elapsed() time.Duration {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.elapsedLocked()
}

func (c *Clock) elapsedLocked() time.Duration {
	wall := time.Now()
	if c.paused {
		wall = c.pausedAt
	}
	elapsed := wall.Sub(c.start) - c.pausedTotal
	return time.Duration(float64(elapsed) * c.Speed)
}

// toWall 把逻辑时长换算为墙钟时长
func (c *Clock) toWall(d time.Duration) time.Duration {
	return time.Duration(float64(d) / c.Speed)
}

// Sleep 挂起指定的逻辑时长
// 功能：按Poll粒度分段等待，每段开始前检查暂停与停止信号；暂停期间阻塞在条件变量上
// 参数：ctx-上下文，d-逻辑时长
// 返回：正常结束返回true，收到停止信号或ctx取消返回false
func (c *Clock) Sleep(ctx context.Context, d time.Duration) bool {
	deadline := c.Elapsed() + d
	for {
		if !c.WaitRunning(ctx) {
			return false
		}
		remaining := deadline - c.Elapsed()
		if remaining <= 0 {
			return true
		}
		timer := time.NewTimer(c.toWall(min(remaining, c.Poll)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-c.stopCh:
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// String 当前逻辑时间的HH:MM:SS表示
func (c *Clock) String() string {
	hour, minute, second := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, int(second))
}

// GetHourMinuteSecond 将当前逻辑时间分解为小时、分钟、秒（秒为浮点数）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	t := c.Elapsed().Seconds()
	hour := int(t) / 3600
	minute := int(t) % 3600 / 60
	second := t - float64(hour*3600+minute*60)
	return hour, minute, second
}
