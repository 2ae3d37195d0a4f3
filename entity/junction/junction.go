package junction

import (
	"context"
	"time"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity/lane"
)

// Junction 路口
// 功能：组合车道注册表、信号灯调度器、放行器与驶离事件分发，向显示层提供只读快照与控制接口
type Junction struct {
	lanes      *lane.Registry
	scheduler  *trafficlight.Scheduler
	light      entity.ILightGetter // 显示层读取灯色的接口，由调度器实现
	dispatcher *Dispatcher
	feed       *Feed
	control    IController
}

// New 创建路口
// 参数：
//   - lanes: 车道注册表
//   - priorityLane: 优先车道
//   - random: 出口方向选择使用的随机数引擎
//   - control: 暂停/恢复/停止信号与逻辑时间的提供者
//   - feedBuffer: 驶离事件订阅者的缓冲长度
func New(
	lanes *lane.Registry,
	priorityLane entity.LaneID,
	random entity.IRandom,
	control IController,
	feedBuffer int,
) *Junction {
	j := &Junction{
		lanes:     lanes,
		scheduler: trafficlight.NewScheduler(lanes, priorityLane),
		feed:      NewFeed(feedBuffer),
		control:   control,
	}
	j.light = j.scheduler
	j.dispatcher = NewDispatcher(lanes, j.light, random, j.feed.Publish)
	return j
}

// Scheduler 信号灯调度器
func (j *Junction) Scheduler() *trafficlight.Scheduler {
	return j.scheduler
}

// Dispatcher 放行器
func (j *Junction) Dispatcher() *Dispatcher {
	return j.dispatcher
}

// Lanes 车道注册表
func (j *Junction) Lanes() *lane.Registry {
	return j.lanes
}

// RunScheduler 运行信号灯调度循环
func (j *Junction) RunScheduler(ctx context.Context, clk entity.IClock) {
	j.scheduler.Run(ctx, clk)
}

// RunDispatcher 运行放行循环
func (j *Junction) RunDispatcher(ctx context.Context, clk entity.IClock) {
	j.dispatcher.Run(ctx, clk)
}

// Close 关闭驶离事件分发
func (j *Junction) Close() {
	j.feed.Close()
}

// 显示层只读接口

// Snapshot 指定车道排队车辆的只读副本
func (j *Junction) Snapshot(id entity.LaneID) []entity.VehicleID {
	return j.lanes.Snapshot(id)
}

// LightState 两个相位组的灯色
func (j *Junction) LightState() (ac, bd mapv2.LightState) {
	return j.light.LightState()
}

// PassedCount 指定车道的累计通过数
func (j *Junction) PassedCount(id entity.LaneID) int {
	return j.lanes.PassedCount(id)
}

// PriorityActive 优先相位是否生效
func (j *Junction) PriorityActive() bool {
	return j.light.PriorityActive()
}

// Departures 订阅驶离事件，显示层消费不及时的事件会被丢弃
func (j *Junction) Departures() (<-chan entity.Departure, func()) {
	return j.feed.Subscribe()
}

// 显示层控制接口

func (j *Junction) Pause()  { j.control.Pause() }
func (j *Junction) Resume() { j.control.Resume() }
func (j *Junction) Stop()   { j.control.Stop() }

// LaneView 车道统计面板中的一行
type LaneView struct {
	ID       entity.LaneID
	Waiting  []entity.VehicleID
	Passed   int
	Priority bool // 优先车道且优先相位生效时高亮
}

// View 路口完整快照
type View struct {
	T              time.Duration
	Paused         bool
	AC, BD         mapv2.LightState
	Phase          trafficlight.Phase
	Cycle          int64
	Remaining      time.Duration // 当前相位剩余绿灯时间
	PriorityLane   entity.LaneID
	PriorityActive bool
	Lanes          []LaneView // 按显示顺序
	Departed       int64      // 累计放行数
	Dropped        int64      // 因订阅者消费不及时而丢弃的驶离事件数
}

// View 生成路口完整快照
// 说明：灯色是同一时刻的完整一对；各车道分别读取，不同车道之间不保证是同一时刻
func (j *Junction) View() View {
	now := j.control.Elapsed()
	st := j.scheduler.State()
	priorityActive := j.scheduler.PriorityActive()
	priorityLane := j.scheduler.PriorityLane()
	return View{
		T:              now,
		Paused:         j.control.Paused(),
		AC:             st.AC,
		BD:             st.BD,
		Phase:          st.Phase,
		Cycle:          st.Cycle,
		Remaining:      st.RemainingTime(now),
		PriorityLane:   priorityLane,
		PriorityActive: priorityActive,
		Lanes: lo.Map(j.lanes.Stats(), func(s lane.Stats, _ int) LaneView {
			return LaneView{
				ID:       s.ID,
				Waiting:  s.Waiting,
				Passed:   s.Passed,
				Priority: priorityActive && s.ID == priorityLane,
			}
		}),
		Departed: j.dispatcher.Total(),
		Dropped:  j.feed.Dropped(),
	}
}
