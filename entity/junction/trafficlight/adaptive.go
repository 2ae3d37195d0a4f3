// 提供根据排队长度自适应计时的两相位信号灯调度
// 每个周期开始时重新生成相位计划：优先车道拥堵时先放行AC优先相位，否则放行AC普通相位，随后放行BD相位
package trafficlight

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/container"
)

const (
	MinGreen          = 8 * time.Second // 最短绿灯时间，所有相位相同
	TimePerVehicle    = time.Second     // 每辆排队车辆对应的绿灯时间
	PriorityThreshold = 10              // 优先车道排队长度达到该值时触发优先相位
)

// 相位计划中的优先级（越小越靠前）
const (
	planPriorityUrgent = 0
	planPriorityNormal = 1
)

// depthReader 调度器只读取排队长度，不出队
type depthReader interface {
	Depth(id entity.LaneID) int
	MeanDepth(ids []entity.LaneID) float64
}

// Scheduler 自适应信号灯调度器
// 功能：循环切换AC、BD两个相位组，每个相位的绿灯时长在进入时由排队长度计算
type Scheduler struct {
	lanes        depthReader
	priorityLane entity.LaneID   // 优先车道
	normalLanes  []entity.LaneID // AC普通相位计时参考的车道：B、C、D的直行车道
	bdLanes      []entity.LaneID // BD相位计时参考的车道：B、C、D的左转车道

	light    light
	priority atomic.Bool  // 最近一次进入AC相位时的优先标志
	cycles   atomic.Int64 // 已开始的周期数
}

// NewScheduler 创建调度器
// 参数：lanes-车道注册表，priorityLane-优先车道
// 说明：初始状态为AC绿灯、BD红灯，与第一个周期的第一个相位一致
func NewScheduler(lanes depthReader, priorityLane entity.LaneID) *Scheduler {
	s := &Scheduler{
		lanes:        lanes,
		priorityLane: priorityLane,
	}
	for _, a := range []entity.Approach{entity.ApproachB, entity.ApproachC, entity.ApproachD} {
		s.normalLanes = append(s.normalLanes, entity.Lane(a, entity.LaneIndexThrough))
		s.bdLanes = append(s.bdLanes, entity.Lane(a, entity.LaneIndexLeft))
	}
	s.light.store(newPhaseState(PhaseACNormal, 0, 0, 0))
	return s
}

// PriorityLane 优先车道
func (s *Scheduler) PriorityLane() entity.LaneID {
	return s.priorityLane
}

// priorityDemanded 优先车道排队长度是否达到阈值
func priorityDemanded(depth int) bool {
	return depth >= PriorityThreshold
}

// Plan 生成一个周期的相位计划
// 算法说明：
// 1. 优先车道排队长度达到阈值时加入AC优先相位（优先级0），否则加入AC普通相位（优先级1）
// 2. 加入BD相位（优先级1）
// 3. 按优先级弹出，优先级相同时按加入顺序
func (s *Scheduler) Plan() []Phase {
	plan := container.NewPriorityQueue[Phase]()
	if priorityDemanded(s.lanes.Depth(s.priorityLane)) {
		plan.HeapPush(PhaseACPriority, planPriorityUrgent)
	} else {
		plan.HeapPush(PhaseACNormal, planPriorityNormal)
	}
	plan.HeapPush(PhaseBD, planPriorityNormal)
	return plan.Drain()
}

// GreenTime 计算相位的绿灯时长，不修改信号灯状态
// 算法说明：
//   - AC优先相位：max(8s, 优先车道排队长度 × 1s)
//   - AC普通相位：max(8s, round(B、C、D直行车道平均排队长度) × 1s)
//   - BD相位：max(8s, round(平均排队长度) × 1s)，参考车道为B、C、D的左转车道，
//     优先车道此刻未达到阈值时再加上优先车道
func (s *Scheduler) GreenTime(phase Phase) time.Duration {
	return s.greenTime(phase, s.lanes.Depth(s.priorityLane))
}

// greenTime 按给定的优先车道排队长度计算绿灯时长，同一次计算只读取一次优先车道
func (s *Scheduler) greenTime(phase Phase, priorityDepth int) time.Duration {
	switch phase {
	case PhaseACPriority:
		return max(MinGreen, time.Duration(priorityDepth)*TimePerVehicle)
	case PhaseACNormal:
		return greenForMean(s.lanes.MeanDepth(s.normalLanes))
	case PhaseBD:
		n := len(s.bdLanes)
		total := s.lanes.MeanDepth(s.bdLanes) * float64(n)
		if !priorityDemanded(priorityDepth) {
			// 进入BD时优先车道未拥堵则参与BD计时，与锁存的优先标志无关
			total += float64(priorityDepth)
			n++
		}
		return greenForMean(total / float64(n))
	}
	log.Panicf("unknown phase %v", phase)
	return 0
}

func greenForMean(mean float64) time.Duration {
	return max(MinGreen, time.Duration(math.Round(mean))*TimePerVehicle)
}

// Enter 进入相位
// 功能：确定绿灯时长，AC相位时锁存优先标志，然后原子地切换两组灯色
// 参数：phase-相位，now-当前逻辑时间
// 返回：本相位的绿灯时长（相位内不再重新计算）
func (s *Scheduler) Enter(phase Phase, now time.Duration) time.Duration {
	if phase.Group() == entity.GroupAC {
		s.priority.Store(phase == PhaseACPriority)
		s.cycles.Add(1)
	}
	depth := s.lanes.Depth(s.priorityLane)
	green := s.greenTime(phase, depth)
	if phase == PhaseACPriority {
		log.Infof("[PRIORITY] %v has %d vehicles, green %v", s.priorityLane, depth, green)
	} else {
		log.Debugf("enter %v at %v, green %v", phase, now, green)
	}
	s.light.store(newPhaseState(phase, green, now, s.cycles.Load()))
	return green
}

// Run 循环执行相位计划直到收到停止信号
// 参数：ctx-上下文，clk-逻辑时钟
func (s *Scheduler) Run(ctx context.Context, clk entity.IClock) {
	for {
		// 检查点：暂停期间在此阻塞，恢复后再评估优先标志
		if !clk.Sleep(ctx, 0) {
			log.Info("scheduler stopped")
			return
		}
		for _, phase := range s.Plan() {
			green := s.Enter(phase, clk.Elapsed())
			if !clk.Sleep(ctx, green) {
				log.Info("scheduler stopped")
				return
			}
		}
	}
}

// State 当前信号灯状态（不可变快照）
func (s *Scheduler) State() PhaseState {
	return *s.light.load()
}

// LightState 两个相位组的灯色
func (s *Scheduler) LightState() (ac, bd mapv2.LightState) {
	st := s.light.load()
	return st.AC, st.BD
}

// GreenGroup 当前为绿灯的相位组
func (s *Scheduler) GreenGroup() entity.Group {
	return s.light.load().GreenGroup()
}

// Green 某进口方向当前是否为绿灯
func (s *Scheduler) Green(a entity.Approach) bool {
	return s.light.load().GreenGroup() == a.Group()
}

// PriorityActive 最近一次进入AC相位时优先车道是否拥堵，相位中途不重新计算
func (s *Scheduler) PriorityActive() bool {
	return s.priority.Load()
}

// Cycles 已开始的周期数
func (s *Scheduler) Cycles() int64 {
	return s.cycles.Load()
}
