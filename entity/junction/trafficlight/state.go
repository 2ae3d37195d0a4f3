package trafficlight

import (
	"fmt"
	"sync/atomic"
	"time"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
)

// Phase 相位
type Phase int

const (
	PhaseACNormal   Phase = iota // AC放行，按B、C、D直行车道平均排队长度计时
	PhaseACPriority              // AC放行，按优先车道排队长度计时
	PhaseBD                      // BD放行
)

func (p Phase) String() string {
	switch p {
	case PhaseACNormal:
		return "AC_NORMAL"
	case PhaseACPriority:
		return "AC_PRIORITY"
	case PhaseBD:
		return "BD"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Group 相位放行的相位组
func (p Phase) Group() entity.Group {
	if p == PhaseBD {
		return entity.GroupBD
	}
	return entity.GroupAC
}

// PhaseState 信号灯状态
// 功能：两个相位组的灯色，以及进入当前相位时确定的相位信息
// 说明：整体作为不可变值发布，读取方总是看到完整的一对灯色
type PhaseState struct {
	AC, BD    mapv2.LightState
	Phase     Phase         // 当前相位
	Green     time.Duration // 本相位绿灯时长（进入相位时确定，中途不变）
	EnteredAt time.Duration // 进入相位的逻辑时间
	Cycle     int64         // 第几个周期（从1开始，0表示尚未开始）
}

func newPhaseState(phase Phase, green, at time.Duration, cycle int64) *PhaseState {
	s := &PhaseState{
		AC:        mapv2.LightState_LIGHT_STATE_RED,
		BD:        mapv2.LightState_LIGHT_STATE_RED,
		Phase:     phase,
		Green:     green,
		EnteredAt: at,
		Cycle:     cycle,
	}
	if phase.Group() == entity.GroupAC {
		s.AC = mapv2.LightState_LIGHT_STATE_GREEN
	} else {
		s.BD = mapv2.LightState_LIGHT_STATE_GREEN
	}
	return s
}

// GreenGroup 当前为绿灯的相位组
func (s *PhaseState) GreenGroup() entity.Group {
	return s.Phase.Group()
}

// RemainingTime 当前相位剩余绿灯时间
func (s *PhaseState) RemainingTime(now time.Duration) time.Duration {
	return max(s.EnteredAt+s.Green-now, 0)
}

// check 校验恰有一个相位组为绿灯，违反即为程序缺陷
func (s *PhaseState) check() {
	acGreen := s.AC == mapv2.LightState_LIGHT_STATE_GREEN
	bdGreen := s.BD == mapv2.LightState_LIGHT_STATE_GREEN
	if acGreen == bdGreen {
		log.Panicf("invalid light state AC=%v BD=%v", s.AC, s.BD)
	}
}

// light 信号灯状态的发布点，只由调度器写入
type light struct {
	state atomic.Pointer[PhaseState]
}

func (l *light) store(s *PhaseState) {
	s.check()
	l.state.Store(s)
}

func (l *light) load() *PhaseState {
	return l.state.Load()
}
