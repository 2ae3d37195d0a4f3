package trafficlight_test

import (
	"context"
	"strings"
	"testing"
	"time"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-junction/clock"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity/lane"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/config"
)

var (
	al2 = entity.Lane(entity.ApproachA, entity.LaneIndexThrough)
	al3 = entity.Lane(entity.ApproachA, entity.LaneIndexLeft)
)

func fill(r *lane.Registry, id entity.LaneID, n int) {
	for i := range n {
		r.Enqueue(id, entity.VehicleID(i))
	}
}

func fillApproaches(r *lane.Registry, index int, depths ...int) {
	for i, a := range []entity.Approach{entity.ApproachB, entity.ApproachC, entity.ApproachD} {
		fill(r, entity.Lane(a, index), depths[i])
	}
}

func TestGreenTimePriority(t *testing.T) {
	r := lane.NewRegistry()
	s := trafficlight.NewScheduler(r, al2)

	fill(r, al2, 15)
	assert.Equal(t, 15*time.Second, s.GreenTime(trafficlight.PhaseACPriority))

	r = lane.NewRegistry()
	s = trafficlight.NewScheduler(r, al2)
	fill(r, al2, 3)
	assert.Equal(t, trafficlight.MinGreen, s.GreenTime(trafficlight.PhaseACPriority))
}

func TestGreenTimeNormal(t *testing.T) {
	cases := []struct {
		depths []int
		want   time.Duration
	}{
		{[]int{4, 6, 8}, 8 * time.Second},
		{[]int{10, 12, 14}, 12 * time.Second},
		{[]int{9, 9, 10}, 9 * time.Second},   // 9.33
		{[]int{9, 10, 10}, 10 * time.Second}, // 9.67
		{[]int{0, 0, 0}, 8 * time.Second},
	}
	for _, c := range cases {
		r := lane.NewRegistry()
		s := trafficlight.NewScheduler(r, al2)
		fillApproaches(r, entity.LaneIndexThrough, c.depths...)
		// A进口不参与AC普通相位计时
		fill(r, al2, 30)
		assert.Equal(t, c.want, s.GreenTime(trafficlight.PhaseACNormal), c.depths)
	}
}

func TestGreenTimeBD(t *testing.T) {
	r := lane.NewRegistry()
	s := trafficlight.NewScheduler(r, al2)
	fillApproaches(r, entity.LaneIndexLeft, 12, 12, 12)
	// 直行车道不参与BD计时
	fillApproaches(r, entity.LaneIndexThrough, 40, 40, 40)

	// 优先车道未拥堵：(12+12+12+0)/4 = 9
	assert.Equal(t, 9*time.Second, s.GreenTime(trafficlight.PhaseBD))

	// 优先车道拥堵：只按B、C、D左转车道计时
	fill(r, al2, 16)
	assert.Equal(t, 12*time.Second, s.GreenTime(trafficlight.PhaseBD))
}

// 优先相位放行后优先车道低于阈值，进入BD时重新判断，优先车道参与BD计时
func TestGreenTimeBDAfterPriority(t *testing.T) {
	r := lane.NewRegistry()
	s := trafficlight.NewScheduler(r, al2)
	fill(r, al2, 15)
	assert.Equal(t, 15*time.Second, s.Enter(trafficlight.PhaseACPriority, 0))
	for range 10 {
		r.Dequeue(al2)
	}
	fillApproaches(r, entity.LaneIndexLeft, 12, 12, 12)

	// round((12+12+12+5)/4) = 10
	assert.Equal(t, 10*time.Second, s.Enter(trafficlight.PhaseBD, 15*time.Second))
	// 优先标志仍为AC相位进入时的值
	assert.True(t, s.PriorityActive())
}

func TestPlan(t *testing.T) {
	r := lane.NewRegistry()
	s := trafficlight.NewScheduler(r, al2)
	fill(r, al2, trafficlight.PriorityThreshold-1)
	assert.Equal(t, []trafficlight.Phase{trafficlight.PhaseACNormal, trafficlight.PhaseBD}, s.Plan())

	r.Enqueue(al2, 100)
	assert.Equal(t, []trafficlight.Phase{trafficlight.PhaseACPriority, trafficlight.PhaseBD}, s.Plan())

	// 其他车道拥堵不会触发优先相位
	r = lane.NewRegistry()
	s = trafficlight.NewScheduler(r, al2)
	fill(r, al3, 50)
	assert.Equal(t, []trafficlight.Phase{trafficlight.PhaseACNormal, trafficlight.PhaseBD}, s.Plan())
}

func TestPriorityLatched(t *testing.T) {
	r := lane.NewRegistry()
	s := trafficlight.NewScheduler(r, al3)
	fill(r, al3, 12)
	assert.False(t, s.PriorityActive())

	green := s.Enter(trafficlight.PhaseACPriority, 0)
	assert.Equal(t, 12*time.Second, green)
	assert.True(t, s.PriorityActive())

	// 相位中途排队长度下降不影响已锁存的标志与绿灯时长
	for range 12 {
		r.Dequeue(al3)
	}
	assert.True(t, s.PriorityActive())
	assert.Equal(t, 12*time.Second, s.State().Green)

	s.Enter(trafficlight.PhaseBD, green)
	assert.True(t, s.PriorityActive())

	s.Enter(trafficlight.PhaseACNormal, green+trafficlight.MinGreen)
	assert.False(t, s.PriorityActive())
	assert.Equal(t, int64(2), s.Cycles())
}

func TestPriorityLog(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	r := lane.NewRegistry()
	s := trafficlight.NewScheduler(r, al2)
	fill(r, al2, 15)
	s.Enter(trafficlight.PhaseACPriority, 0)

	found := false
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "[PRIORITY]") && strings.Contains(e.Message, "AL2 has 15 vehicles, green 15s") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLightStateExclusive(t *testing.T) {
	r := lane.NewRegistry()
	s := trafficlight.NewScheduler(r, al2)

	ac, bd := s.LightState()
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, ac)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, bd)
	assert.True(t, s.Green(entity.ApproachA))
	assert.True(t, s.Green(entity.ApproachC))
	assert.False(t, s.Green(entity.ApproachB))

	s.Enter(trafficlight.PhaseBD, 0)
	ac, bd = s.LightState()
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, ac)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, bd)
	assert.True(t, s.Green(entity.ApproachD))
	assert.False(t, s.Green(entity.ApproachA))
	assert.Equal(t, entity.GroupBD, s.GreenGroup())

	st := s.State()
	assert.Equal(t, entity.GroupBD, st.GreenGroup())
	assert.Equal(t, 3*time.Second, st.RemainingTime(5*time.Second))
	assert.Equal(t, time.Duration(0), st.RemainingTime(time.Minute))
}

// fakeClock 立即返回的逻辑时钟，记录每次挂起时的相位
type fakeClock struct {
	s      *trafficlight.Scheduler
	now    time.Duration
	limit  int
	phases []trafficlight.Phase
	greens []time.Duration
}

func (c *fakeClock) Elapsed() time.Duration { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) bool {
	if d == 0 {
		return len(c.phases) < c.limit
	}
	st := c.s.State()
	c.phases = append(c.phases, st.Phase)
	c.greens = append(c.greens, d)
	c.now += d
	return len(c.phases) < c.limit
}

func TestRun(t *testing.T) {
	r := lane.NewRegistry()
	s := trafficlight.NewScheduler(r, al2)
	fill(r, al2, 15)
	clk := &fakeClock{s: s, limit: 4}
	s.Run(context.Background(), clk)

	assert.Equal(t, []trafficlight.Phase{
		trafficlight.PhaseACPriority, trafficlight.PhaseBD,
		trafficlight.PhaseACPriority, trafficlight.PhaseBD,
	}, clk.phases)
	// BD：优先车道已获优先放行，B、C、D左转车道为空
	assert.Equal(t, []time.Duration{15 * time.Second, 8 * time.Second, 15 * time.Second, 8 * time.Second}, clk.greens)
	assert.Equal(t, int64(2), s.Cycles())
	assert.Equal(t, 38*time.Second, s.State().EnteredAt)
}

// 相位中途暂停：倒计时冻结，恢复后在原定的逻辑时刻结束
func TestRunPauseMidPhase(t *testing.T) {
	r := lane.NewRegistry()
	s := trafficlight.NewScheduler(r, al2)
	fill(r, al2, 15)
	clk := clock.New(config.Control{Speed: 10})
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(context.Background(), clk)
	}()
	defer func() {
		clk.Stop()
		<-done
	}()

	// 等待进入第一个周期的AC优先相位（15s）且剩余时间充足
	require.Eventually(t, func() bool {
		st := s.State()
		return st.Cycle == 1 && st.Phase == trafficlight.PhaseACPriority &&
			st.RemainingTime(clk.Elapsed()) > 5*time.Second
	}, 2*time.Second, time.Millisecond)

	clk.Pause()
	paused := s.State()
	deadline := paused.EnteredAt + paused.Green
	remaining := paused.RemainingTime(clk.Elapsed())
	assert.Greater(t, remaining, 4*time.Second)

	time.Sleep(300 * time.Millisecond)
	st := s.State()
	assert.Equal(t, paused, st)
	assert.Equal(t, deadline, st.EnteredAt+st.Green)
	assert.Equal(t, remaining, st.RemainingTime(clk.Elapsed()))

	clk.Resume()
	require.Eventually(t, func() bool {
		return s.State().Phase == trafficlight.PhaseBD
	}, 5*time.Second, time.Millisecond)

	// BD在原定截止时刻之后一个轮询粒度内开始，暂停时长没有被计入
	next := s.State()
	assert.GreaterOrEqual(t, next.EnteredAt, deadline)
	assert.Less(t, next.EnteredAt, deadline+time.Second)
}
