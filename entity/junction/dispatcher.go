package junction

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/randengine"
)

const (
	ScanInterval = 100 * time.Millisecond  // 扫描周期（逻辑时间）
	Headway      = 1200 * time.Millisecond // 同一进口方向相邻两次驶离的最小间隔
)

// route 进口方向的出口表
type route struct {
	left    entity.LaneID   // 左转车道的固定目的车道
	through []entity.LaneID // 直行/右转车道的候选目的车道：直行、右转
}

// routes 按进口方向索引的出口表
var routes = [entity.NumApproaches]route{
	entity.ApproachA: {
		left:    entity.Lane(entity.ApproachC, entity.LaneIndexReceiving),
		through: []entity.LaneID{entity.Lane(entity.ApproachB, entity.LaneIndexThrough), entity.Lane(entity.ApproachD, entity.LaneIndexThrough)},
	},
	entity.ApproachB: {
		left:    entity.Lane(entity.ApproachD, entity.LaneIndexReceiving),
		through: []entity.LaneID{entity.Lane(entity.ApproachA, entity.LaneIndexThrough), entity.Lane(entity.ApproachC, entity.LaneIndexThrough)},
	},
	entity.ApproachC: {
		left:    entity.Lane(entity.ApproachB, entity.LaneIndexReceiving),
		through: []entity.LaneID{entity.Lane(entity.ApproachD, entity.LaneIndexThrough), entity.Lane(entity.ApproachA, entity.LaneIndexThrough)},
	},
	entity.ApproachD: {
		left:    entity.Lane(entity.ApproachA, entity.LaneIndexReceiving),
		through: []entity.LaneID{entity.Lane(entity.ApproachC, entity.LaneIndexThrough), entity.Lane(entity.ApproachB, entity.LaneIndexThrough)},
	},
}

// Destinations 某条车道可能的目的车道（驶出车道返回nil）
func Destinations(origin entity.LaneID) []entity.LaneID {
	r := routes[origin.Approach()]
	switch origin.Index() {
	case entity.LaneIndexLeft:
		return []entity.LaneID{r.left}
	case entity.LaneIndexThrough:
		return r.through
	}
	return nil
}

// lightReader 放行器只需要知道哪个相位组为绿灯
type lightReader interface {
	GreenGroup() entity.Group
}

// Dispatcher 放行器
// 功能：周期性扫描绿灯进口方向，在满足最小车头时距时放行一辆车
// 说明：同一进口方向左转车道优先于直行/右转车道；上次放行时间只由放行器写入
type Dispatcher struct {
	lanes   entity.ILaneRegistry
	light   lightReader
	random  entity.IRandom
	publish func(entity.Departure)

	last       [entity.NumApproaches]atomic.Int64 // 上次放行的逻辑时间（纳秒）
	dispatched [entity.NumApproaches]atomic.Bool  // 是否放行过
	total      atomic.Int64                       // 累计放行数
}

// NewDispatcher 创建放行器
// 参数：lanes-车道注册表，light-信号灯，random-随机数引擎（决定直行还是右转），publish-驶离事件发布函数
func NewDispatcher(lanes entity.ILaneRegistry, light lightReader, random entity.IRandom, publish func(entity.Departure)) *Dispatcher {
	if publish == nil {
		publish = func(entity.Departure) {}
	}
	return &Dispatcher{
		lanes:   lanes,
		light:   light,
		random:  random,
		publish: publish,
	}
}

// Scan 执行一次扫描
// 功能：对A、B、C、D依次检查灯色与车头时距，满足条件时放行该方向优先级最高的非空车道的队头车辆
// 说明：灯色在扫描开始时读取一次，同一次扫描内的所有进口方向使用同一个相位组
// 参数：now-当前逻辑时间
// 返回：本次扫描产生的驶离事件
func (d *Dispatcher) Scan(now time.Duration) []entity.Departure {
	var departures []entity.Departure
	green := d.light.GreenGroup()
	for _, a := range entity.Approaches {
		if a.Group() != green {
			continue
		}
		if d.dispatched[a].Load() && now-time.Duration(d.last[a].Load()) < Headway {
			continue
		}
		dep, ok := d.dispatch(a, now)
		if !ok {
			continue
		}
		d.last[a].Store(int64(now))
		d.dispatched[a].Store(true)
		d.total.Add(1)
		log.Debugf("%v", dep)
		d.publish(dep)
		departures = append(departures, dep)
	}
	return departures
}

// dispatch 从进口方向出队一辆车：先左转车道，左转车道为空时才检查直行/右转车道
func (d *Dispatcher) dispatch(a entity.Approach, now time.Duration) (entity.Departure, bool) {
	r := routes[a]
	left := entity.Lane(a, entity.LaneIndexLeft)
	if v, ok := d.lanes.Dequeue(left); ok {
		return entity.Departure{Origin: left, Destination: r.left, Vehicle: v, At: now}, true
	}
	through := entity.Lane(a, entity.LaneIndexThrough)
	if v, ok := d.lanes.Dequeue(through); ok {
		dest := randengine.Pick(d.random, r.through)
		return entity.Departure{Origin: through, Destination: dest, Vehicle: v, At: now}, true
	}
	return entity.Departure{}, false
}

// LastDispatch 某进口方向上次放行的逻辑时间，未放行过时ok=false
func (d *Dispatcher) LastDispatch(a entity.Approach) (time.Duration, bool) {
	return time.Duration(d.last[a].Load()), d.dispatched[a].Load()
}

// Total 累计放行数
func (d *Dispatcher) Total() int64 {
	return d.total.Load()
}

// Run 每ScanInterval扫描一次，直到收到停止信号
func (d *Dispatcher) Run(ctx context.Context, clk entity.IClock) {
	for {
		if !clk.Sleep(ctx, 0) {
			break
		}
		d.Scan(clk.Elapsed())
		if !clk.Sleep(ctx, ScanInterval) {
			break
		}
	}
	log.Infof("dispatcher stopped after %d departures", d.Total())
}
