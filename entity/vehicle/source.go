// 车辆生成：按固定周期交替向左转车道与直行/右转车道各注入一辆车
package vehicle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
)

// Interval 相邻两批车辆之间的逻辑时间间隔
const Interval = 5 * time.Second

// Batch 车辆批次
type Batch int

const (
	BatchLeft    Batch = iota // 四个进口的左转车道
	BatchThrough              // 四个进口的直行/右转车道
)

func (b Batch) String() string {
	if b == BatchLeft {
		return "left"
	}
	return "through"
}

// Lanes 批次对应的车道，按A、B、C、D顺序
func (b Batch) Lanes() []entity.LaneID {
	index := entity.LaneIndexLeft
	if b == BatchThrough {
		index = entity.LaneIndexThrough
	}
	lanes := make([]entity.LaneID, 0, entity.NumApproaches)
	for _, a := range entity.Approaches {
		lanes = append(lanes, entity.Lane(a, index))
	}
	return lanes
}

// enqueuer 车辆生成器只向车道尾部追加
type enqueuer interface {
	Enqueue(id entity.LaneID, v entity.VehicleID)
}

// Source 车辆生成器
// 功能：交替生成左转批次与直行/右转批次，车辆ID全局单调递增且不复用
type Source struct {
	lanes enqueuer

	mtx  sync.Mutex // 保证同一批次的ID连续
	next Batch

	nextID    atomic.Uint64
	generated atomic.Int64
}

// NewSource 创建车辆生成器，第一批为左转批次
func NewSource(lanes enqueuer) *Source {
	return &Source{lanes: lanes, next: BatchLeft}
}

// newVehicle 分配一个新的车辆ID并入队
func (s *Source) newVehicle(id entity.LaneID) entity.Vehicle {
	v := entity.Vehicle{ID: entity.VehicleID(s.nextID.Add(1) - 1), Origin: id}
	s.lanes.Enqueue(id, v.ID)
	s.generated.Add(1)
	return v
}

// Step 生成一批车辆
// 返回：本批生成的车辆，按A、B、C、D顺序
func (s *Source) Step() []entity.Vehicle {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	batch := s.next
	s.next = 1 - s.next
	lanes := batch.Lanes()
	vehicles := make([]entity.Vehicle, 0, len(lanes))
	for _, id := range lanes {
		vehicles = append(vehicles, s.newVehicle(id))
	}
	log.Debugf("%v batch: %v", batch, vehicles)
	return vehicles
}

// Preload 启动时向指定车道注入车辆，按车道显示顺序分配ID
// 参数：counts-车道到车辆数的映射
func (s *Source) Preload(counts map[entity.LaneID]int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, id := range entity.AllLanes() {
		n := counts[id]
		if n <= 0 {
			continue
		}
		if !id.Outgoing() {
			log.Panicf("cannot preload receiving lane %v", id)
		}
		for range n {
			s.newVehicle(id)
		}
		log.Infof("preload %d vehicles into %v", n, id)
	}
}

// Generated 累计生成的车辆数
func (s *Source) Generated() int64 {
	return s.generated.Load()
}

// Run 每Interval生成一批车辆，直到收到停止信号
func (s *Source) Run(ctx context.Context, clk entity.IClock) {
	for {
		if !clk.Sleep(ctx, 0) {
			break
		}
		s.Step()
		if !clk.Sleep(ctx, Interval) {
			break
		}
	}
	log.Infof("source stopped after %d vehicles", s.Generated())
}
