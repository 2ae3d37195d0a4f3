package lane

import (
	"fmt"
	"sync"

	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
	"github.com/tsinghua-fib-lab/adaptive-junction/utils/container"
)

const (
	initQueueCapacity = 16 // 车道队列初始容量
)

// Lane 车道实体
// 功能：维护一条车道的排队车辆（先进先出）与累计通过数
// 说明：同一车道上的所有操作由互斥锁串行化，不同车道之间互不阻塞
type Lane struct {
	id entity.LaneID

	mtx      sync.Mutex
	vehicles *container.Queue[entity.VehicleID] // 排队车辆，队头最先到达
	enqueued int                                // 累计入队数
	passed   int                                // 累计通过数，只在成功出队时增加
}

// newLane 创建空车道
func newLane(id entity.LaneID) *Lane {
	return &Lane{
		id:       id,
		vehicles: container.NewQueue[entity.VehicleID](initQueueCapacity),
	}
}

func (l *Lane) String() string {
	return fmt.Sprintf("Lane{ID:%v}", l.id)
}

// ID 获取车道ID
func (l *Lane) ID() entity.LaneID {
	return l.id
}

// enqueue 车辆在队尾排队
func (l *Lane) enqueue(v entity.VehicleID) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.vehicles.PushBack(v)
	l.enqueued++
}

// dequeue 队头车辆驶离，同时累加通过数
func (l *Lane) dequeue() (entity.VehicleID, bool) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	v, ok := l.vehicles.PopFront()
	if ok {
		l.passed++
	}
	return v, ok
}

// depth 当前排队长度
func (l *Lane) depth() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.vehicles.Len()
}

// snapshot 排队车辆的副本
func (l *Lane) snapshot() []entity.VehicleID {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.vehicles.Values()
}

// stats 一次性读出车道的完整状态
func (l *Lane) stats() Stats {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return Stats{
		ID:       l.id,
		Waiting:  l.vehicles.Values(),
		Enqueued: l.enqueued,
		Passed:   l.passed,
	}
}

// Stats 车道状态快照
type Stats struct {
	ID       entity.LaneID
	Waiting  []entity.VehicleID // 排队车辆（按到达顺序）
	Enqueued int                // 累计入队数
	Passed   int                // 累计通过数
}

// Depth 排队长度
func (s Stats) Depth() int {
	return len(s.Waiting)
}
