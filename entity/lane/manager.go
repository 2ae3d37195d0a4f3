package lane

import (
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
)

// Registry 车道注册表
// 功能：持有路口全部12条车道，提供入队、出队、查询排队长度与快照等功能
// 说明：车道集合在创建时固定，之后只修改各车道内部的队列
type Registry struct {
	lanes [entity.NumLanes]*Lane
}

// NewRegistry 创建包含全部12条空车道的注册表
func NewRegistry() *Registry {
	r := &Registry{}
	for _, id := range entity.AllLanes() {
		r.lanes[id] = newLane(id)
	}
	return r
}

// Get 根据ID获取车道，ID不在固定取值范围内则panic
func (r *Registry) Get(id entity.LaneID) *Lane {
	if !id.Valid() {
		log.Panicf("no id %d in lane data", uint8(id))
	}
	return r.lanes[id]
}

// Enqueue 车辆在指定车道队尾排队
func (r *Registry) Enqueue(id entity.LaneID, v entity.VehicleID) {
	r.Get(id).enqueue(v)
}

// Dequeue 指定车道队头车辆驶离
// 返回：驶离车辆，车道为空时ok=false（不是错误）
func (r *Registry) Dequeue(id entity.LaneID) (entity.VehicleID, bool) {
	return r.Get(id).dequeue()
}

// Depth 指定车道的排队长度
func (r *Registry) Depth(id entity.LaneID) int {
	return r.Get(id).depth()
}

// Snapshot 指定车道排队车辆的只读副本，不修改状态
func (r *Registry) Snapshot(id entity.LaneID) []entity.VehicleID {
	return r.Get(id).snapshot()
}

// PassedCount 指定车道的累计通过数
func (r *Registry) PassedCount(id entity.LaneID) int {
	return r.Get(id).stats().Passed
}

// MeanDepth 一组车道排队长度的平均值，空集合返回0
func (r *Registry) MeanDepth(ids []entity.LaneID) float64 {
	if len(ids) == 0 {
		return 0
	}
	total := lo.SumBy(ids, func(id entity.LaneID) int { return r.Depth(id) })
	return float64(total) / float64(len(ids))
}

// Stats 全部车道的状态快照（按显示顺序）
// 说明：各车道分别加锁读取，不同车道之间不保证是同一时刻
func (r *Registry) Stats() []Stats {
	return parallel.GoMap(r.lanes[:], func(l *Lane) Stats {
		return l.stats()
	})
}

// Totals 全部车道的累计入队数、累计通过数与当前排队数
func (r *Registry) Totals() (enqueued, passed, waiting int) {
	for _, s := range r.Stats() {
		enqueued += s.Enqueued
		passed += s.Passed
		waiting += s.Depth()
	}
	return
}
