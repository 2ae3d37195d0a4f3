package entity

import (
	"context"
	"time"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// 依赖倒置

// entity/lane/manager.go的依赖倒置
type ILaneRegistry interface {
	Enqueue(id LaneID, v VehicleID)           // 入队（尾部），总是成功
	Dequeue(id LaneID) (v VehicleID, ok bool) // 出队（头部），空队列返回ok=false
	Depth(id LaneID) int                      // 当前排队长度
	Snapshot(id LaneID) []VehicleID           // 排队车辆的只读副本（按到达顺序）
	PassedCount(id LaneID) int                // 累计通过数
}

// entity/junction/trafficlight的依赖倒置，给调度器和显示层提供的信号灯读取接口
type ILightGetter interface {
	LightState() (ac, bd mapv2.LightState) // 两个相位组的灯色
	GreenGroup() Group                     // 当前为绿灯的相位组
	Green(a Approach) bool                 // 某进口方向当前是否为绿灯
	PriorityActive() bool                  // 最近一次AC相位是否为优先相位
}

// clock的依赖倒置
type IClock interface {
	// 当前逻辑时间（暂停期间冻结）
	Elapsed() time.Duration
	// 挂起指定的逻辑时长，暂停期间不计时；收到停止信号时返回false
	Sleep(ctx context.Context, d time.Duration) bool
}

// utils/randengine的依赖倒置
type IRandom interface {
	IntnSafe(n int) int
}
