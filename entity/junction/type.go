package junction

import "time"

// 依赖倒置，表达junction对控制信号的接口需求（由clock实现）

// 显示层通过junction转发的控制接口
type IController interface {
	Pause()  // 暂停（幂等）
	Resume() // 恢复（幂等）
	Stop()   // 停止（幂等）

	Paused() bool
	Elapsed() time.Duration // 当前逻辑时间
}
