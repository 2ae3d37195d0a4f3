// 随机数引擎，包装了golang.org/x/exp/rand，用于可复现的出口方向选择
package randengine

import (
	"flag"
	"sync"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：基于固定种子生成随机数，相同种子得到相同的序列
// 说明：*Safe方法可在多个协程间共享使用
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于线程安全操作
}

// New 创建随机数引擎
// 参数：seed-随机数种子（会叠加命令行的种子偏移量）
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// IntnSafe 随机生成[0, n)内的整数（线程安全）
func (e *Engine) IntnSafe(n int) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Intn(n)
}

// Pick 从候选项中等概率选取一项（线程安全），候选为空时panic
func Pick[T any](e interface{ IntnSafe(n int) int }, candidates []T) T {
	return candidates[e.IntnSafe(len(candidates))]
}
