package junction

import (
	"sync"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
)

// Feed 驶离事件分发
// 功能：把放行器产生的驶离事件复制给所有订阅者（显示层、记录器等）
// 说明：发布不阻塞，订阅者缓冲区已满时丢弃该事件并计数
type Feed struct {
	buffer int

	mtx    sync.RWMutex
	subs   map[int]chan entity.Departure
	nextID int
	closed bool

	published atomic.Int64
	dropped   atomic.Int64
}

// NewFeed 创建事件分发
// 参数：buffer-每个订阅者的缓冲长度
func NewFeed(buffer int) *Feed {
	return &Feed{
		buffer: buffer,
		subs:   make(map[int]chan entity.Departure),
	}
}

// Subscribe 订阅驶离事件
// 返回：事件channel与取消订阅函数；取消或Close后channel被关闭
func (f *Feed) Subscribe() (<-chan entity.Departure, func()) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	ch := make(chan entity.Departure, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mtx.Lock()
			defer f.mtx.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
}

// Publish 发布驶离事件
func (f *Feed) Publish(d entity.Departure) {
	f.mtx.RLock()
	defer f.mtx.RUnlock()
	if f.closed {
		return
	}
	f.published.Add(1)
	for _, ch := range f.subs {
		select {
		case ch <- d:
		default:
			f.dropped.Add(1)
		}
	}
}

// Close 关闭所有订阅者的channel，重复调用无额外效果
func (f *Feed) Close() {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// Published 累计发布的事件数
func (f *Feed) Published() int64 {
	return f.published.Load()
}

// Dropped 因订阅者缓冲区已满而丢弃的事件数
func (f *Feed) Dropped() int64 {
	return f.dropped.Load()
}
