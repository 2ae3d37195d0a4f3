package container

// Queue 先进先出队列（环形缓冲区实现）
// 功能：提供O(1)的尾部入队与头部出队，容量不足时自动翻倍
// 说明：非线程安全，由调用方加锁
type Queue[T any] struct {
	buf  []T // 环形缓冲区
	head int // 队头下标
	size int // 元素个数
}

// NewQueue 创建队列
// 参数：capacity-初始容量（小于1时取1）
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

// Len 获取队列长度
func (q *Queue[T]) Len() int {
	return q.size
}

// PushBack 尾部入队
func (q *Queue[T]) PushBack(v T) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.size)%len(q.buf)] = v
	q.size++
}

// PopFront 头部出队
// 返回：队头元素，队列为空时ok=false
func (q *Queue[T]) PopFront() (v T, ok bool) {
	if q.size == 0 {
		return v, false
	}
	var zero T
	v = q.buf[q.head]
	q.buf[q.head] = zero // 避免内存泄漏
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v, true
}

// Values 按出队顺序返回所有元素的副本
func (q *Queue[T]) Values() []T {
	values := make([]T, q.size)
	for i := range values {
		values[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return values
}

// grow 容量翻倍并把元素搬到新缓冲区头部
func (q *Queue[T]) grow() {
	buf := make([]T, 2*len(q.buf))
	copy(buf, q.Values())
	q.buf = buf
	q.head = 0
}
