package clock

import (
	"context"
	"time"
)

// Pause 暂停，重复调用无额外效果
func (c *Clock) Pause() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.paused || c.stopped {
		return
	}
	c.pausedAt = time.Now()
	c.paused = true
	log.Infof("paused at %v", c.elapsedLocked())
}

// Resume 恢复，重复调用无额外效果
func (c *Clock) Resume() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if !c.paused {
		return
	}
	c.pausedTotal += time.Since(c.pausedAt)
	c.paused = false
	c.cond.Broadcast()
	log.Infof("resumed at %v", c.elapsedLocked())
}

// Stop 发出停止信号，所有挂起中的协程在下一个检查点退出，重复调用无额外效果
func (c *Clock) Stop() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stopCh)
	c.cond.Broadcast()
	log.Infof("stop requested at %v", c.elapsedLocked())
}

// Paused 是否处于暂停状态
func (c *Clock) Paused() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.paused
}

// Stopped 是否已发出停止信号
func (c *Clock) Stopped() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.stopped
}

// Done 停止信号发出后关闭的channel
func (c *Clock) Done() <-chan struct{} {
	return c.stopCh
}

// WaitRunning 暂停期间阻塞，直到恢复、停止或ctx取消
// 返回：可以继续运行返回true，已停止或ctx取消返回false
func (c *Clock) WaitRunning(ctx context.Context) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.paused && !c.stopped && ctx.Err() == nil {
		// ctx取消时唤醒等待者
		release := context.AfterFunc(ctx, func() {
			c.mtx.Lock()
			defer c.mtx.Unlock()
			c.cond.Broadcast()
		})
		defer release()
		for c.paused && !c.stopped && ctx.Err() == nil {
			c.cond.Wait()
		}
	}
	return !c.stopped && ctx.Err() == nil
}
