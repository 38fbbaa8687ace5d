package clock

import (
	"context"
	"sync"
	"time"
)

// Clock 提供策略侧的统一时间视图: 实盘读墙钟, 回测读虚拟钟。
// Now 返回 Unix 毫秒。
type Clock interface {
	Now() int64
}

// Waiter 承担策略里所有的等待: 实盘真实休眠, 回测推进虚拟钟。
// 返回非 nil 仅当 ctx 被取消。
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// Wall 直接读系统时间并真实休眠。
type Wall struct{}

func (Wall) Now() int64 {
	return time.Now().UnixMilli()
}

func (Wall) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Virtual 是回测用的虚拟钟: 只能前进, 等待即推进。
// 所有方法并发安全。
type Virtual struct {
	mu  sync.Mutex
	now int64
}

// NewVirtual 从给定时刻(Unix 毫秒)起步。
func NewVirtual(start int64) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Advance 前进指定毫秒数, 负值忽略。返回前进后的时刻。
func (v *Virtual) Advance(millis int64) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if millis > 0 {
		v.now += millis
	}
	return v.now
}

// Wait 不休眠, 直接把虚拟钟推进 d。
func (v *Virtual) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.Advance(d.Milliseconds())
	return nil
}
