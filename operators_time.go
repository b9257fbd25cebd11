// Time-based operators for rxcore
// 时间相关操作符
package rxcore

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// Timestamped 带时间戳的值
type Timestamped struct {
	Value interface{}
	Time  time.Time
}

// Timestamp 把每个值包装为Timestamped，时间取自配置的调度器
func (o *observableImpl) Timestamp(options ...Option) Observable {
	config := newConfig(options)
	return newObservable(func(e *emitter) {
		scheduler := config.scheduler()
		subscribeChild(o, e, func(item Item) {
			if !item.IsNext() {
				e.emit(item)
				return
			}
			e.OnNext(Timestamped{Value: item.Value, Time: scheduler.Now()})
		})
	})
}

// Timeout 订阅后或上一个值之后超过duration没有新通知时，以TimeoutError终止并取消上游
func (o *observableImpl) Timeout(duration time.Duration, options ...Option) Observable {
	config := newConfig(options)
	return newObservable(func(e *emitter) {
		worker := config.scheduler().CreateWorker()
		e.Add(worker)
		timer := NewSerialDisposable()
		e.Add(timer)

		// index为math.MaxInt64表示已经终止或超时
		var index int64
		arm := func(idx int64) {
			timer.Set(worker.ScheduleWithDelay(func() {
				if atomic.CompareAndSwapInt64(&index, idx, math.MaxInt64) {
					e.safely(func() {
						e.OnError(NewTimeoutError(fmt.Sprintf("rxcore: no notification within %v", duration)))
					})
				}
			}, duration))
		}
		arm(0)

		subscribeChild(o, e, func(item Item) {
			for {
				idx := atomic.LoadInt64(&index)
				if idx == math.MaxInt64 {
					return
				}

				next := idx + 1
				if item.IsTerminal() {
					next = math.MaxInt64
				}
				if !atomic.CompareAndSwapInt64(&index, idx, next) {
					continue
				}

				e.emit(item)
				if item.IsNext() {
					arm(next)
				}
				return
			}
		})
	})
}
