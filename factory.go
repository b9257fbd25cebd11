// Factory functions for rxcore
// 工厂函数：固定序列、范围、定时、异步句柄和自定义生产者
package rxcore

import (
	"context"
	"time"

	"github.com/samber/lo"
)

// ============================================================================
// 基础工厂函数
// ============================================================================

// Just 从给定的值创建Observable，在订阅的goroutine中同步发射
func Just(values ...interface{}) Observable {
	return FromSlice(values)
}

// From 从类型化切片创建Observable
func From[T any](values ...T) Observable {
	return FromSlice(lo.ToAnySlice(values))
}

// FromSlice 从切片创建Observable
//
// 切片在每次订阅时重新遍历，订阅期间修改切片会被后续订阅看到。
func FromSlice(slice []interface{}) Observable {
	return newObservable(func(e *emitter) {
		for _, value := range slice {
			if e.IsDisposed() {
				return
			}
			e.OnNext(value)
		}
		e.OnComplete()
	})
}

// Empty 创建一个空的Observable，立即完成
func Empty() Observable {
	return newObservable(func(e *emitter) {
		e.OnComplete()
	})
}

// Never 创建一个永不发射任何通知的Observable
func Never() Observable {
	return newObservable(func(e *emitter) {})
}

// Error 创建一个立即发射错误的Observable
func Error(err error) Observable {
	return newObservable(func(e *emitter) {
		e.OnError(err)
	})
}

// Range 创建发射[start, start+count)整数的Observable
func Range(start, count int) Observable {
	return newObservable(func(e *emitter) {
		for i := 0; i < count; i++ {
			if e.IsDisposed() {
				return
			}
			e.OnNext(start + i)
		}
		e.OnComplete()
	})
}

// Defer 在每次订阅时调用工厂函数创建Observable
func Defer(factory func() Observable) Observable {
	return newObservable(func(e *emitter) {
		source := factory()
		if source == nil {
			e.OnError(NewProducerError("rxcore: Defer factory returned nil"))
			return
		}
		source.subscribeEmitter(e)
	})
}

// ============================================================================
// 时间相关
// ============================================================================

// Interval 每隔period发射一个递增的int64，从0开始，首个值在period之后发射
//
// 使用WithScheduler选择调度器，测试中传入TestScheduler即可用虚拟时间驱动。
func Interval(period time.Duration, options ...Option) Observable {
	config := newConfig(options)
	return newObservable(func(e *emitter) {
		worker := config.scheduler().CreateWorker()
		e.Add(worker)

		var tick int64
		e.Add(SchedulePeriodic(worker, func() {
			e.safely(func() {
				e.OnNext(tick)
				tick++
			})
		}, period, period))
	})
}

// Timer 在delay之后发射int64(0)然后完成
func Timer(delay time.Duration, options ...Option) Observable {
	config := newConfig(options)
	return newObservable(func(e *emitter) {
		worker := config.scheduler().CreateWorker()
		e.Add(worker)

		e.Add(worker.ScheduleWithDelay(func() {
			e.safely(func() {
				e.OnNext(int64(0))
				e.OnComplete()
			})
		}, delay))
	})
}

// ============================================================================
// 从外部数据源创建
// ============================================================================

// FromChannel 从Go channel创建Observable，channel关闭时完成
//
// channel是共享的：多个订阅会竞争读取同一个channel。
func FromChannel(ch <-chan interface{}, options ...Option) Observable {
	config := newConfig(options)
	return newObservable(func(e *emitter) {
		ctx, cancel := context.WithCancel(config.Context)
		e.Add(NewBaseDisposable(cancel))

		go func() {
			defer cancel()

			e.safely(func() {
				for {
					select {
					case <-ctx.Done():
						return
					case value, ok := <-ch:
						if !ok {
							e.OnComplete()
							return
						}
						e.OnNext(value)
					}
				}
			})
		}()
	})
}

// FromAsync 在调度器上执行异步函数，成功时发射结果并完成，失败时发射错误
//
// 订阅被释放时传给fn的context会被取消。需要超时可以组合Timeout操作符。
func FromAsync(fn func(ctx context.Context) (interface{}, error), options ...Option) Observable {
	config := newConfig(options)
	return newObservable(func(e *emitter) {
		ctx, cancel := context.WithCancel(config.Context)
		e.Add(NewBaseDisposable(cancel))

		e.Add(config.scheduler().Schedule(func() {
			defer cancel()

			e.safely(func() {
				value, err := fn(ctx)
				if err != nil {
					e.OnError(err)
					return
				}
				e.OnNext(value)
				e.OnComplete()
			})
		}))
	})
}
