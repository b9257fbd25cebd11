// Single-value future for rxcore
// 单值Future：把恰好一个值的序列转换为可等待的结果
package rxcore

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Future 只能完成一次的单值结果
//
// 序列发射一个值并完成时以该值完成；以错误终止、空序列完成、发射第二个值、
// 等待超时或被取消时以错误完成。需要第一个或第N个值时先组合First或ElementAt。
type Future struct {
	mu      sync.Mutex
	done    chan struct{}
	value   interface{}
	err     error
	settled bool
	sub     Disposable
}

// ToFuture 订阅并返回Future
func (o *observableImpl) ToFuture() *Future {
	f := &Future{done: make(chan struct{})}

	var (
		value    interface{}
		hasValue bool
		e        *emitter
	)
	e = newEmitter(func(item Item) {
		switch item.Kind {
		case KindNext:
			if hasValue {
				f.settle(nil, ErrSequenceNotSingle)
				e.Dispose()
				return
			}
			value, hasValue = item.Value, true
		case KindError:
			f.settle(nil, item.Error)
		case KindComplete:
			if !hasValue {
				f.settle(nil, NewNoSuchElementError("rxcore: sequence completed without a value"))
				return
			}
			f.settle(value, nil)
		}
	})
	f.sub = e

	o.subscribeEmitter(e)
	return f
}

// settle 完成Future，已经完成时返回false
func (f *Future) settle(value interface{}, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.settled {
		return false
	}
	f.settled = true
	f.value, f.err = value, err
	close(f.done)
	return true
}

func (f *Future) result() (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Get 等待结果
//
// ctx在结果到达之前结束时Future以错误完成并释放订阅：超过截止时间为TimeoutError，
// 否则为ctx.Err()。
func (f *Future) Get(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.result()
	case <-ctx.Done():
	}

	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		err = NewTimeoutError("rxcore: future deadline exceeded")
	}
	if f.settle(nil, err) {
		f.sub.Dispose()
	}
	return f.result()
}

// GetWithTimeout 最多等待timeout
func (f *Future) GetWithTimeout(timeout time.Duration) (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return f.Get(ctx)
}

// Cancel 以context.Canceled完成Future并释放订阅
func (f *Future) Cancel() {
	if f.settle(nil, context.Canceled) {
		f.sub.Dispose()
	}
}

// IsDone 是否已经完成
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
