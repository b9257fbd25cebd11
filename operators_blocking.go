// Blocking operators for rxcore
// 阻塞操作符，把异步的Observable转换为同步调用
package rxcore

import (
	"context"
	"sync"
)

// ============================================================================
// 阻塞操作符
// ============================================================================

// await 订阅source并阻塞到终止，返回错误通知携带的错误
func await(source Observable, onNext OnNext) error {
	done := make(chan struct{})
	var err error

	subscribe(source, func(item Item) {
		switch item.Kind {
		case KindNext:
			if onNext != nil {
				onNext(item.Value)
			}
		case KindError:
			err = item.Error
			close(done)
		case KindComplete:
			close(done)
		}
	})

	<-done
	return err
}

// BlockingSubscribe 阻塞订阅，直到观察者收到终止通知
func (o *observableImpl) BlockingSubscribe(observer Observer) {
	done := make(chan struct{})
	subscribe(o, func(item Item) {
		if observer != nil {
			observer(item)
		}
		if item.IsTerminal() {
			close(done)
		}
	})
	<-done
}

// BlockingForEach 对每个值执行action，阻塞到终止并返回错误
func (o *observableImpl) BlockingForEach(action OnNext) error {
	return await(o, action)
}

// BlockingFirst 阻塞获取第一个值，空序列返回NoSuchElementError
func (o *observableImpl) BlockingFirst() (interface{}, error) {
	return o.First().ToFuture().Get(context.Background())
}

// BlockingLast 阻塞获取最后一个值，空序列返回NoSuchElementError
func (o *observableImpl) BlockingLast() (interface{}, error) {
	return o.Last().ToFuture().Get(context.Background())
}

// BlockingSingle 阻塞获取唯一的值，多于一个值时返回ErrSequenceNotSingle
func (o *observableImpl) BlockingSingle() (interface{}, error) {
	return o.ToFuture().Get(context.Background())
}

// BlockingToSlice 阻塞收集所有值
func (o *observableImpl) BlockingToSlice() ([]interface{}, error) {
	values := make([]interface{}, 0)
	err := await(o, func(value interface{}) {
		values = append(values, value)
	})
	return values, err
}

// ============================================================================
// Channel 适配
// ============================================================================

// ToChannel 把通知写入channel，终止通知之后关闭channel
//
// 订阅在单独的goroutine上进行。缓冲区由WithBufferSize设置，缓冲区满时生产者
// 被阻塞。WithContext的上下文取消时释放订阅并关闭channel。
func (o *observableImpl) ToChannel(options ...Option) <-chan Item {
	config := newConfig(options)
	ctx := config.Context
	ch := make(chan Item, config.BufferSize)
	finished := make(chan struct{})

	var (
		mu     sync.Mutex
		closed bool
	)
	closeLocked := func() {
		if !closed {
			closed = true
			close(ch)
			close(finished)
		}
	}

	e := newEmitter(func(item Item) {
		mu.Lock()
		defer mu.Unlock()

		if closed {
			return
		}
		select {
		case ch <- item:
			if item.IsTerminal() {
				closeLocked()
			}
		case <-ctx.Done():
			closeLocked()
		}
	})

	go func() {
		select {
		case <-ctx.Done():
			e.Dispose()
			mu.Lock()
			closeLocked()
			mu.Unlock()
		case <-finished:
		}
	}()

	go o.subscribeEmitter(e)
	return ch
}
