// Serialized per-subscription emitter
// 每个订阅一个发射器：串行投递、最多一次终止、释放后不再投递
package rxcore

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// Emitter 生产者向单个订阅发射通知的接口
//
// 所有方法都可以从任意goroutine调用；通知会被串行化后投递给观察者，
// 在观察者回调中再次发射的通知会排队，待当前回调返回后再投递。
type Emitter interface {
	// OnNext 发射下一个值
	OnNext(value interface{})
	// OnError 发射错误并终止
	OnError(err error)
	// OnComplete 发射完成信号并终止
	OnComplete()
	// IsDisposed 订阅是否已终止或被释放，生产者应据此停止工作
	IsDisposed() bool
	// Add 登记一个在订阅结束时释放的资源
	Add(resource Disposable)
}

// emitter Emitter和订阅Disposable的唯一实现
type emitter struct {
	observer  Observer
	mu        sync.Mutex
	queue     *queue.Queue
	emitting  bool
	done      bool
	disposed  int32
	resources *CompositeDisposable
}

func newEmitter(observer Observer) *emitter {
	return &emitter{
		observer:  observer,
		queue:     queue.New(),
		resources: NewCompositeDisposable(),
	}
}

// OnNext 发射下一个值
func (e *emitter) OnNext(value interface{}) {
	e.emit(CreateItem(value))
}

// OnError 发射错误
func (e *emitter) OnError(err error) {
	e.emit(CreateErrorItem(err))
}

// OnComplete 发射完成信号
func (e *emitter) OnComplete() {
	e.emit(CompleteItem())
}

// Add 登记资源
func (e *emitter) Add(resource Disposable) {
	e.resources.Add(resource)
}

// remove 移除资源但不释放
func (e *emitter) remove(resource Disposable) {
	e.resources.Remove(resource)
}

// Dispose 释放订阅及其全部资源
func (e *emitter) Dispose() {
	if atomic.CompareAndSwapInt32(&e.disposed, 0, 1) {
		e.resources.Dispose()
	}
}

// IsDisposed 检查是否已释放
func (e *emitter) IsDisposed() bool {
	return atomic.LoadInt32(&e.disposed) == 1
}

// isTerminated 是否已经接受了终止通知
func (e *emitter) isTerminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// emit 入队并在没有其他投递者时负责投递
func (e *emitter) emit(item Item) {
	if e.offer(item) {
		e.drain()
	}
}

// offer 只入队不投递，返回true表示调用方获得了投递权，必须随后调用drain
func (e *emitter) offer(item Item) bool {
	e.mu.Lock()
	if e.done || e.IsDisposed() {
		afterTerminal := e.done
		e.mu.Unlock()
		dropItem(item, afterTerminal)
		return false
	}

	if item.IsTerminal() {
		e.done = true
	}
	e.queue.Add(item)

	if e.emitting {
		e.mu.Unlock()
		return false
	}
	e.emitting = true
	e.mu.Unlock()
	return true
}

// drain 按顺序投递队列中的通知，同一时刻只有一个goroutine在投递
func (e *emitter) drain() {
	defer func() {
		if r := recover(); r != nil {
			e.mu.Lock()
			e.emitting = false
			e.mu.Unlock()
			panic(r)
		}
	}()

	for {
		e.mu.Lock()
		if e.queue.Length() == 0 || e.IsDisposed() {
			e.emitting = false
			if e.queue.Length() > 0 {
				e.queue = queue.New()
			}
			e.mu.Unlock()
			return
		}
		item := e.queue.Remove().(Item)
		e.mu.Unlock()

		e.observer(item)

		if item.IsTerminal() {
			e.Dispose()
		}
	}
}

// safely 执行生产者代码，panic转换为错误通知
func (e *emitter) safely(action func()) {
	if r := SafeExecute(action); r != nil {
		e.OnError(NewProducerError(r))
	}
}

// dropItem 处理无法投递的通知
func dropItem(item Item, afterTerminal bool) {
	switch {
	case item.IsError() && afterTerminal:
		reportUnhandled(NewProtocolViolationError(ErrEmissionAfterTerminal, "rxcore: undeliverable error %q", item.Error))
	case item.IsError():
		reportCancellationRace(item.Error)
	case item.IsNext() && afterTerminal:
		log().WithField("value", item.Value).Debug("rxcore: value dropped after terminal")
	}
}
