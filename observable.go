// Observable implementation for rxcore
// 冷Observable核心实现：每次订阅都独立执行生产者逻辑
package rxcore

import (
	"reflect"
	"time"
)

// ============================================================================
// Observable 核心接口
// ============================================================================

// Observable 可观察序列的核心接口
//
// 接口通过未导出方法封闭，实现只有本包中的冷Observable、Subject和ConnectableObservable。
type Observable interface {
	// Subscribe 订阅观察者，返回的Disposable用于取消订阅
	Subscribe(observer Observer) Disposable

	// SubscribeWithCallbacks 使用回调函数订阅，onError为nil时错误会上报给未处理错误处理器
	SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) Disposable

	// SubscribeOn 指定订阅时使用的调度器
	SubscribeOn(scheduler Scheduler) Observable

	// ObserveOn 指定观察时使用的调度器
	ObserveOn(scheduler Scheduler) Observable

	// UnsubscribeOn 指定释放上游订阅时使用的调度器
	UnsubscribeOn(scheduler Scheduler) Observable

	// 转换与过滤操作符
	Map(transformer Transformer) Observable
	Filter(predicate Predicate) Observable
	Take(count int) Observable
	Skip(count int) Observable
	TakeWhile(predicate Predicate) Observable
	SkipWhile(predicate Predicate) Observable
	Distinct() Observable
	DistinctUntilChanged() Observable
	Cast(targetType reflect.Type) Observable
	FlatMap(transformer func(interface{}) Observable) Observable
	ConcatMap(transformer func(interface{}) Observable) Observable
	FlatMapIterable(mapper func(interface{}) []interface{}) Observable
	FlatMapIterableWithResult(mapper func(interface{}) []interface{}, resultSelector func(original, element interface{}) interface{}) Observable
	GroupBy(keySelector func(interface{}) interface{}) Observable
	Materialize() Observable
	Dematerialize() Observable
	DefaultIfEmpty(defaultValue interface{}) Observable
	SwitchIfEmpty(other Observable) Observable
	IgnoreElements() Observable

	// 组合操作符
	MergeWith(other Observable) Observable
	ConcatWith(other Observable) Observable
	StartWith(values ...interface{}) Observable

	// 聚合操作符
	Scan(reducer Reducer) Observable
	ScanWithSeed(seed interface{}, reducer Reducer) Observable
	Reduce(reducer Reducer) Observable
	ReduceWithSeed(seed interface{}, reducer Reducer) Observable
	Count() Observable
	ToSlice() Observable
	First() Observable
	Last() Observable
	ElementAt(index int) Observable
	Collect(initial func() interface{}, collector func(acc, value interface{})) Observable
	ToMap(keySelector func(interface{}) interface{}) Observable
	ToMapWithValueSelector(keySelector, valueSelector func(interface{}) interface{}) Observable
	ToMultimap(keySelector, valueSelector func(interface{}) interface{}) Observable
	ToSortedList(less func(a, b interface{}) bool) Observable

	// 时间操作符
	Timestamp(options ...Option) Observable
	Timeout(duration time.Duration, options ...Option) Observable

	// 错误处理
	Catch(handler func(error) Observable) Observable
	OnErrorReturn(value interface{}) Observable
	Retry(count int) Observable

	// 副作用操作符
	DoOnNext(action OnNext) Observable
	DoOnError(action OnError) Observable
	DoOnComplete(action OnComplete) Observable
	DoOnSubscribe(action func()) Observable
	DoOnDispose(action func()) Observable
	DoFinally(action func()) Observable

	// 多播支持
	Publish() ConnectableObservable
	Replay() ConnectableObservable
	ReplayWithSize(size int) ConnectableObservable
	Share() Observable
	Cache() Observable
	CacheWithCapacity(capacityHint int) Observable

	// 阻塞操作
	BlockingSubscribe(observer Observer)
	BlockingForEach(action OnNext) error
	BlockingFirst() (interface{}, error)
	BlockingLast() (interface{}, error)
	BlockingSingle() (interface{}, error)
	BlockingToSlice() ([]interface{}, error)
	ToChannel(options ...Option) <-chan Item

	// 推转拉适配器
	BlockingIterable() Iterator
	BlockingNext() Iterator
	BlockingLatest() Iterator
	BlockingMostRecent(initial interface{}) Iterator
	ToFuture() *Future

	subscribeEmitter(e *emitter)
}

// ============================================================================
// Observable 核心实现
// ============================================================================

// observableImpl Observable的核心实现
type observableImpl struct {
	producer func(e *emitter)
}

// NewObservable 用自定义生产者创建冷Observable
//
// 每次订阅都会以新的Emitter调用producer。producer中的panic会作为错误通知发出，
// 不会穿过Subscribe调用传播。
func NewObservable(producer func(emitter Emitter)) Observable {
	return newObservable(func(e *emitter) {
		producer(e)
	})
}

// Create 是NewObservable的别名
func Create(producer func(emitter Emitter)) Observable {
	return NewObservable(producer)
}

func newObservable(producer func(e *emitter)) *observableImpl {
	return &observableImpl{producer: producer}
}

// subscribeEmitter 用给定的发射器运行生产者
func (o *observableImpl) subscribeEmitter(e *emitter) {
	if e.IsDisposed() {
		return
	}
	e.safely(func() {
		o.producer(e)
	})
}

// Subscribe 订阅观察者
func (o *observableImpl) Subscribe(observer Observer) Disposable {
	return subscribe(o, observer)
}

// SubscribeWithCallbacks 使用回调函数订阅
func (o *observableImpl) SubscribeWithCallbacks(onNext OnNext, onError OnError, onComplete OnComplete) Disposable {
	return subscribe(o, callbackObserver(onNext, onError, onComplete))
}

// SubscribeOn 指定订阅时使用的调度器
func (o *observableImpl) SubscribeOn(scheduler Scheduler) Observable {
	return subscribeOn(o, scheduler)
}

// ObserveOn 指定观察时使用的调度器
func (o *observableImpl) ObserveOn(scheduler Scheduler) Observable {
	return observeOn(o, scheduler)
}

// ============================================================================
// 订阅辅助函数
// ============================================================================

// subscribe 为观察者创建独立的订阅
func subscribe(source Observable, observer Observer) Disposable {
	if observer == nil {
		observer = func(Item) {}
	}
	e := newEmitter(observer)
	source.subscribeEmitter(e)
	return e
}

// subscribeChild 订阅上游，并把上游订阅登记为parent的资源
//
// 登记发生在上游生产者运行之前，因此同步上游也能被下游中途取消。
func subscribeChild(source Observable, parent *emitter, observer Observer) *emitter {
	child := newEmitter(observer)
	parent.Add(child)
	source.subscribeEmitter(child)
	return child
}

// callbackObserver 把三个回调组合成Observer
func callbackObserver(onNext OnNext, onError OnError, onComplete OnComplete) Observer {
	return func(item Item) {
		switch item.Kind {
		case KindNext:
			if onNext != nil {
				onNext(item.Value)
			}
		case KindError:
			if onError != nil {
				onError(item.Error)
			} else {
				reportUnhandled(item.Error)
			}
		case KindComplete:
			if onComplete != nil {
				onComplete()
			}
		}
	}
}

func subscribeOn(source Observable, scheduler Scheduler) Observable {
	return newObservable(func(e *emitter) {
		e.Add(scheduler.Schedule(func() {
			source.subscribeEmitter(e)
		}))
	})
}

func observeOn(source Observable, scheduler Scheduler) Observable {
	return newObservable(func(e *emitter) {
		worker := scheduler.CreateWorker()
		e.Add(worker)
		subscribeChild(source, e, func(item Item) {
			worker.Schedule(func() {
				e.safely(func() {
					e.emit(item)
				})
			})
		})
	})
}
