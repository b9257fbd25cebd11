// Advanced operators for rxcore
// 高级操作符：分组、可迭代展开、资源管理、指定释放的调度器
package rxcore

import (
	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ============================================================================
// 资源管理
// ============================================================================

// Using 为每个订阅创建资源，并在订阅终止或被释放时用disposeAction释放它
//
// disposeAction对每个资源最多调用一次。
func Using(resourceFactory func() interface{}, observableFactory func(interface{}) Observable, disposeAction func(interface{})) Observable {
	return newObservable(func(e *emitter) {
		resource := resourceFactory()
		if disposeAction != nil {
			e.Add(NewBaseDisposable(func() {
				disposeAction(resource)
			}))
		}

		source := observableFactory(resource)
		if source == nil {
			e.OnError(NewProducerError("rxcore: Using factory returned nil Observable"))
			return
		}
		source.subscribeEmitter(e)
	})
}

// UnsubscribeOn 在scheduler上释放上游订阅
//
// 只影响下游主动释放的情况，上游自然终止时资源在终止的goroutine上释放。
func (o *observableImpl) UnsubscribeOn(scheduler Scheduler) Observable {
	return newObservable(func(e *emitter) {
		upstream := newEmitter(e.emit)
		e.Add(NewBaseDisposable(func() {
			scheduler.Schedule(upstream.Dispose)
		}))
		o.subscribeEmitter(upstream)
	})
}

// ============================================================================
// 分组
// ============================================================================

// GroupedObservable GroupBy发射的分组
type GroupedObservable struct {
	Observable
	// Key 分组的键
	Key interface{}
}

// GroupBy 按keySelector返回的键分组，每个新键发射一个*GroupedObservable
//
// 每个分组只允许一个订阅者，订阅前收到的值会被缓冲。上游终止时按分组创建的
// 顺序终止所有分组，然后终止下游。
func (o *observableImpl) GroupBy(keySelector func(interface{}) interface{}) Observable {
	return newObservable(func(e *emitter) {
		groups := orderedmap.New[interface{}, *UnicastSubject]()

		subscribeChild(o, e, func(item Item) {
			if item.IsTerminal() {
				for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
					pair.Value.AsObserver()(item)
				}
				e.emit(item)
				return
			}

			key := keySelector(item.Value)
			group, ok := groups.Get(key)
			if !ok {
				group = NewUnicastSubject()
				groups.Set(key, group)
				e.OnNext(&GroupedObservable{Observable: group, Key: key})
			}
			group.OnNext(item.Value)
		})
	})
}

// ============================================================================
// 可迭代展开
// ============================================================================

// FlatMapIterable 把每个值映射为切片并依次发射切片中的元素
func (o *observableImpl) FlatMapIterable(mapper func(interface{}) []interface{}) Observable {
	return o.FlatMapIterableWithResult(mapper, nil)
}

// FlatMapIterableWithResult 与FlatMapIterable相同，但发射resultSelector(原值, 元素)
func (o *observableImpl) FlatMapIterableWithResult(mapper func(interface{}) []interface{}, resultSelector func(original, element interface{}) interface{}) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if !item.IsNext() {
				e.emit(item)
				return
			}

			elements := mapper(item.Value)
			if resultSelector != nil {
				elements = lo.Map(elements, func(element interface{}, _ int) interface{} {
					return resultSelector(item.Value, element)
				})
			}
			for _, element := range elements {
				if e.IsDisposed() {
					return
				}
				e.OnNext(element)
			}
		})
	})
}
