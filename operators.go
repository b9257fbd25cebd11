// Transformation and filtering operators for rxcore
// 转换与过滤操作符
package rxcore

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// ============================================================================
// 转换操作符
// ============================================================================

// Map 转换操作符，transformer返回错误时以该错误终止
func (o *observableImpl) Map(transformer Transformer) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if !item.IsNext() {
				e.emit(item)
				return
			}

			result, err := transformer(item.Value)
			if err != nil {
				e.OnError(err)
				return
			}
			e.OnNext(result)
		})
	})
}

// FlatMap 把每个值映射为Observable并合并它们的输出，内部序列按到达顺序交错
func (o *observableImpl) FlatMap(transformer func(interface{}) Observable) Observable {
	return newObservable(func(e *emitter) {
		var active int32 = 1
		finish := func() {
			if atomic.AddInt32(&active, -1) == 0 {
				e.OnComplete()
			}
		}

		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindError:
				e.emit(item)
				return
			case KindComplete:
				finish()
				return
			}

			inner := transformer(item.Value)
			if inner == nil {
				e.OnError(NewProducerError("rxcore: FlatMap returned nil Observable"))
				return
			}

			atomic.AddInt32(&active, 1)
			var innerSub *emitter
			innerSub = newEmitter(func(it Item) {
				if it.IsComplete() {
					e.remove(innerSub)
					finish()
					return
				}
				e.emit(it)
			})
			e.Add(innerSub)
			inner.subscribeEmitter(innerSub)
		})
	})
}

// ConcatMap 把每个值映射为Observable，并按顺序逐个订阅
func (o *observableImpl) ConcatMap(transformer func(interface{}) Observable) Observable {
	return newObservable(func(e *emitter) {
		var (
			mu        sync.Mutex
			pending   = queue.New()
			active    bool
			outerDone bool
			wip       int32
		)

		var drain func()
		drain = func() {
			if atomic.AddInt32(&wip, 1) != 1 {
				return
			}
			for {
				mu.Lock()
				switch {
				case !active && pending.Length() > 0:
					value := pending.Remove()
					active = true
					mu.Unlock()
					subscribeInner(e, transformer(value), func() {
						mu.Lock()
						active = false
						mu.Unlock()
						drain()
					})
				case !active && outerDone:
					mu.Unlock()
					e.OnComplete()
				default:
					mu.Unlock()
				}

				if atomic.AddInt32(&wip, -1) == 0 {
					return
				}
			}
		}

		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindNext:
				mu.Lock()
				pending.Add(item.Value)
				mu.Unlock()
			case KindComplete:
				mu.Lock()
				outerDone = true
				mu.Unlock()
			default:
				e.emit(item)
				return
			}
			drain()
		})
	})
}

// subscribeInner 订阅内部序列，值和错误转发给e，完成时调用onComplete
func subscribeInner(e *emitter, inner Observable, onComplete func()) {
	if inner == nil {
		e.OnError(NewProducerError("rxcore: inner Observable is nil"))
		return
	}

	var innerSub *emitter
	innerSub = newEmitter(func(it Item) {
		if it.IsComplete() {
			e.remove(innerSub)
			onComplete()
			return
		}
		e.emit(it)
	})
	e.Add(innerSub)
	inner.subscribeEmitter(innerSub)
}

// ============================================================================
// 过滤操作符
// ============================================================================

// Filter 过滤操作符
func (o *observableImpl) Filter(predicate Predicate) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if !item.IsNext() || predicate(item.Value) {
				e.emit(item)
			}
		})
	})
}

// Take 取前count个元素后完成并取消上游
func (o *observableImpl) Take(count int) Observable {
	return newObservable(func(e *emitter) {
		if count <= 0 {
			e.OnComplete()
			return
		}

		remaining := count
		subscribeChild(o, e, func(item Item) {
			if !item.IsNext() {
				e.emit(item)
				return
			}
			if remaining <= 0 {
				return
			}

			remaining--
			e.emit(item)
			if remaining == 0 {
				e.OnComplete()
			}
		})
	})
}

// Skip 跳过前count个元素
func (o *observableImpl) Skip(count int) Observable {
	return newObservable(func(e *emitter) {
		skipped := 0
		subscribeChild(o, e, func(item Item) {
			if item.IsNext() && skipped < count {
				skipped++
				return
			}
			e.emit(item)
		})
	})
}

// TakeWhile 在谓词为真时发射，谓词首次为假时完成
func (o *observableImpl) TakeWhile(predicate Predicate) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if item.IsNext() && !predicate(item.Value) {
				e.OnComplete()
				return
			}
			e.emit(item)
		})
	})
}

// SkipWhile 在谓词为真时跳过，此后全部发射
func (o *observableImpl) SkipWhile(predicate Predicate) Observable {
	return newObservable(func(e *emitter) {
		skipping := true
		subscribeChild(o, e, func(item Item) {
			if item.IsNext() && skipping {
				if predicate(item.Value) {
					return
				}
				skipping = false
			}
			e.emit(item)
		})
	})
}

// Distinct 过滤掉已经出现过的值，值必须可以作为map键
func (o *observableImpl) Distinct() Observable {
	return newObservable(func(e *emitter) {
		seen := make(map[interface{}]struct{})
		subscribeChild(o, e, func(item Item) {
			if item.IsNext() {
				if _, ok := seen[item.Value]; ok {
					return
				}
				seen[item.Value] = struct{}{}
			}
			e.emit(item)
		})
	})
}

// DistinctUntilChanged 只过滤连续重复的值
func (o *observableImpl) DistinctUntilChanged() Observable {
	return newObservable(func(e *emitter) {
		var (
			last    interface{}
			hasLast bool
		)
		subscribeChild(o, e, func(item Item) {
			if item.IsNext() {
				if hasLast && reflect.DeepEqual(last, item.Value) {
					return
				}
				last, hasLast = item.Value, true
			}
			e.emit(item)
		})
	})
}
