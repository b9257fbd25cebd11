// Aggregation operators for rxcore
// 聚合操作符：Scan、Reduce、Count、收集、First、Last、ElementAt
package rxcore

import (
	"fmt"
	"sort"
)

// Scan 累积操作符，发射每一步的累积结果，第一个值原样发射
func (o *observableImpl) Scan(reducer Reducer) Observable {
	return newObservable(func(e *emitter) {
		var (
			acc    interface{}
			hasAcc bool
		)
		subscribeChild(o, e, func(item Item) {
			if !item.IsNext() {
				e.emit(item)
				return
			}

			if hasAcc {
				acc = reducer(acc, item.Value)
			} else {
				acc, hasAcc = item.Value, true
			}
			e.OnNext(acc)
		})
	})
}

// ScanWithSeed 带初始值的累积操作符，先发射seed
func (o *observableImpl) ScanWithSeed(seed interface{}, reducer Reducer) Observable {
	return newObservable(func(e *emitter) {
		acc := seed
		e.OnNext(acc)
		subscribeChild(o, e, func(item Item) {
			if !item.IsNext() {
				e.emit(item)
				return
			}
			acc = reducer(acc, item.Value)
			e.OnNext(acc)
		})
	})
}

// Reduce 归约为单个值，空序列直接完成
func (o *observableImpl) Reduce(reducer Reducer) Observable {
	return newObservable(func(e *emitter) {
		var (
			acc    interface{}
			hasAcc bool
		)
		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindNext:
				if hasAcc {
					acc = reducer(acc, item.Value)
				} else {
					acc, hasAcc = item.Value, true
				}
			case KindComplete:
				if hasAcc {
					e.OnNext(acc)
				}
				e.OnComplete()
			default:
				e.emit(item)
			}
		})
	})
}

// ReduceWithSeed 从seed开始归约，空序列发射seed
func (o *observableImpl) ReduceWithSeed(seed interface{}, reducer Reducer) Observable {
	return newObservable(func(e *emitter) {
		acc := seed
		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindNext:
				acc = reducer(acc, item.Value)
			case KindComplete:
				e.OnNext(acc)
				e.OnComplete()
			default:
				e.emit(item)
			}
		})
	})
}

// Count 计数操作符，完成时发射int类型的数量
func (o *observableImpl) Count() Observable {
	return o.ReduceWithSeed(0, func(acc, _ interface{}) interface{} {
		return acc.(int) + 1
	})
}

// ToSlice 收集所有值，完成时发射[]interface{}
func (o *observableImpl) ToSlice() Observable {
	return newObservable(func(e *emitter) {
		values := make([]interface{}, 0)
		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindNext:
				values = append(values, item.Value)
			case KindComplete:
				e.OnNext(values)
				e.OnComplete()
			default:
				e.emit(item)
			}
		})
	})
}

// First 发射第一个值后完成，空序列以NoSuchElementError终止
func (o *observableImpl) First() Observable {
	return o.ElementAt(0)
}

// Last 发射最后一个值，空序列以NoSuchElementError终止
func (o *observableImpl) Last() Observable {
	return newObservable(func(e *emitter) {
		var (
			last    interface{}
			hasLast bool
		)
		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindNext:
				last, hasLast = item.Value, true
			case KindComplete:
				if !hasLast {
					e.OnError(NewNoSuchElementError("rxcore: Last on empty sequence"))
					return
				}
				e.OnNext(last)
				e.OnComplete()
			default:
				e.emit(item)
			}
		})
	})
}

// ElementAt 发射第index个值后完成并取消上游
func (o *observableImpl) ElementAt(index int) Observable {
	return newObservable(func(e *emitter) {
		if index < 0 {
			e.OnError(NewNoSuchElementError(fmt.Sprintf("rxcore: negative index %d", index)))
			return
		}

		seen := 0
		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindNext:
				if seen == index {
					e.OnNext(item.Value)
					e.OnComplete()
				}
				seen++
			case KindComplete:
				e.OnError(NewNoSuchElementError(fmt.Sprintf("rxcore: no element at index %d", index)))
			default:
				e.emit(item)
			}
		})
	})
}

// ============================================================================
// 收集操作符
// ============================================================================

// Collect 用可变的累积器收集所有值，完成时发射累积器
//
// initial在每次订阅时调用，collector就地修改累积器。
func (o *observableImpl) Collect(initial func() interface{}, collector func(acc, value interface{})) Observable {
	return newObservable(func(e *emitter) {
		acc := initial()
		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindNext:
				collector(acc, item.Value)
			case KindComplete:
				e.OnNext(acc)
				e.OnComplete()
			default:
				e.emit(item)
			}
		})
	})
}

// ToMap 完成时发射map[interface{}]interface{}，相同键的后一个值覆盖前一个
func (o *observableImpl) ToMap(keySelector func(interface{}) interface{}) Observable {
	return o.ToMapWithValueSelector(keySelector, nil)
}

// ToMapWithValueSelector 与ToMap相同，值由valueSelector计算
func (o *observableImpl) ToMapWithValueSelector(keySelector, valueSelector func(interface{}) interface{}) Observable {
	return o.Collect(func() interface{} {
		return make(map[interface{}]interface{})
	}, func(acc, value interface{}) {
		acc.(map[interface{}]interface{})[keySelector(value)] = selectValue(valueSelector, value)
	})
}

// ToMultimap 完成时发射map[interface{}][]interface{}，同一个键的值按到达顺序保留
func (o *observableImpl) ToMultimap(keySelector, valueSelector func(interface{}) interface{}) Observable {
	return o.Collect(func() interface{} {
		return make(map[interface{}][]interface{})
	}, func(acc, value interface{}) {
		m := acc.(map[interface{}][]interface{})
		key := keySelector(value)
		m[key] = append(m[key], selectValue(valueSelector, value))
	})
}

// ToSortedList 收集所有值并按less稳定排序，完成时发射[]interface{}
func (o *observableImpl) ToSortedList(less func(a, b interface{}) bool) Observable {
	return o.ToSlice().Map(func(v interface{}) (interface{}, error) {
		values := v.([]interface{})
		sort.SliceStable(values, func(i, j int) bool {
			return less(values[i], values[j])
		})
		return values, nil
	})
}

func selectValue(selector func(interface{}) interface{}, value interface{}) interface{} {
	if selector == nil {
		return value
	}
	return selector(value)
}
