// Utility operators for rxcore
// 工具操作符：类型断言、通知物化、空序列处理
package rxcore

import "reflect"

// Cast 把每个值断言为targetType，类型不匹配时以CastError终止
func (o *observableImpl) Cast(targetType reflect.Type) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if !item.IsNext() {
				e.emit(item)
				return
			}

			if !assignable(item.Value, targetType) {
				e.OnError(NewCastError(item.Value, targetType))
				return
			}
			e.emit(item)
		})
	})
}

func assignable(value interface{}, targetType reflect.Type) bool {
	if value == nil {
		switch targetType.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return reflect.TypeOf(value).AssignableTo(targetType)
}

// Materialize 将每个通知包装成Item值发射，然后完成
func (o *observableImpl) Materialize() Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			e.OnNext(item)
			if item.IsTerminal() {
				e.OnComplete()
			}
		})
	})
}

// Dematerialize 将发射Item值的Observable还原为普通Observable
//
// 不是Item的值原样传递。
func (o *observableImpl) Dematerialize() Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if notification, ok := item.Value.(Item); ok && item.IsNext() {
				e.emit(notification)
				return
			}
			e.emit(item)
		})
	})
}

// DefaultIfEmpty 如果Observable为空，则发射默认值
func (o *observableImpl) DefaultIfEmpty(defaultValue interface{}) Observable {
	return newObservable(func(e *emitter) {
		hasValue := false
		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindNext:
				hasValue = true
			case KindComplete:
				if !hasValue {
					e.OnNext(defaultValue)
				}
			}
			e.emit(item)
		})
	})
}

// SwitchIfEmpty 如果Observable为空，则切换到另一个Observable
func (o *observableImpl) SwitchIfEmpty(other Observable) Observable {
	return newObservable(func(e *emitter) {
		hasValue := false
		subscribeChild(o, e, func(item Item) {
			switch item.Kind {
			case KindNext:
				hasValue = true
			case KindComplete:
				if !hasValue {
					subscribeChild(other, e, e.emit)
					return
				}
			}
			e.emit(item)
		})
	})
}

// IgnoreElements 忽略所有值，只传递错误和完成信号
func (o *observableImpl) IgnoreElements() Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if item.IsTerminal() {
				e.emit(item)
			}
		})
	})
}
