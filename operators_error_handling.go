// Error handling operators for rxcore
// 错误处理操作符
package rxcore

// Catch 上游出错时切换到handler返回的Observable
func (o *observableImpl) Catch(handler func(error) Observable) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if !item.IsError() {
				e.emit(item)
				return
			}

			fallback := handler(item.Error)
			if fallback == nil {
				e.emit(item)
				return
			}
			subscribeChild(fallback, e, e.emit)
		})
	})
}

// OnErrorReturn 上游出错时发射value然后完成
func (o *observableImpl) OnErrorReturn(value interface{}) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if !item.IsError() {
				e.emit(item)
				return
			}
			e.OnNext(value)
			e.OnComplete()
		})
	})
}

// Retry 上游出错时重新订阅，最多count次，count为负数时无限重试
func (o *observableImpl) Retry(count int) Observable {
	return newObservable(func(e *emitter) {
		remaining := count

		var resubscribe func()
		resubscribe = func() {
			var attempt *emitter
			attempt = newEmitter(func(item Item) {
				if item.IsError() && remaining != 0 && !e.IsDisposed() {
					if remaining > 0 {
						remaining--
					}
					log().WithError(item.Error).WithField("remaining", remaining).Debug("rxcore: retrying source")
					e.remove(attempt)
					resubscribe()
					return
				}
				e.emit(item)
			})
			e.Add(attempt)
			o.subscribeEmitter(attempt)
		}
		resubscribe()
	})
}
