// Side effect operators for rxcore
// 副作用操作符：在不改变序列的情况下观察通知和生命周期
package rxcore

// DoOnNext 每个值转发前执行action
func (o *observableImpl) DoOnNext(action OnNext) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if item.IsNext() {
				action(item.Value)
			}
			e.emit(item)
		})
	})
}

// DoOnError 错误转发前执行action
func (o *observableImpl) DoOnError(action OnError) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if item.IsError() {
				action(item.Error)
			}
			e.emit(item)
		})
	})
}

// DoOnComplete 完成转发前执行action
func (o *observableImpl) DoOnComplete(action OnComplete) Observable {
	return newObservable(func(e *emitter) {
		subscribeChild(o, e, func(item Item) {
			if item.IsComplete() {
				action()
			}
			e.emit(item)
		})
	})
}

// DoOnSubscribe 订阅上游之前执行action
func (o *observableImpl) DoOnSubscribe(action func()) Observable {
	return newObservable(func(e *emitter) {
		action()
		o.subscribeEmitter(e)
	})
}

// DoOnDispose 订阅在终止之前被释放时执行action
func (o *observableImpl) DoOnDispose(action func()) Observable {
	return newObservable(func(e *emitter) {
		e.Add(NewBaseDisposable(func() {
			if !e.isTerminated() {
				action()
			}
		}))
		o.subscribeEmitter(e)
	})
}

// DoFinally 终止通知投递之后或订阅被释放时执行action，只执行一次
func (o *observableImpl) DoFinally(action func()) Observable {
	return newObservable(func(e *emitter) {
		e.Add(NewBaseDisposable(action))
		o.subscribeEmitter(e)
	})
}
