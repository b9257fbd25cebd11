package rxcore

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errorSink 收集上报给SetErrorHandler的错误
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func captureUnhandled(t *testing.T) *errorSink {
	t.Helper()
	sink := &errorSink{}
	SetErrorHandler(func(err error) {
		sink.mu.Lock()
		sink.errs = append(sink.errs, err)
		sink.mu.Unlock()
	})
	t.Cleanup(func() { SetErrorHandler(nil) })
	return sink
}

func (s *errorSink) errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func TestEmitterReentrantEmissionIsQueued(t *testing.T) {
	var captured Emitter
	source := NewObservable(func(em Emitter) {
		captured = em
		em.OnNext(1)
		em.OnComplete()
	})

	var events []interface{}
	source.Subscribe(func(item Item) {
		switch {
		case item.IsNext() && item.Value == 1:
			events = append(events, "enter")
			captured.OnNext(2)
			events = append(events, "exit")
		case item.IsNext():
			events = append(events, item.Value)
		case item.IsComplete():
			events = append(events, "complete")
		}
	})

	assert.Equal(t, []interface{}{"enter", "exit", 2, "complete"}, events)
}

func TestEmitterSerializesConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 200

	var emitterRef Emitter
	source := NewObservable(func(em Emitter) { emitterRef = em })

	var (
		inFlight int32
		overlap  int32
		received int32
	)
	done := make(chan struct{})
	source.Subscribe(func(item Item) {
		if atomic.AddInt32(&inFlight, 1) != 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		if item.IsNext() {
			atomic.AddInt32(&received, 1)
		}
		atomic.AddInt32(&inFlight, -1)
		if item.IsComplete() {
			close(done)
		}
	})

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				emitterRef.OnNext(i)
			}
		}()
	}
	wg.Wait()
	emitterRef.OnComplete()
	<-done

	assert.Equal(t, int32(0), atomic.LoadInt32(&overlap), "观察者回调不应重叠")
	assert.Equal(t, int32(producers*perProducer), atomic.LoadInt32(&received))
}

func TestEmitterTerminalAtMostOnce(t *testing.T) {
	sink := captureUnhandled(t)

	observer := NewTestObserver()
	NewObservable(func(em Emitter) {
		em.OnNext(1)
		em.OnComplete()
		em.OnNext(2)
		em.OnError(errors.New("late"))
	}).Subscribe(observer.Observer())

	assert.Equal(t, []interface{}{1}, observer.Values())
	assert.True(t, observer.IsCompleted())
	assert.NoError(t, observer.Err())

	errs := sink.errors()
	require.Len(t, errs, 1)
	var violation *ProtocolViolationError
	assert.ErrorAs(t, errs[0], &violation)
	assert.ErrorIs(t, errs[0], ErrEmissionAfterTerminal)
}

func TestEmitterProducerPanicBecomesError(t *testing.T) {
	observer := NewTestObserver()
	NewObservable(func(em Emitter) {
		em.OnNext(1)
		panic("boom")
	}).Subscribe(observer.Observer())

	assert.Equal(t, []interface{}{1}, observer.Values())

	var producerErr *ProducerError
	require.ErrorAs(t, observer.Err(), &producerErr)
	assert.Equal(t, "boom", producerErr.Cause)
}

func TestEmitterDisposeReleasesResources(t *testing.T) {
	resource := NewBaseDisposable(nil)
	var captured Emitter
	sub := NewObservable(func(em Emitter) {
		captured = em
		em.Add(resource)
	}).Subscribe(nil)

	assert.False(t, captured.IsDisposed())
	sub.Dispose()

	assert.True(t, captured.IsDisposed())
	assert.True(t, resource.IsDisposed())
}

func TestEmitterTerminalReleasesResources(t *testing.T) {
	resource := NewBaseDisposable(nil)
	NewObservable(func(em Emitter) {
		em.Add(resource)
		em.OnComplete()
	}).Subscribe(nil)

	assert.True(t, resource.IsDisposed())
}

func TestEmitterDisposeStopsQueuedItems(t *testing.T) {
	var captured Emitter
	var sub Disposable
	var values []interface{}

	sub = NewObservable(func(em Emitter) { captured = em }).Subscribe(func(item Item) {
		if item.IsNext() {
			values = append(values, item.Value)
			captured.OnNext(item.Value.(int) + 1)
			sub.Dispose()
		}
	})

	captured.OnNext(1)
	captured.OnNext(10)

	assert.Equal(t, []interface{}{1}, values)
	assert.True(t, sub.IsDisposed())
}

func TestSubscribeWithoutErrorHandlerReportsUnhandled(t *testing.T) {
	sink := captureUnhandled(t)

	Error(assert.AnError).SubscribeWithCallbacks(func(interface{}) {}, nil, nil)

	errs := sink.errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], assert.AnError)
}
