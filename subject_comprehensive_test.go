// Subject comprehensive tests for rxcore
// 全面的Subject测试，验证所有Subject类型的正确行为
package rxcore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// PublishSubject 详细测试
// ============================================================================

func TestPublishSubjectComprehensive(t *testing.T) {
	t.Run("只收到订阅之后的值", func(t *testing.T) {
		subject := NewPublishSubject()
		subject.OnNext(1)

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		subject.OnNext(2)
		subject.OnNext(3)
		subject.OnComplete()

		assert.Equal(t, []interface{}{2, 3}, observer.Values())
		assert.True(t, observer.IsCompleted())
	})

	t.Run("按订阅顺序同步投递", func(t *testing.T) {
		subject := NewPublishSubject()
		var order []string
		subject.Subscribe(func(item Item) {
			if item.IsNext() {
				order = append(order, "first")
			}
		})
		subject.Subscribe(func(item Item) {
			if item.IsNext() {
				order = append(order, "second")
			}
		})

		subject.OnNext("x")
		assert.Equal(t, []string{"first", "second"}, order)
		assert.Equal(t, 2, subject.ObserverCount())
	})

	t.Run("取消订阅后不再收到", func(t *testing.T) {
		subject := NewPublishSubject()
		observer := NewTestObserver()
		sub := subject.Subscribe(observer.Observer())

		subject.OnNext(1)
		sub.Dispose()
		subject.OnNext(2)

		assert.Equal(t, []interface{}{1}, observer.Values())
		assert.False(t, subject.HasObservers())
	})

	t.Run("终止后的订阅者立即收到终止通知", func(t *testing.T) {
		subject := NewPublishSubject()
		subject.OnError(assert.AnError)

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		assert.ErrorIs(t, observer.Err(), assert.AnError)
		assert.True(t, subject.IsTerminated())
	})

	t.Run("终止后的通知被丢弃并上报", func(t *testing.T) {
		sink := captureUnhandled(t)
		subject := NewPublishSubject()
		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())

		subject.OnComplete()
		subject.OnNext(1)
		subject.OnError(assert.AnError)

		assert.Empty(t, observer.Values())
		errs := sink.errors()
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], ErrEmissionAfterTerminal)
	})

	t.Run("作为观察者订阅冷Observable", func(t *testing.T) {
		subject := NewPublishSubject()
		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())

		Just(1, 2).Subscribe(subject.AsObserver())
		assert.Equal(t, []interface{}{1, 2}, observer.Values())
		assert.True(t, observer.IsCompleted())
	})

	t.Run("回调中重入OnNext排在当前投递之后", func(t *testing.T) {
		subject := NewPublishSubject()
		var values []interface{}
		subject.Subscribe(func(item Item) {
			if !item.IsNext() {
				return
			}
			values = append(values, item.Value)
			if item.Value == 1 {
				subject.OnNext(2)
				values = append(values, "after-reentry")
			}
		})

		subject.OnNext(1)
		assert.Equal(t, []interface{}{1, "after-reentry", 2}, values)
	})

	t.Run("并发订阅和发射", func(t *testing.T) {
		subject := NewPublishSubject()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				sub := subject.Subscribe(nil)
				sub.Dispose()
			}()
			go func(v int) {
				defer wg.Done()
				subject.OnNext(v)
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 0, subject.ObserverCount())
	})
}

// ============================================================================
// ReplaySubject 详细测试
// ============================================================================

func TestReplaySubjectComprehensive(t *testing.T) {
	t.Run("无界重放", func(t *testing.T) {
		subject := NewReplaySubject()
		subject.OnNext(1)
		subject.OnNext(2)

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		subject.OnNext(3)

		assert.Equal(t, []interface{}{1, 2, 3}, observer.Values())
		assert.Equal(t, []interface{}{1, 2, 3}, subject.Values())
	})

	t.Run("按数量保留最后N个值", func(t *testing.T) {
		subject := NewReplaySubjectWithSize(2)
		for i := 1; i <= 5; i++ {
			subject.OnNext(i)
		}

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		subject.OnNext(6)

		assert.Equal(t, []interface{}{4, 5, 6}, observer.Values())
	})

	t.Run("终止后重放值和终止通知", func(t *testing.T) {
		subject := NewReplaySubjectWithSize(3)
		Just(1, 2, 3, 4).Subscribe(subject.AsObserver())

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())

		assert.Equal(t, []interface{}{2, 3, 4}, observer.Values())
		assert.True(t, observer.IsCompleted())
	})

	t.Run("按时间保留", func(t *testing.T) {
		sched := NewTestScheduler()
		subject := NewReplaySubjectWithTime(2*time.Second, sched)

		subject.OnNext("t0")
		sched.AdvanceTimeBy(time.Second)
		subject.OnNext("t1")
		sched.AdvanceTimeBy(time.Second)
		subject.OnNext("t2")

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		assert.Equal(t, []interface{}{"t0", "t1", "t2"}, observer.Values(), "年龄等于maxAge的值仍然保留")

		sched.AdvanceTimeBy(time.Second)
		late := NewTestObserver()
		subject.Subscribe(late.Observer())
		assert.Equal(t, []interface{}{"t1", "t2"}, late.Values())
		assert.Equal(t, []interface{}{"t1", "t2"}, subject.Values())
	})

	t.Run("同时按数量和时间保留", func(t *testing.T) {
		sched := NewTestScheduler()
		subject := NewReplaySubjectWithSizeAndTime(2, 5*time.Second, sched)

		subject.OnNext(1)
		subject.OnNext(2)
		subject.OnNext(3)
		assert.Equal(t, []interface{}{2, 3}, subject.Values())

		sched.AdvanceTimeBy(6 * time.Second)
		assert.Empty(t, subject.Values())
	})

	t.Run("重放和实时值之间没有遗漏或重复", func(t *testing.T) {
		subject := NewReplaySubject()
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 1000; i++ {
				subject.OnNext(i)
			}
			subject.OnComplete()
		}()

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		<-done
		require.True(t, observer.AwaitTerminal(time.Second))

		values := observer.Values()
		require.Len(t, values, 1000)
		for i, v := range values {
			assert.Equal(t, i, v)
		}
	})
}

// ============================================================================
// BehaviorSubject 详细测试
// ============================================================================

func TestBehaviorSubjectComprehensive(t *testing.T) {
	t.Run("首先收到种子值", func(t *testing.T) {
		subject := NewBehaviorSubject("seed")
		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		subject.OnNext("a")

		assert.Equal(t, []interface{}{"seed", "a"}, observer.Values())
	})

	t.Run("晚到的订阅者收到最新值", func(t *testing.T) {
		subject := NewBehaviorSubject(0)
		subject.OnNext(1)
		subject.OnNext(2)

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())

		assert.Equal(t, []interface{}{2}, observer.Values())
		assert.Equal(t, 2, subject.Value())
	})

	t.Run("终止后只收到终止通知", func(t *testing.T) {
		subject := NewBehaviorSubject(0)
		subject.OnNext(1)
		subject.OnComplete()

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())

		assert.Empty(t, observer.Values())
		assert.True(t, observer.IsCompleted())
	})
}

// ============================================================================
// AsyncSubject 详细测试
// ============================================================================

func TestAsyncSubjectComprehensive(t *testing.T) {
	t.Run("完成时只发送最后一个值", func(t *testing.T) {
		subject := NewAsyncSubject()
		early := NewTestObserver()
		subject.Subscribe(early.Observer())

		subject.OnNext("a")
		subject.OnNext("b")
		subject.OnNext("c")
		assert.Empty(t, early.Values())

		subject.OnComplete()
		late := NewTestObserver()
		subject.Subscribe(late.Observer())

		for _, observer := range []*TestObserver{early, late} {
			assert.Equal(t, []interface{}{"c"}, observer.Values())
			assert.True(t, observer.IsCompleted())
		}
	})

	t.Run("未完成时从不发送值", func(t *testing.T) {
		subject := NewAsyncSubject()
		subject.OnNext(1)

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		assert.Empty(t, observer.Values())
		assert.False(t, observer.IsTerminated())
	})

	t.Run("错误时只发送错误", func(t *testing.T) {
		subject := NewAsyncSubject()
		subject.OnNext(1)
		subject.OnError(assert.AnError)

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		assert.Empty(t, observer.Values())
		assert.ErrorIs(t, observer.Err(), assert.AnError)
	})

	t.Run("空序列只发送完成", func(t *testing.T) {
		subject := NewAsyncSubject()
		subject.OnComplete()

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		assert.Empty(t, observer.Values())
		assert.True(t, observer.IsCompleted())
	})
}

// ============================================================================
// UnicastSubject 详细测试
// ============================================================================

func TestUnicastSubjectComprehensive(t *testing.T) {
	t.Run("缓冲订阅前的值", func(t *testing.T) {
		subject := NewUnicastSubject()
		subject.OnNext(1)
		subject.OnNext(2)

		first := NewTestObserver()
		subject.Subscribe(first.Observer())
		subject.OnNext(3)
		assert.Equal(t, []interface{}{1, 2, 3}, first.Values())

		second := NewTestObserver()
		subject.Subscribe(second.Observer())

		var violation *ProtocolViolationError
		require.ErrorAs(t, second.Err(), &violation)
		assert.ErrorIs(t, second.Err(), ErrMultipleSubscriptions)

		subject.OnNext(4)
		subject.OnComplete()
		assert.Equal(t, []interface{}{1, 2, 3, 4}, first.Values())
		assert.True(t, first.IsCompleted())
	})

	t.Run("订阅前终止", func(t *testing.T) {
		subject := NewUnicastSubject()
		subject.OnNext("x")
		subject.OnComplete()

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		assert.Equal(t, []interface{}{"x"}, observer.Values())
		assert.True(t, observer.IsCompleted())
	})

	t.Run("唯一订阅者离开后仍然拒绝新订阅者", func(t *testing.T) {
		subject := NewUnicastSubject()
		subject.Subscribe(nil).Dispose()

		observer := NewTestObserver()
		subject.Subscribe(observer.Observer())
		assert.ErrorIs(t, observer.Err(), ErrMultipleSubscriptions)
	})
}

// ============================================================================
// Subject 与操作符组合
// ============================================================================

func TestSubjectWithOperators(t *testing.T) {
	subject := NewPublishSubject()
	observer := NewTestObserver()

	subject.
		Filter(func(v interface{}) bool { return v.(int) > 1 }).
		Map(func(v interface{}) (interface{}, error) { return v.(int) * 2, nil }).
		Take(2).
		Subscribe(observer.Observer())

	for i := 0; i < 5; i++ {
		subject.OnNext(i)
	}

	assert.Equal(t, []interface{}{4, 6}, observer.Values())
	assert.True(t, observer.IsCompleted())
	assert.False(t, subject.HasObservers(), "Take完成后应该从Subject上解除")
}
