package rxcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingOperators(t *testing.T) {
	t.Run("BlockingFirst", func(t *testing.T) {
		value, err := Just(1, 2, 3).BlockingFirst()
		require.NoError(t, err)
		assert.Equal(t, 1, value)

		_, err = Empty().BlockingFirst()
		var noSuch *NoSuchElementError
		assert.ErrorAs(t, err, &noSuch)
	})

	t.Run("BlockingLast", func(t *testing.T) {
		value, err := Just(1, 2, 3).BlockingLast()
		require.NoError(t, err)
		assert.Equal(t, 3, value)
	})

	t.Run("BlockingFirst在无限序列上", func(t *testing.T) {
		value, err := Interval(time.Millisecond).BlockingFirst()
		require.NoError(t, err)
		assert.Equal(t, int64(0), value)
	})

	t.Run("BlockingSingle", func(t *testing.T) {
		value, err := Just(42).BlockingSingle()
		require.NoError(t, err)
		assert.Equal(t, 42, value)

		_, err = Just(1, 2).BlockingSingle()
		assert.ErrorIs(t, err, ErrSequenceNotSingle)
	})

	t.Run("BlockingForEach", func(t *testing.T) {
		var values []interface{}
		err := Just(1, 2).ConcatWith(Error(assert.AnError)).BlockingForEach(func(v interface{}) {
			values = append(values, v)
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, []interface{}{1, 2}, values)
	})

	t.Run("BlockingSubscribe收到终止通知后返回", func(t *testing.T) {
		observer := NewTestObserver()
		Range(0, 3).SubscribeOn(NewNewThreadScheduler()).BlockingSubscribe(observer.Observer())

		assert.Equal(t, []interface{}{0, 1, 2}, observer.Values())
		assert.True(t, observer.IsCompleted())
	})

	t.Run("BlockingToSlice空序列返回非nil切片", func(t *testing.T) {
		values, err := Empty().BlockingToSlice()
		require.NoError(t, err)
		assert.NotNil(t, values)
		assert.Empty(t, values)
	})
}

func TestToChannel(t *testing.T) {
	t.Run("写入所有通知后关闭", func(t *testing.T) {
		var items []Item
		for item := range Range(0, 100).ToChannel() {
			items = append(items, item)
		}

		require.Len(t, items, 101)
		assert.Equal(t, 0, items[0].Value)
		assert.Equal(t, 99, items[99].Value)
		assert.True(t, items[100].IsComplete())
	})

	t.Run("错误通知", func(t *testing.T) {
		var items []Item
		for item := range Error(assert.AnError).ToChannel(WithBufferSize(0)) {
			items = append(items, item)
		}

		require.Len(t, items, 1)
		assert.ErrorIs(t, items[0].Error, assert.AnError)
	})

	t.Run("context取消时释放订阅并关闭", func(t *testing.T) {
		subject := NewPublishSubject()
		ctx, cancel := context.WithCancel(context.Background())
		ch := subject.ToChannel(WithContext(ctx), WithBufferSize(1))

		require.Eventually(t, subject.HasObservers, time.Second, time.Millisecond)
		subject.OnNext(1)
		assert.Equal(t, 1, (<-ch).Value)

		cancel()
		require.Eventually(t, func() bool { return !subject.HasObservers() }, time.Second, time.Millisecond)

		_, open := <-ch
		assert.False(t, open)
	})
}
