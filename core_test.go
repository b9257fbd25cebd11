package rxcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Item 测试
// ============================================================================

func TestItemKinds(t *testing.T) {
	next := CreateItem(nil)
	assert.True(t, next.IsNext(), "nil是合法的数据值")
	assert.False(t, next.IsTerminal())

	errItem := CreateErrorItem(assert.AnError)
	assert.True(t, errItem.IsError())
	assert.True(t, errItem.IsTerminal())
	assert.Nil(t, errItem.GetValue())

	complete := CompleteItem()
	assert.True(t, complete.IsComplete())
	assert.True(t, complete.IsTerminal())
	assert.Equal(t, "OnComplete", complete.Kind.String())
}

// ============================================================================
// Disposable 测试
// ============================================================================

func TestBaseDisposableRunsOnce(t *testing.T) {
	calls := 0
	d := NewBaseDisposable(func() { calls++ })

	d.Dispose()
	d.Dispose()

	assert.True(t, d.IsDisposed())
	assert.Equal(t, 1, calls)
	assert.True(t, Disposed().IsDisposed())
}

func TestCompositeDisposable(t *testing.T) {
	t.Run("释放全部资源", func(t *testing.T) {
		a, b := NewBaseDisposable(nil), NewBaseDisposable(nil)
		cd := NewCompositeDisposable(a, b)
		require.Equal(t, 2, cd.Len())

		cd.Dispose()

		assert.True(t, a.IsDisposed())
		assert.True(t, b.IsDisposed())
		assert.Equal(t, 0, cd.Len())
	})

	t.Run("释放后添加立即释放", func(t *testing.T) {
		cd := NewCompositeDisposable()
		cd.Dispose()

		late := NewBaseDisposable(nil)
		cd.Add(late)
		assert.True(t, late.IsDisposed())
	})

	t.Run("移除不释放", func(t *testing.T) {
		d := NewBaseDisposable(nil)
		cd := NewCompositeDisposable(d)
		cd.Remove(d)
		cd.Dispose()
		assert.False(t, d.IsDisposed())
	})

	t.Run("释放动作可以回调组合对象", func(t *testing.T) {
		cd := NewCompositeDisposable()
		cd.Add(NewBaseDisposable(func() { cd.Len() }))
		cd.Dispose()
		assert.True(t, cd.IsDisposed())
	})
}

func TestSerialDisposable(t *testing.T) {
	sd := NewSerialDisposable()
	first, second := NewBaseDisposable(nil), NewBaseDisposable(nil)

	sd.Set(first)
	sd.Set(second)
	assert.True(t, first.IsDisposed())
	assert.False(t, second.IsDisposed())

	sd.Dispose()
	assert.True(t, second.IsDisposed())

	third := NewBaseDisposable(nil)
	sd.Set(third)
	assert.True(t, third.IsDisposed())
}

func TestSafeExecute(t *testing.T) {
	assert.Nil(t, SafeExecute(func() {}))
	assert.Equal(t, "boom", SafeExecute(func() { panic("boom") }))
}

// ============================================================================
// 配置测试
// ============================================================================

func TestConfigOptions(t *testing.T) {
	config := newConfig(nil)
	assert.Equal(t, 16, config.BufferSize)
	assert.Equal(t, DefaultScheduler, config.scheduler())

	sched := NewTestScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config = newConfig([]Option{WithBufferSize(-1), WithScheduler(sched), WithContext(ctx), nil})
	assert.Equal(t, 0, config.BufferSize)
	assert.Equal(t, sched, config.scheduler())
	assert.Equal(t, ctx, config.Context)
}
