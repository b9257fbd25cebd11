// Recording observer for tests
// 记录通知的观察者，用于测试和诊断
package rxcore

import (
	"sync"
	"time"
)

// TestObserver 记录收到的所有通知
//
// TestObserver可以被并发调用。
type TestObserver struct {
	mu       sync.Mutex
	items    []Item
	terminal chan struct{}
	once     sync.Once
}

// NewTestObserver 创建记录观察者
func NewTestObserver() *TestObserver {
	return &TestObserver{terminal: make(chan struct{})}
}

// Observe 记录一个通知
func (o *TestObserver) Observe(item Item) {
	o.mu.Lock()
	o.items = append(o.items, item)
	o.mu.Unlock()

	if item.IsTerminal() {
		o.once.Do(func() { close(o.terminal) })
	}
}

// Observer 返回可传给Subscribe的Observer
func (o *TestObserver) Observer() Observer {
	return o.Observe
}

// Items 所有通知的快照
func (o *TestObserver) Items() []Item {
	o.mu.Lock()
	defer o.mu.Unlock()

	cp := make([]Item, len(o.items))
	copy(cp, o.items)
	return cp
}

// Values 所有数据值的快照
func (o *TestObserver) Values() []interface{} {
	items := o.Items()
	values := make([]interface{}, 0, len(items))
	for _, item := range items {
		if item.IsNext() {
			values = append(values, item.Value)
		}
	}
	return values
}

// Err 错误通知携带的错误，没有错误时为nil
func (o *TestObserver) Err() error {
	for _, item := range o.Items() {
		if item.IsError() {
			return item.Error
		}
	}
	return nil
}

// IsCompleted 是否收到了完成信号
func (o *TestObserver) IsCompleted() bool {
	for _, item := range o.Items() {
		if item.IsComplete() {
			return true
		}
	}
	return false
}

// IsTerminated 是否收到了终止通知
func (o *TestObserver) IsTerminated() bool {
	select {
	case <-o.terminal:
		return true
	default:
		return false
	}
}

// AwaitTerminal 最多等待timeout直到收到终止通知，返回是否收到
func (o *TestObserver) AwaitTerminal(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-o.terminal:
		return true
	case <-timer.C:
		return false
	}
}

// AwaitCount 最多等待timeout直到收到至少n个数据值，返回是否达到
func (o *TestObserver) AwaitCount(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if len(o.Values()) >= n {
			return true
		}
		if time.Now().After(deadline) || o.IsTerminated() {
			return len(o.Values()) >= n
		}
		time.Sleep(time.Millisecond)
	}
}
