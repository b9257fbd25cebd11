// Pull-based adapters for rxcore
// 推转拉适配器：把Observable转换为阻塞迭代器
package rxcore

import (
	"iter"
	"sync"

	"github.com/eapache/queue"
)

// Iterator 阻塞迭代器
//
// 典型用法：
//
//	it := source.BlockingIterable()
//	defer it.Close()
//	for it.Next() {
//		use(it.Value())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	// Next 前进到下一个值，序列结束或迭代器关闭时返回false
	Next() bool
	// Value 当前值
	Value() interface{}
	// Err 序列以错误终止时返回该错误
	Err() error
	// Close 释放订阅，可以从任意goroutine调用
	Close()
}

// Seq 把迭代器转换为range-over-func序列，循环结束时关闭迭代器
func Seq(it Iterator) iter.Seq[interface{}] {
	return func(yield func(interface{}) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

// subscribeIterator 订阅source，把通知交给observe
func subscribeIterator(source Observable, observe Observer) Disposable {
	e := newEmitter(observe)
	source.subscribeEmitter(e)
	return e
}

// ============================================================================
// iterate-all
// ============================================================================

// queueIterator 缓冲所有通知的迭代器，从不跳过值
type queueIterator struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buffer   *queue.Queue
	value    interface{}
	err      error
	finished bool
	sub      Disposable
}

// BlockingIterable 返回依次产出每个值的迭代器
//
// 订阅立即开始，生产者不会被阻塞，未消费的值在无界队列中累积。
func (o *observableImpl) BlockingIterable() Iterator {
	it := &queueIterator{buffer: queue.New()}
	it.cond = sync.NewCond(&it.mu)
	it.sub = subscribeIterator(o, it.observe)
	return it
}

func (it *queueIterator) observe(item Item) {
	it.mu.Lock()
	defer it.mu.Unlock()

	it.buffer.Add(item)
	it.cond.Signal()
}

func (it *queueIterator) Next() bool {
	it.mu.Lock()
	defer it.mu.Unlock()

	for it.buffer.Length() == 0 && !it.finished {
		it.cond.Wait()
	}
	if it.finished {
		return false
	}

	item := it.buffer.Remove().(Item)
	switch item.Kind {
	case KindNext:
		it.value = item.Value
		return true
	case KindError:
		it.err = item.Error
	}
	it.finished = true
	it.value = nil
	return false
}

func (it *queueIterator) Value() interface{} {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.value
}

func (it *queueIterator) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.err
}

func (it *queueIterator) Close() {
	it.mu.Lock()
	it.finished = true
	it.buffer = queue.New()
	it.cond.Broadcast()
	it.mu.Unlock()

	it.sub.Dispose()
}

// ============================================================================
// next-only / latest-with-cache
// ============================================================================

// slotIterator 只保留一个待取值的迭代器
//
// 新值覆盖尚未取走的值。latest为false时，终止时仍在槽中的值会先被返回；
// latest为true时，终止之后不再返回任何值。
type slotIterator struct {
	mu       sync.Mutex
	cond     *sync.Cond
	slot     interface{}
	hasSlot  bool
	terminal *Item
	latest   bool
	value    interface{}
	err      error
	finished bool
	sub      Disposable
}

// BlockingNext 返回的迭代器每次产出上次拉取之后最新的值，没有时阻塞等待
//
// 消费者慢于生产者时，两次拉取之间除最新值外的值会被丢弃。
func (o *observableImpl) BlockingNext() Iterator {
	return newSlotIterator(o, false)
}

// BlockingLatest 与BlockingNext相同，但序列终止后即使还有缓存的值也立即结束
func (o *observableImpl) BlockingLatest() Iterator {
	return newSlotIterator(o, true)
}

func newSlotIterator(source Observable, latest bool) *slotIterator {
	it := &slotIterator{latest: latest}
	it.cond = sync.NewCond(&it.mu)
	it.sub = subscribeIterator(source, it.observe)
	return it
}

func (it *slotIterator) observe(item Item) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if item.IsNext() {
		it.slot, it.hasSlot = item.Value, true
	} else {
		it.terminal = &item
	}
	it.cond.Broadcast()
}

func (it *slotIterator) Next() bool {
	it.mu.Lock()
	defer it.mu.Unlock()

	for !it.hasSlot && it.terminal == nil && !it.finished {
		it.cond.Wait()
	}
	if it.finished {
		return false
	}

	if it.hasSlot && (it.terminal == nil || !it.latest) {
		it.value = it.slot
		it.slot, it.hasSlot = nil, false
		return true
	}

	if it.terminal.IsError() {
		it.err = it.terminal.Error
	}
	it.slot, it.hasSlot = nil, false
	it.value = nil
	it.finished = true
	return false
}

func (it *slotIterator) Value() interface{} {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.value
}

func (it *slotIterator) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.err
}

func (it *slotIterator) Close() {
	it.mu.Lock()
	it.finished = true
	it.slot, it.hasSlot = nil, false
	it.cond.Broadcast()
	it.mu.Unlock()

	it.sub.Dispose()
}

// ============================================================================
// most-recent
// ============================================================================

// mostRecentIterator 从不阻塞，总是返回最近的值
type mostRecentIterator struct {
	mu       sync.Mutex
	recent   interface{}
	terminal *Item
	value    interface{}
	err      error
	finished bool
	sub      Disposable
}

// BlockingMostRecent 返回从不阻塞的迭代器
//
// 尚未收到值时返回initial；拉取快于发射时重复返回同一个值，慢于发射时会跳过值。
// 序列终止后迭代结束。
func (o *observableImpl) BlockingMostRecent(initial interface{}) Iterator {
	it := &mostRecentIterator{recent: initial}
	it.sub = subscribeIterator(o, it.observe)
	return it
}

func (it *mostRecentIterator) observe(item Item) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if item.IsNext() {
		it.recent = item.Value
		return
	}
	it.terminal = &item
}

func (it *mostRecentIterator) Next() bool {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.finished {
		return false
	}
	if it.terminal != nil {
		if it.terminal.IsError() {
			it.err = it.terminal.Error
		}
		it.value = nil
		it.finished = true
		return false
	}

	it.value = it.recent
	return true
}

func (it *mostRecentIterator) Value() interface{} {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.value
}

func (it *mostRecentIterator) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.err
}

func (it *mostRecentIterator) Close() {
	it.mu.Lock()
	it.finished = true
	it.mu.Unlock()

	it.sub.Dispose()
}
