// Scheduler implementations for rxcore
// 调度器：蹦床调度器、新线程调度器，以及周期任务辅助函数
package rxcore

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
	"github.com/puzpuzpuz/xsync/v3"
)

// ============================================================================
// 调度器接口
// ============================================================================

// Scheduler 调度器接口
//
// 调度器提供时钟并创建Worker。同一个Worker上的任务按到期时间依次执行，
// 到期时间相同的任务按提交顺序执行。
type Scheduler interface {
	// Now 调度器的当前时间
	Now() time.Time
	// CreateWorker 创建一个串行执行任务的Worker，用完后需要释放
	CreateWorker() Worker
	// Schedule 立即调度任务
	Schedule(action func()) Disposable
	// ScheduleWithDelay 延迟调度任务
	ScheduleWithDelay(action func(), delay time.Duration) Disposable
}

// Worker 串行执行任务的执行单元，释放后未执行的任务全部取消
type Worker interface {
	Disposable
	Now() time.Time
	Schedule(action func()) Disposable
	ScheduleWithDelay(action func(), delay time.Duration) Disposable
}

// DefaultScheduler 未指定调度器时使用的调度器
var DefaultScheduler = NewNewThreadScheduler()

// ============================================================================
// 任务队列
// ============================================================================

// scheduledAction 调度的动作，本身即是取消句柄
type scheduledAction struct {
	due      int64
	seq      uint64
	action   func()
	disposed int32
}

// Dispose 取消任务
func (a *scheduledAction) Dispose() {
	atomic.StoreInt32(&a.disposed, 1)
}

// IsDisposed 检查任务是否已取消
func (a *scheduledAction) IsDisposed() bool {
	return atomic.LoadInt32(&a.disposed) == 1
}

// actionQueue 按(due, seq)排序的最小堆
type actionQueue []*scheduledAction

func (q actionQueue) Len() int { return len(q) }

func (q actionQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q actionQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *actionQueue) Push(x interface{}) {
	*q = append(*q, x.(*scheduledAction))
}

func (q *actionQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// push 加入任务
func (q *actionQueue) push(a *scheduledAction) {
	heap.Push(q, a)
}

// pop 取出最早到期的任务
func (q *actionQueue) pop() *scheduledAction {
	return heap.Pop(q).(*scheduledAction)
}

// peek 查看最早到期的任务，跳过已取消的任务
func (q *actionQueue) peek() *scheduledAction {
	for q.Len() > 0 {
		head := (*q)[0]
		if !head.IsDisposed() {
			return head
		}
		heap.Pop(q)
	}
	return nil
}

// runAction 执行任务，panic上报给未处理错误处理器
func runAction(action func()) {
	if r := SafeExecute(action); r != nil {
		reportUnhandled(NewProducerError(r))
	}
}

// ============================================================================
// 蹦床调度器 - Trampoline Scheduler
// ============================================================================

// trampolineScheduler 在调用者的goroutine上执行任务
//
// 嵌套调度的任务在外层任务返回后才执行，不会加深调用栈。
type trampolineScheduler struct {
	workers *xsync.MapOf[int64, *trampolineWorker]
}

// NewTrampolineScheduler 创建蹦床调度器
func NewTrampolineScheduler() Scheduler {
	return &trampolineScheduler{
		workers: xsync.NewMapOf[int64, *trampolineWorker](),
	}
}

// Now 当前时间
func (s *trampolineScheduler) Now() time.Time {
	return time.Now()
}

// CreateWorker 创建蹦床Worker
func (s *trampolineScheduler) CreateWorker() Worker {
	return newTrampolineWorker()
}

// Schedule 在当前goroutine上调度任务
func (s *trampolineScheduler) Schedule(action func()) Disposable {
	return s.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 在当前goroutine上延迟调度任务
//
// 每个goroutine有自己的任务队列：最外层的调用负责执行队列直到为空，
// 嵌套调用只入队。
func (s *trampolineScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	gid := goid.Get()
	worker, loaded := s.workers.LoadOrCompute(gid, newTrampolineWorker)
	scheduled := worker.enqueue(action, delay)
	if !loaded {
		defer s.workers.Delete(gid)
		worker.drain()
	}
	return scheduled
}

// trampolineWorker 蹦床Worker，由第一个调度任务的调用者负责执行队列
type trampolineWorker struct {
	mu       sync.Mutex
	queue    actionQueue
	seq      uint64
	draining bool
	done     chan struct{}
	disposed int32
}

func newTrampolineWorker() *trampolineWorker {
	return &trampolineWorker{done: make(chan struct{})}
}

// Now 当前时间
func (w *trampolineWorker) Now() time.Time {
	return time.Now()
}

// Schedule 调度任务
func (w *trampolineWorker) Schedule(action func()) Disposable {
	return w.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 延迟调度任务，调用者可能被阻塞直到队列执行完毕
func (w *trampolineWorker) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	if w.IsDisposed() {
		return Disposed()
	}
	scheduled := w.enqueue(action, delay)
	w.drain()
	return scheduled
}

func (w *trampolineWorker) enqueue(action func(), delay time.Duration) *scheduledAction {
	if delay < 0 {
		delay = 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	scheduled := &scheduledAction{
		due:    time.Now().Add(delay).UnixNano(),
		seq:    w.seq,
		action: action,
	}
	w.queue.push(scheduled)
	return scheduled
}

// drain 执行队列中的任务，已经在执行时直接返回
func (w *trampolineWorker) drain() {
	w.mu.Lock()
	if w.draining {
		w.mu.Unlock()
		return
	}
	w.draining = true
	w.mu.Unlock()

	for {
		w.mu.Lock()
		head := w.queue.peek()
		if head == nil || w.IsDisposed() {
			w.draining = false
			w.mu.Unlock()
			return
		}

		if wait := time.Until(time.Unix(0, head.due)); wait > 0 {
			w.mu.Unlock()
			w.sleep(wait)
			continue
		}
		w.queue.pop()
		w.mu.Unlock()

		runAction(head.action)
	}
}

// sleep 等待wait或者Worker被释放
func (w *trampolineWorker) sleep(wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-w.done:
	}
}

// Dispose 释放Worker并丢弃未执行的任务，正在等待到期的调用者立即返回
func (w *trampolineWorker) Dispose() {
	if atomic.CompareAndSwapInt32(&w.disposed, 0, 1) {
		close(w.done)
		w.mu.Lock()
		w.queue = nil
		w.mu.Unlock()
	}
}

// IsDisposed 检查是否已释放
func (w *trampolineWorker) IsDisposed() bool {
	return atomic.LoadInt32(&w.disposed) == 1
}

// ============================================================================
// 新线程调度器 - New Thread Scheduler
// ============================================================================

// newThreadScheduler 每个Worker拥有一个独立的goroutine
type newThreadScheduler struct{}

// NewNewThreadScheduler 创建新线程调度器
func NewNewThreadScheduler() Scheduler {
	return &newThreadScheduler{}
}

// Now 当前时间
func (s *newThreadScheduler) Now() time.Time {
	return time.Now()
}

// CreateWorker 创建Worker并启动它的goroutine
func (s *newThreadScheduler) CreateWorker() Worker {
	return newNewThreadWorker()
}

// Schedule 在新的goroutine中执行任务
func (s *newThreadScheduler) Schedule(action func()) Disposable {
	return s.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 在新的goroutine中延迟执行任务，任务结束后goroutine退出
func (s *newThreadScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	worker := newNewThreadWorker()
	worker.ScheduleWithDelay(func() {
		defer worker.Dispose()
		action()
	}, delay)
	return worker
}

// newThreadWorker 在专属goroutine上按到期顺序执行任务
type newThreadWorker struct {
	mu       sync.Mutex
	queue    actionQueue
	seq      uint64
	wake     chan struct{}
	done     chan struct{}
	disposed int32
}

func newNewThreadWorker() *newThreadWorker {
	w := &newThreadWorker{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

// Now 当前时间
func (w *newThreadWorker) Now() time.Time {
	return time.Now()
}

// Schedule 调度任务
func (w *newThreadWorker) Schedule(action func()) Disposable {
	return w.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 延迟调度任务
func (w *newThreadWorker) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	if w.IsDisposed() {
		return Disposed()
	}
	if delay < 0 {
		delay = 0
	}

	w.mu.Lock()
	w.seq++
	scheduled := &scheduledAction{
		due:    time.Now().Add(delay).UnixNano(),
		seq:    w.seq,
		action: action,
	}
	w.queue.push(scheduled)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return scheduled
}

// run Worker的执行循环
func (w *newThreadWorker) run() {
	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.Lock()
		head := w.queue.peek()
		var wait time.Duration
		if head != nil {
			wait = time.Until(time.Unix(0, head.due))
			if wait <= 0 {
				w.queue.pop()
			}
		}
		w.mu.Unlock()

		if head != nil && wait <= 0 {
			runAction(head.action)
			continue
		}

		var timeout <-chan time.Time
		var timer *time.Timer
		if head != nil {
			timer = time.NewTimer(wait)
			timeout = timer.C
		}

		select {
		case <-w.done:
		case <-w.wake:
		case <-timeout:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Dispose 停止goroutine并丢弃未执行的任务
func (w *newThreadWorker) Dispose() {
	if atomic.CompareAndSwapInt32(&w.disposed, 0, 1) {
		close(w.done)
		w.mu.Lock()
		w.queue = nil
		w.mu.Unlock()
	}
}

// IsDisposed 检查是否已释放
func (w *newThreadWorker) IsDisposed() bool {
	return atomic.LoadInt32(&w.disposed) == 1
}

// ============================================================================
// 调度辅助函数
// ============================================================================

// SchedulePeriodic 在worker上周期执行任务
//
// 第n次执行的目标时间是 start + n*period，按worker的时钟计算，
// 单次执行耗时不会累积成漂移。period不为正时只执行一次。
func SchedulePeriodic(worker Worker, action func(), initialDelay, period time.Duration) Disposable {
	serial := NewSerialDisposable()
	start := worker.Now().Add(initialDelay)

	var count int64
	var tick func()
	tick = func() {
		if serial.IsDisposed() {
			return
		}
		action()
		if period <= 0 {
			return
		}

		count++
		next := start.Add(time.Duration(count) * period).Sub(worker.Now())
		serial.Set(worker.ScheduleWithDelay(tick, next))
	}

	serial.setIfEmpty(worker.ScheduleWithDelay(tick, initialDelay))
	return serial
}
