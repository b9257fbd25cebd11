// Virtual-time scheduler for tests
// 虚拟时间调度器：时间只在调用AdvanceTimeTo/AdvanceTimeBy时前进
package rxcore

import (
	"sync"
	"sync/atomic"
	"time"
)

// testEpoch 虚拟时钟的零点
var testEpoch = time.Unix(0, 0)

// TestScheduler 用于测试的调度器，可以手动控制时间
//
// 执行某个任务时，时钟读数就是该任务的到期时间；时钟永远不会倒退。
// 任务在调用AdvanceTimeTo的goroutine上执行。
type TestScheduler struct {
	mu    sync.Mutex
	clock time.Duration
	queue actionQueue
	seq   uint64
}

// NewTestScheduler 创建测试调度器
func NewTestScheduler() *TestScheduler {
	return &TestScheduler{}
}

// Now 虚拟的当前时间
func (s *TestScheduler) Now() time.Time {
	return testEpoch.Add(s.Clock())
}

// Clock 从零点开始经过的虚拟时间
func (s *TestScheduler) Clock() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// CreateWorker 创建共享虚拟时钟的Worker
func (s *TestScheduler) CreateWorker() Worker {
	return &testWorker{scheduler: s}
}

// Schedule 调度在当前虚拟时间执行的任务
func (s *TestScheduler) Schedule(action func()) Disposable {
	return s.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 调度在当前虚拟时间之后delay执行的任务
func (s *TestScheduler) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	scheduled := &scheduledAction{
		due:    int64(s.clock + delay),
		seq:    s.seq,
		action: action,
	}
	s.queue.push(scheduled)
	return scheduled
}

// AdvanceTimeBy 把时间推进d并执行期间到期的任务
func (s *TestScheduler) AdvanceTimeBy(d time.Duration) {
	s.AdvanceTimeTo(s.Clock() + d)
}

// AdvanceTimeTo 把时间推进到target并执行所有到期时间不晚于target的任务
//
// 任务执行中新调度的任务如果在target之前到期，也会在本次调用中执行。
// 任务的panic与真实调度器一样上报给未处理错误处理器。
// target早于当前时间时只执行已经到期的任务。
func (s *TestScheduler) AdvanceTimeTo(target time.Duration) {
	for {
		s.mu.Lock()
		head := s.queue.peek()
		if head == nil || head.due > int64(target) {
			if target > s.clock {
				s.clock = target
			}
			s.mu.Unlock()
			return
		}

		s.queue.pop()
		if due := time.Duration(head.due); due > s.clock {
			s.clock = due
		}
		s.mu.Unlock()

		runAction(head.action)
	}
}

// TriggerActions 执行所有已经到期的任务，不推进时间
func (s *TestScheduler) TriggerActions() {
	s.AdvanceTimeTo(s.Clock())
}

// PendingActions 尚未执行且未取消的任务数量
func (s *TestScheduler) PendingActions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, scheduled := range s.queue {
		if !scheduled.IsDisposed() {
			count++
		}
	}
	return count
}

// testWorker TestScheduler上的Worker，释放后它的任务全部跳过
type testWorker struct {
	scheduler *TestScheduler
	disposed  int32
}

// Now 虚拟的当前时间
func (w *testWorker) Now() time.Time {
	return w.scheduler.Now()
}

// Schedule 调度任务
func (w *testWorker) Schedule(action func()) Disposable {
	return w.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 延迟调度任务
func (w *testWorker) ScheduleWithDelay(action func(), delay time.Duration) Disposable {
	if w.IsDisposed() {
		return Disposed()
	}
	return w.scheduler.ScheduleWithDelay(func() {
		if !w.IsDisposed() {
			action()
		}
	}, delay)
}

// Dispose 释放Worker
func (w *testWorker) Dispose() {
	atomic.StoreInt32(&w.disposed, 1)
}

// IsDisposed 检查是否已释放
func (w *testWorker) IsDisposed() bool {
	return atomic.LoadInt32(&w.disposed) == 1
}
