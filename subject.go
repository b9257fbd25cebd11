// Subject implementations for rxcore
// 实现Subject系统：PublishSubject、ReplaySubject、BehaviorSubject、AsyncSubject、UnicastSubject
package rxcore

import (
	"sync"
	"time"

	list "github.com/bahlo/generic-list-go"
	"github.com/eapache/queue"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ============================================================================
// Subject 接口
// ============================================================================

// Subject 既是观察者又是Observable的热中继
//
// OnNext/OnError/OnComplete必须串行调用。终止之后的通知会被丢弃，
// 终止后的错误作为协议违规上报。
type Subject interface {
	Observable

	OnNext(value interface{})
	OnError(err error)
	OnComplete()

	// AsObserver 返回把通知转发给Subject的Observer，可直接传给Subscribe
	AsObserver() Observer
	// HasObservers 是否有观察者
	HasObservers() bool
	// ObserverCount 当前观察者数量
	ObserverCount() int
	// IsTerminated 是否已经收到终止通知
	IsTerminated() bool
}

var (
	_ Subject = (*PublishSubject)(nil)
	_ Subject = (*ReplaySubject)(nil)
	_ Subject = (*BehaviorSubject)(nil)
	_ Subject = (*AsyncSubject)(nil)
	_ Subject = (*UnicastSubject)(nil)
)

// retention 保留策略，所有方法都在Subject的锁内调用
type retention interface {
	// admit 检查是否允许新的观察者
	admit() error
	// next 保留一个值，返回是否向当前观察者投递
	next(value interface{}) bool
	// terminate 返回终止时向当前观察者投递的通知，最后一个是终止通知本身
	terminate(item Item) []Item
	// replay 返回新观察者首先收到的通知，terminal为nil表示尚未终止
	replay(terminal *Item) []Item
}

// subject 所有Subject共享的观察者管理和投递逻辑
type subject struct {
	*observableImpl

	mu        sync.Mutex
	observers *orderedmap.OrderedMap[uint64, *emitter]
	nextID    uint64
	terminal  *Item
	policy    retention
}

func newSubject(policy retention) *subject {
	s := &subject{
		observers: orderedmap.New[uint64, *emitter](),
		policy:    policy,
	}
	s.observableImpl = newObservable(s.attach)
	return s
}

// attach 重放保留的通知并登记观察者
//
// 重放在锁内入队，之后的实时通知只能排在重放之后。
func (s *subject) attach(e *emitter) {
	s.mu.Lock()
	if err := s.policy.admit(); err != nil {
		s.mu.Unlock()
		e.OnError(err)
		return
	}

	claimed := false
	for _, item := range s.policy.replay(s.terminal) {
		if e.offer(item) {
			claimed = true
		}
	}

	var id uint64
	registered := s.terminal == nil
	if registered {
		id = s.nextID
		s.nextID++
		s.observers.Set(id, e)
	}
	s.mu.Unlock()

	if registered {
		e.Add(NewBaseDisposable(func() {
			s.detach(id)
		}))
	}
	if claimed {
		e.drain()
	}
}

func (s *subject) detach(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers.Delete(id)
}

// offerAll 按登记顺序把通知放入每个观察者的队列，返回需要由调用方投递的观察者
func (s *subject) offerAll(items ...Item) []*emitter {
	var claimed []*emitter
	for pair := s.observers.Oldest(); pair != nil; pair = pair.Next() {
		for _, item := range items {
			if pair.Value.offer(item) {
				claimed = append(claimed, pair.Value)
			}
		}
	}
	return claimed
}

func drainAll(claimed []*emitter) {
	for _, e := range claimed {
		e.drain()
	}
}

// OnNext 发送下一个值
func (s *subject) OnNext(value interface{}) {
	item := CreateItem(value)

	s.mu.Lock()
	if s.terminal != nil {
		s.mu.Unlock()
		dropItem(item, true)
		return
	}

	var claimed []*emitter
	if s.policy.next(value) {
		claimed = s.offerAll(item)
	}
	s.mu.Unlock()

	drainAll(claimed)
}

// OnError 发送错误并终止
func (s *subject) OnError(err error) {
	s.terminate(CreateErrorItem(err))
}

// OnComplete 发送完成信号并终止
func (s *subject) OnComplete() {
	s.terminate(CompleteItem())
}

func (s *subject) terminate(item Item) {
	s.mu.Lock()
	if s.terminal != nil {
		s.mu.Unlock()
		dropItem(item, true)
		return
	}

	claimed := s.offerAll(s.policy.terminate(item)...)
	s.terminal = &item
	s.observers = orderedmap.New[uint64, *emitter]()
	s.mu.Unlock()

	drainAll(claimed)
}

// AsObserver 返回转发给Subject的Observer
func (s *subject) AsObserver() Observer {
	return func(item Item) {
		switch item.Kind {
		case KindNext:
			s.OnNext(item.Value)
		case KindError:
			s.OnError(item.Error)
		case KindComplete:
			s.OnComplete()
		}
	}
}

// HasObservers 是否有观察者
func (s *subject) HasObservers() bool {
	return s.ObserverCount() > 0
}

// ObserverCount 当前观察者数量
func (s *subject) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observers.Len()
}

// IsTerminated 是否已经终止
func (s *subject) IsTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal != nil
}

// ============================================================================
// PublishSubject - 发布主题
// ============================================================================

// PublishSubject 发布主题，只向当前订阅者发送新的值
type PublishSubject struct {
	*subject
}

// NewPublishSubject 创建新的发布主题
func NewPublishSubject() *PublishSubject {
	return &PublishSubject{subject: newSubject(publishRetention{})}
}

type publishRetention struct{}

func (publishRetention) admit() error { return nil }

func (publishRetention) next(interface{}) bool { return true }

func (publishRetention) terminate(item Item) []Item { return []Item{item} }

func (publishRetention) replay(terminal *Item) []Item {
	if terminal == nil {
		return nil
	}
	return []Item{*terminal}
}

// ============================================================================
// ReplaySubject - 重放主题
// ============================================================================

// ReplaySubject 重放主题，向新订阅者重放保留的值（终止后还包括终止通知）
type ReplaySubject struct {
	*subject
	buffer *replayBuffer
}

// NewReplaySubject 创建无界重放主题
func NewReplaySubject() *ReplaySubject {
	return newReplaySubject(newReplayBuffer(0, 0, nil))
}

// NewReplaySubjectWithSize 创建只保留最近size个值的重放主题，size不为正时不限数量
func NewReplaySubjectWithSize(size int) *ReplaySubject {
	return newReplaySubject(newReplayBuffer(size, 0, nil))
}

// NewReplaySubjectWithTime 创建只保留maxAge以内的值的重放主题
//
// 值的年龄按scheduler的时钟计算，scheduler为nil时使用DefaultScheduler。
func NewReplaySubjectWithTime(maxAge time.Duration, scheduler Scheduler) *ReplaySubject {
	return newReplaySubject(newReplayBuffer(0, maxAge, scheduler))
}

// NewReplaySubjectWithSizeAndTime 同时按数量和时间限制保留的值
func NewReplaySubjectWithSizeAndTime(size int, maxAge time.Duration, scheduler Scheduler) *ReplaySubject {
	return newReplaySubject(newReplayBuffer(size, maxAge, scheduler))
}

func newReplaySubject(buffer *replayBuffer) *ReplaySubject {
	return &ReplaySubject{
		subject: newSubject(&replayRetention{buffer: buffer}),
		buffer:  buffer,
	}
}

// Values 当前保留的值
func (s *ReplaySubject) Values() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer.trim()
	return s.buffer.values()
}

type replayRetention struct {
	buffer *replayBuffer
}

func (r *replayRetention) admit() error { return nil }

func (r *replayRetention) next(value interface{}) bool {
	r.buffer.add(value)
	return true
}

func (r *replayRetention) terminate(item Item) []Item { return []Item{item} }

func (r *replayRetention) replay(terminal *Item) []Item {
	r.buffer.trim()
	items := make([]Item, 0, r.buffer.len()+1)
	for _, value := range r.buffer.values() {
		items = append(items, CreateItem(value))
	}
	if terminal != nil {
		items = append(items, *terminal)
	}
	return items
}

// timedValue 带时间戳的保留值
type timedValue struct {
	value interface{}
	at    time.Time
}

// replayBuffer 按数量和年龄限制的重放缓冲区
type replayBuffer struct {
	entries   *list.List[timedValue]
	maxSize   int
	maxAge    time.Duration
	scheduler Scheduler
}

func newReplayBuffer(maxSize int, maxAge time.Duration, scheduler Scheduler) *replayBuffer {
	if maxAge > 0 && scheduler == nil {
		scheduler = DefaultScheduler
	}
	return &replayBuffer{
		entries:   list.New[timedValue](),
		maxSize:   maxSize,
		maxAge:    maxAge,
		scheduler: scheduler,
	}
}

func (b *replayBuffer) add(value interface{}) {
	entry := timedValue{value: value}
	if b.maxAge > 0 {
		entry.at = b.scheduler.Now()
	}
	b.entries.PushBack(entry)
	b.trim()
}

// trim 丢弃超出数量的值和年龄大于maxAge的值
func (b *replayBuffer) trim() {
	if b.maxSize > 0 {
		for b.entries.Len() > b.maxSize {
			b.entries.Remove(b.entries.Front())
		}
	}

	if b.maxAge > 0 {
		now := b.scheduler.Now()
		for front := b.entries.Front(); front != nil; front = b.entries.Front() {
			if now.Sub(front.Value.at) <= b.maxAge {
				break
			}
			b.entries.Remove(front)
		}
	}
}

func (b *replayBuffer) len() int {
	return b.entries.Len()
}

func (b *replayBuffer) values() []interface{} {
	values := make([]interface{}, 0, b.entries.Len())
	for element := b.entries.Front(); element != nil; element = element.Next() {
		values = append(values, element.Value.value)
	}
	return values
}

// ============================================================================
// BehaviorSubject - 行为主题
// ============================================================================

// BehaviorSubject 行为主题，新订阅者立即收到种子值或最新值
//
// 终止之后新订阅者只收到终止通知。
type BehaviorSubject struct {
	*subject
	latest *behaviorRetention
}

// NewBehaviorSubject 创建带种子值的行为主题
func NewBehaviorSubject(seed interface{}) *BehaviorSubject {
	latest := &behaviorRetention{value: seed}
	return &BehaviorSubject{
		subject: newSubject(latest),
		latest:  latest,
	}
}

// Value 最新的值，尚未收到任何值时为种子值
func (s *BehaviorSubject) Value() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.value
}

type behaviorRetention struct {
	value interface{}
}

func (r *behaviorRetention) admit() error { return nil }

func (r *behaviorRetention) next(value interface{}) bool {
	r.value = value
	return true
}

func (r *behaviorRetention) terminate(item Item) []Item { return []Item{item} }

func (r *behaviorRetention) replay(terminal *Item) []Item {
	if terminal != nil {
		return []Item{*terminal}
	}
	return []Item{CreateItem(r.value)}
}

// ============================================================================
// AsyncSubject - 异步主题
// ============================================================================

// AsyncSubject 异步主题，只在完成时发送最后一个值
//
// 以错误终止时只发送错误，从不发送值。
type AsyncSubject struct {
	*subject
}

// NewAsyncSubject 创建异步主题
func NewAsyncSubject() *AsyncSubject {
	return &AsyncSubject{subject: newSubject(&asyncRetention{})}
}

type asyncRetention struct {
	last    interface{}
	hasLast bool
}

func (r *asyncRetention) admit() error { return nil }

func (r *asyncRetention) next(value interface{}) bool {
	r.last, r.hasLast = value, true
	return false
}

func (r *asyncRetention) terminate(item Item) []Item {
	if item.IsComplete() && r.hasLast {
		return []Item{CreateItem(r.last), item}
	}
	return []Item{item}
}

func (r *asyncRetention) replay(terminal *Item) []Item {
	if terminal == nil {
		return nil
	}
	return r.terminate(*terminal)
}

// ============================================================================
// UnicastSubject - 单播主题
// ============================================================================

// UnicastSubject 单播主题，订阅前收到的值全部缓冲，整个生命周期只允许一个订阅者
//
// 之后的订阅立即收到一个包装ErrMultipleSubscriptions的ProtocolViolationError，
// 已有订阅者不受影响。
type UnicastSubject struct {
	*subject
}

// NewUnicastSubject 创建单播主题
func NewUnicastSubject() *UnicastSubject {
	return &UnicastSubject{subject: newSubject(&unicastRetention{buffer: queue.New()})}
}

type unicastRetention struct {
	buffer   *queue.Queue
	consumed bool
}

func (r *unicastRetention) admit() error {
	if r.consumed {
		return NewProtocolViolationError(ErrMultipleSubscriptions, "rxcore: UnicastSubject allows only one observer")
	}
	r.consumed = true
	return nil
}

func (r *unicastRetention) next(value interface{}) bool {
	if r.consumed {
		return true
	}
	r.buffer.Add(value)
	return false
}

func (r *unicastRetention) terminate(item Item) []Item { return []Item{item} }

func (r *unicastRetention) replay(terminal *Item) []Item {
	items := make([]Item, 0, r.buffer.Length()+1)
	for r.buffer.Length() > 0 {
		items = append(items, CreateItem(r.buffer.Remove()))
	}
	if terminal != nil {
		items = append(items, *terminal)
	}
	return items
}
