// ConnectableObservable implementation for rxcore
// 实现ConnectableObservable：通过内部Subject多播，支持引用计数和自动连接
package rxcore

import (
	"sync"
	"sync/atomic"
)

// ConnectableObservable 可连接的Observable
//
// 订阅只是挂到内部Subject上，Connect之后才订阅上游。
type ConnectableObservable interface {
	Observable

	// Connect 订阅上游，已经连接时返回同一个Disposable
	Connect() Disposable
	// RefCount 第一个订阅者到来时连接，最后一个订阅者离开时断开
	RefCount() Observable
	// AutoConnect 第subscriberCount个订阅者到来时连接，之后永不断开
	AutoConnect(subscriberCount int) Observable
	// IsConnected 是否处于连接状态
	IsConnected() bool
}

// ============================================================================
// ConnectableObservable 实现
// ============================================================================

// connectableObservableImpl ConnectableObservable的核心实现
type connectableObservableImpl struct {
	*observableImpl

	source  Observable
	factory func() Subject

	mu      sync.Mutex
	current *connection
}

// connection 一次连接周期：一个Subject和一个上游订阅
type connection struct {
	owner    *connectableObservableImpl
	subject  Subject
	upstream *emitter

	// connected 由owner.mu保护
	connected  bool
	terminated int32
	disposed   int32
}

// Multicast 通过factory创建的Subject多播source
//
// 每个连接周期都会调用factory创建新的Subject。
func Multicast(source Observable, factory func() Subject) ConnectableObservable {
	co := &connectableObservableImpl{
		source:  source,
		factory: factory,
	}
	co.observableImpl = newObservable(co.attach)
	return co
}

func (co *connectableObservableImpl) newConnection() *connection {
	conn := &connection{
		owner:   co,
		subject: co.factory(),
	}
	relay := conn.subject.AsObserver()
	conn.upstream = newEmitter(func(item Item) {
		if item.IsTerminal() {
			atomic.StoreInt32(&conn.terminated, 1)
		}
		relay(item)
	})
	return conn
}

// attach 把订阅者挂到当前连接周期的Subject上
func (co *connectableObservableImpl) attach(e *emitter) {
	co.mu.Lock()
	if co.current == nil || co.current.IsDisposed() {
		co.current = co.newConnection()
	}
	conn := co.current
	co.mu.Unlock()

	conn.subject.subscribeEmitter(e)
}

// Connect 开始发射数据给订阅者
//
// 上游终止或连接被释放后，下一次Connect会用新的Subject开始新的周期。
func (co *connectableObservableImpl) Connect() Disposable {
	conn, subscribe := co.prepare()
	if subscribe {
		conn.start()
	}
	return conn
}

// prepare 选定本次连接使用的周期，返回true时调用方负责订阅上游
func (co *connectableObservableImpl) prepare() (*connection, bool) {
	co.mu.Lock()
	defer co.mu.Unlock()

	conn := co.current
	if conn != nil && conn.connected && !conn.isTerminated() && !conn.IsDisposed() {
		return conn, false
	}
	if conn == nil || conn.connected || conn.IsDisposed() {
		conn = co.newConnection()
		co.current = conn
	}
	conn.connected = true
	return conn, true
}

// IsConnected 检查是否已连接
func (co *connectableObservableImpl) IsConnected() bool {
	co.mu.Lock()
	defer co.mu.Unlock()

	conn := co.current
	return conn != nil && conn.connected && !conn.isTerminated() && !conn.IsDisposed()
}

// start 订阅上游，已经释放的连接不会再订阅
func (c *connection) start() {
	log().Debug("rxcore: connectable connecting to source")
	c.owner.source.subscribeEmitter(c.upstream)
}

// Dispose 断开上游，订阅者不会收到终止通知
func (c *connection) Dispose() {
	if c.retire() {
		c.upstream.Dispose()
	}
}

// retire 标记释放并让owner的下一次attach开始新周期，只有第一次调用返回true
func (c *connection) retire() bool {
	if !atomic.CompareAndSwapInt32(&c.disposed, 0, 1) {
		return false
	}

	c.owner.mu.Lock()
	if c.owner.current == c {
		c.owner.current = nil
	}
	c.owner.mu.Unlock()
	return true
}

// IsDisposed 检查是否已释放
func (c *connection) IsDisposed() bool {
	return atomic.LoadInt32(&c.disposed) == 1
}

func (c *connection) isTerminated() bool {
	return atomic.LoadInt32(&c.terminated) == 1
}

// ============================================================================
// RefCount
// ============================================================================

// refCount 引用计数连接
//
// 计数的修改、周期的选定和周期的退役都在rc.mu下完成，
// 计数归零之后到来的订阅者总是开始新的周期。
type refCount struct {
	source *connectableObservableImpl

	mu   sync.Mutex
	conn *refConnection
}

// refConnection 一个引用计数周期
type refConnection struct {
	count int
	cycle *connection
}

// RefCount 返回一个自动连接/断开的Observable
func (co *connectableObservableImpl) RefCount() Observable {
	rc := &refCount{source: co}
	return newObservable(rc.subscribe)
}

func (rc *refCount) subscribe(e *emitter) {
	rc.mu.Lock()
	conn := rc.conn
	connect := false
	if conn == nil {
		var cycle *connection
		cycle, connect = rc.source.prepare()
		conn = &refConnection{cycle: cycle}
		rc.conn = conn
	}
	conn.count++
	rc.mu.Unlock()

	e.Add(NewBaseDisposable(func() {
		rc.release(conn)
	}))
	conn.cycle.subject.subscribeEmitter(e)

	if connect {
		conn.cycle.start()
	}
}

func (rc *refCount) release(conn *refConnection) {
	rc.mu.Lock()
	conn.count--
	if conn.count > 0 || rc.conn != conn {
		rc.mu.Unlock()
		return
	}
	rc.conn = nil
	retired := conn.cycle.retire()
	rc.mu.Unlock()

	if retired {
		conn.cycle.upstream.Dispose()
	}
}

// ============================================================================
// AutoConnect
// ============================================================================

// AutoConnect 当有指定数量的订阅者时自动连接
//
// subscriberCount不为正时立即连接。连接永不断开。
func (co *connectableObservableImpl) AutoConnect(subscriberCount int) Observable {
	if subscriberCount <= 0 {
		co.Connect()
		return co.observableImpl
	}

	var attached int64
	return newObservable(func(e *emitter) {
		co.subscribeEmitter(e)
		if atomic.AddInt64(&attached, 1) == int64(subscriberCount) {
			co.Connect()
		}
	})
}

// ============================================================================
// Observable 上的多播操作符
// ============================================================================

// Publish 通过PublishSubject多播
func (o *observableImpl) Publish() ConnectableObservable {
	return Multicast(o, func() Subject { return NewPublishSubject() })
}

// Replay 通过无界ReplaySubject多播
func (o *observableImpl) Replay() ConnectableObservable {
	return Multicast(o, func() Subject { return NewReplaySubject() })
}

// ReplayWithSize 通过只保留size个值的ReplaySubject多播
func (o *observableImpl) ReplayWithSize(size int) ConnectableObservable {
	return Multicast(o, func() Subject { return NewReplaySubjectWithSize(size) })
}

// Share 等价于Publish().RefCount()
func (o *observableImpl) Share() Observable {
	return o.Publish().RefCount()
}

// Cache 第一个订阅者到来时连接，缓存全部值并重放给后续订阅者
//
// 注意：连接永不断开，即使所有订阅者都已离开，上游也会一直运行并缓存，
// 直到自然终止。对无限序列使用Cache会导致内存无限增长。
func (o *observableImpl) Cache() Observable {
	log().Debug("rxcore: Cache keeps its source connected until it terminates")
	return o.Replay().AutoConnect(1)
}

// CacheWithCapacity 与Cache相同，capacityHint只是预期值数量的提示，不限制缓存大小
func (o *observableImpl) CacheWithCapacity(capacityHint int) Observable {
	log().WithField("capacity_hint", capacityHint).Debug("rxcore: Cache keeps its source connected until it terminates")
	return o.Replay().AutoConnect(1)
}
