// Package rxcore provides a reactive-stream execution core for Go
// 响应式流执行核心：冷Observable、Subject、可连接的多播、调度器和推转拉适配器
//
// 通知在同一个订阅内严格串行投递。值以原样传递、不会被复制：
// 同一个值可能同时被多个订阅者或重放缓冲区持有，修改可变的值是调用方的责任。
package rxcore

import (
	"context"
	"sync"
	"sync/atomic"
)

// ============================================================================
// 核心类型定义
// ============================================================================

// NotificationKind 通知类型
type NotificationKind int

const (
	// KindNext 数据值
	KindNext NotificationKind = iota
	// KindError 错误终止
	KindError
	// KindComplete 正常完成
	KindComplete
)

func (k NotificationKind) String() string {
	switch k {
	case KindNext:
		return "OnNext"
	case KindError:
		return "OnError"
	case KindComplete:
		return "OnComplete"
	default:
		return "Unknown"
	}
}

// Item 表示流中的一个通知：值、错误或完成信号
//
// 完成信号由Kind表示，nil是合法的数据值。
type Item struct {
	Kind  NotificationKind
	Value interface{}
	Error error
}

// IsNext 检查是否为数据值
func (item Item) IsNext() bool {
	return item.Kind == KindNext
}

// IsError 检查项目是否包含错误
func (item Item) IsError() bool {
	return item.Kind == KindError
}

// IsComplete 检查是否为完成信号
func (item Item) IsComplete() bool {
	return item.Kind == KindComplete
}

// IsTerminal 检查是否为终止通知（错误或完成）
func (item Item) IsTerminal() bool {
	return item.Kind != KindNext
}

// GetValue 获取项目的值，如果不是数据值则返回nil
func (item Item) GetValue() interface{} {
	if !item.IsNext() {
		return nil
	}
	return item.Value
}

// CreateItem 创建包含值的项目
func CreateItem(value interface{}) Item {
	return Item{Kind: KindNext, Value: value}
}

// CreateErrorItem 创建包含错误的项目
func CreateErrorItem(err error) Item {
	return Item{Kind: KindError, Error: err}
}

// CompleteItem 创建完成信号
func CompleteItem() Item {
	return Item{Kind: KindComplete}
}

// ============================================================================
// 函数类型定义
// ============================================================================

// Observer 观察者函数类型
type Observer func(item Item)

// OnNext 处理下一个值的函数
type OnNext func(value interface{})

// OnError 处理错误的函数
type OnError func(err error)

// OnComplete 处理完成的函数
type OnComplete func()

// Predicate 谓词函数，用于过滤
type Predicate func(value interface{}) bool

// Transformer 转换函数，用于映射
type Transformer func(value interface{}) (interface{}, error)

// Reducer 归约函数，用于聚合
type Reducer func(accumulator, current interface{}) interface{}

// ============================================================================
// 生命周期管理
// ============================================================================

// Disposable 可释放资源的接口
type Disposable interface {
	// Dispose 释放资源，幂等
	Dispose()
	// IsDisposed 检查是否已释放
	IsDisposed() bool
}

// baseDisposable 基础可释放资源实现
type baseDisposable struct {
	disposed int32
	action   func()
}

// NewBaseDisposable 创建基础可释放资源，action最多执行一次
func NewBaseDisposable(action func()) Disposable {
	return &baseDisposable{
		action: action,
	}
}

// Disposed 返回一个已经释放的资源
func Disposed() Disposable {
	return &baseDisposable{disposed: 1}
}

// Dispose 释放资源
func (d *baseDisposable) Dispose() {
	if atomic.CompareAndSwapInt32(&d.disposed, 0, 1) {
		if d.action != nil {
			d.action()
		}
	}
}

// IsDisposed 检查是否已释放
func (d *baseDisposable) IsDisposed() bool {
	return atomic.LoadInt32(&d.disposed) == 1
}

// CompositeDisposable 组合式资源管理器
type CompositeDisposable struct {
	mu        sync.Mutex
	disposed  bool
	resources []Disposable
}

// NewCompositeDisposable 创建组合式资源管理器
func NewCompositeDisposable(resources ...Disposable) *CompositeDisposable {
	cd := &CompositeDisposable{}
	for _, resource := range resources {
		cd.Add(resource)
	}
	return cd
}

// Add 添加可释放资源，已释放时立即释放新资源
func (cd *CompositeDisposable) Add(disposable Disposable) {
	if disposable == nil {
		return
	}

	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		disposable.Dispose()
		return
	}
	cd.resources = append(cd.resources, disposable)
	cd.mu.Unlock()
}

// Remove 移除资源但不释放它
func (cd *CompositeDisposable) Remove(disposable Disposable) {
	cd.mu.Lock()
	defer cd.mu.Unlock()

	for i, resource := range cd.resources {
		if resource == disposable {
			cd.resources = append(cd.resources[:i], cd.resources[i+1:]...)
			return
		}
	}
}

// Len 当前持有的资源数量
func (cd *CompositeDisposable) Len() int {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return len(cd.resources)
}

// Dispose 释放所有资源
func (cd *CompositeDisposable) Dispose() {
	cd.mu.Lock()
	if cd.disposed {
		cd.mu.Unlock()
		return
	}
	cd.disposed = true
	resources := cd.resources
	cd.resources = nil
	cd.mu.Unlock()

	// 释放动作可能回调本对象，不能持锁执行
	for _, resource := range resources {
		resource.Dispose()
	}
}

// IsDisposed 检查是否已释放
func (cd *CompositeDisposable) IsDisposed() bool {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return cd.disposed
}

// SerialDisposable 持有单个可替换资源，替换时释放旧资源
type SerialDisposable struct {
	mu       sync.Mutex
	disposed bool
	current  Disposable
}

// NewSerialDisposable 创建可替换资源容器
func NewSerialDisposable() *SerialDisposable {
	return &SerialDisposable{}
}

// Set 替换当前资源并释放旧资源
func (sd *SerialDisposable) Set(disposable Disposable) {
	sd.mu.Lock()
	if sd.disposed {
		sd.mu.Unlock()
		if disposable != nil {
			disposable.Dispose()
		}
		return
	}
	old := sd.current
	sd.current = disposable
	sd.mu.Unlock()

	if old != nil {
		old.Dispose()
	}
}

// setIfEmpty 仅在尚未持有资源时设置，已释放时释放传入的资源
func (sd *SerialDisposable) setIfEmpty(disposable Disposable) {
	sd.mu.Lock()
	if sd.disposed {
		sd.mu.Unlock()
		disposable.Dispose()
		return
	}
	if sd.current == nil {
		sd.current = disposable
	}
	sd.mu.Unlock()
}

// Dispose 释放当前资源
func (sd *SerialDisposable) Dispose() {
	sd.mu.Lock()
	if sd.disposed {
		sd.mu.Unlock()
		return
	}
	sd.disposed = true
	current := sd.current
	sd.current = nil
	sd.mu.Unlock()

	if current != nil {
		current.Dispose()
	}
}

// IsDisposed 检查是否已释放
func (sd *SerialDisposable) IsDisposed() bool {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	return sd.disposed
}

// ============================================================================
// 工具函数
// ============================================================================

// SafeExecute 安全执行函数，捕获panic
func SafeExecute(action func()) (recovered interface{}) {
	defer func() {
		if r := recover(); r != nil {
			recovered = r
		}
	}()

	action()
	return nil
}

// ============================================================================
// 配置选项
// ============================================================================

// Option 配置选项接口
type Option interface {
	Apply(config *Config)
}

// Config 配置结构
type Config struct {
	// BufferSize ToChannel等通道适配器的缓冲区大小
	BufferSize int
	// Scheduler 时间相关源和操作符使用的调度器，nil表示DefaultScheduler
	Scheduler Scheduler
	// Context FromAsync和FromChannel的父上下文
	Context context.Context
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 16,
		Context:    context.Background(),
	}
}

// scheduler 返回配置的调度器，未配置时使用默认调度器
func (c *Config) scheduler() Scheduler {
	if c.Scheduler != nil {
		return c.Scheduler
	}
	return DefaultScheduler
}

func newConfig(options []Option) *Config {
	config := DefaultConfig()
	for _, opt := range options {
		if opt != nil {
			opt.Apply(config)
		}
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.BufferSize < 0 {
		config.BufferSize = 0
	}
	return config
}

// optionFunc 函数式选项
type optionFunc func(config *Config)

// Apply 应用选项
func (f optionFunc) Apply(config *Config) {
	f(config)
}

// WithScheduler 创建使用指定调度器的选项
func WithScheduler(scheduler Scheduler) Option {
	return optionFunc(func(config *Config) {
		config.Scheduler = scheduler
	})
}

// WithBufferSize 设置通道缓冲区大小
func WithBufferSize(size int) Option {
	return optionFunc(func(config *Config) {
		config.BufferSize = size
	})
}

// WithContext 设置父上下文
func WithContext(ctx context.Context) Option {
	return optionFunc(func(config *Config) {
		config.Context = ctx
	})
}
