// Error types for rxcore
// 错误分类：生产者失败、协议违规、类型转换、超时、元素缺失
package rxcore

import (
	"errors"
	"fmt"
	"reflect"
)

// ============================================================================
// 哨兵错误
// ============================================================================

var (
	// ErrMultipleSubscriptions 单消费者Subject被第二次订阅
	ErrMultipleSubscriptions = errors.New("rxcore: only a single observer is allowed")
	// ErrEmissionAfterTerminal 终止通知之后再次发射
	ErrEmissionAfterTerminal = errors.New("rxcore: notification after terminal")
	// ErrTimeout 等待超时
	ErrTimeout = errors.New("rxcore: timeout")
	// ErrNoSuchElement 序列为空或索引越界
	ErrNoSuchElement = errors.New("rxcore: no such element")
	// ErrSequenceNotSingle 期望单值的序列发射了多个值
	ErrSequenceNotSingle = errors.New("rxcore: sequence contains more than one element")
	// ErrCast 值的类型与目标类型不匹配
	ErrCast = errors.New("rxcore: cast failed")
)

// ============================================================================
// ProducerError 生产者失败
// ============================================================================

// ProducerError 生产值或订阅时初始化过程中产生的失败，通常来自被恢复的panic
type ProducerError struct {
	Cause interface{}
}

// NewProducerError 创建生产者错误
func NewProducerError(cause interface{}) *ProducerError {
	return &ProducerError{Cause: cause}
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("rxcore: producer failure: %v", e.Cause)
}

// Unwrap 如果原因是error则返回它
func (e *ProducerError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// ============================================================================
// ProtocolViolationError 协议违规
// ============================================================================

// ProtocolViolationError 违反Observable协议
type ProtocolViolationError struct {
	message string
	cause   error
}

// NewProtocolViolationError 创建协议违规错误，cause通常是哨兵错误
func NewProtocolViolationError(cause error, format string, args ...interface{}) *ProtocolViolationError {
	return &ProtocolViolationError{
		message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

func (e *ProtocolViolationError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *ProtocolViolationError) Unwrap() error {
	return e.cause
}

// ============================================================================
// CastError 类型转换错误
// ============================================================================

// CastError 类型转换错误
type CastError struct {
	Value  interface{}
	Target reflect.Type
}

// NewCastError 创建类型转换错误
func NewCastError(value interface{}, target reflect.Type) *CastError {
	return &CastError{Value: value, Target: target}
}

func (e *CastError) Error() string {
	return fmt.Sprintf("rxcore: cannot cast %T to %v", e.Value, e.Target)
}

// Is 匹配ErrCast
func (e *CastError) Is(target error) bool {
	return target == ErrCast
}

// ============================================================================
// TimeoutError 超时错误
// ============================================================================

// TimeoutError 超时错误
type TimeoutError struct {
	message string
}

// NewTimeoutError 创建超时错误
func NewTimeoutError(message string) *TimeoutError {
	return &TimeoutError{message: message}
}

func (e *TimeoutError) Error() string {
	return e.message
}

// Is 匹配ErrTimeout
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ============================================================================
// NoSuchElementError 没有元素错误
// ============================================================================

// NoSuchElementError 没有元素错误
type NoSuchElementError struct {
	message string
}

// NewNoSuchElementError 创建没有元素错误
func NewNoSuchElementError(message string) *NoSuchElementError {
	return &NoSuchElementError{message: message}
}

func (e *NoSuchElementError) Error() string {
	return e.message
}

// Is 匹配ErrNoSuchElement
func (e *NoSuchElementError) Is(target error) bool {
	return target == ErrNoSuchElement
}
