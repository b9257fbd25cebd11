// Logging and unhandled errors
// 日志与未处理错误的上报
package rxcore

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logMu        sync.RWMutex
	logger       logrus.FieldLogger = logrus.StandardLogger()
	errorHandler func(err error)
)

// SetLogger 替换包内使用的日志记录器，nil恢复为logrus标准记录器
func SetLogger(l logrus.FieldLogger) {
	logMu.Lock()
	defer logMu.Unlock()

	if l == nil {
		l = logrus.StandardLogger()
	}
	logger = l
}

// SetErrorHandler 设置未处理错误的回调
//
// 未处理错误包括：订阅时没有提供onError、终止之后的错误通知、调度器任务中的panic。
// 传入nil恢复默认行为（以Error级别记录日志）。
func SetErrorHandler(handler func(err error)) {
	logMu.Lock()
	defer logMu.Unlock()
	errorHandler = handler
}

func log() logrus.FieldLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// reportUnhandled 上报一个没有观察者可以接收的错误
func reportUnhandled(err error) {
	logMu.RLock()
	handler := errorHandler
	logMu.RUnlock()

	if handler != nil {
		handler(err)
		return
	}

	entry := log().WithError(err)
	var violation *ProtocolViolationError
	if errors.As(err, &violation) {
		entry.Warn("rxcore: protocol violation")
		return
	}
	entry.Error("rxcore: unhandled error")
}

// reportCancellationRace 订阅释放后到达的错误，属于良性竞争
func reportCancellationRace(err error) {
	log().WithError(err).Debug("rxcore: error dropped after dispose")
}
