package zipkintracer

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger interface used by this package.
// This means that we accept Go kit Log compatible loggers
type Logger interface {
	Log(keyvals ...interface{}) error
}

// LoggerFunc takes care of wrapping a function into a Logger.
type LoggerFunc func(keyvals ...interface{}) error

// Log implements Logger
func (f LoggerFunc) Log(keyvals ...interface{}) error {
	return f(keyvals...)
}

type nopLogger struct{}

func (nopLogger) Log(...interface{}) error { return nil }

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return nopLogger{} }

// zapLogger forwards key/value pairs to a zap logger. A "msg" pair becomes
// the log message and the presence of an "err" pair raises the level to
// error.
type zapLogger struct {
	logger *zap.SugaredLogger
}

// NewZapLogger wraps a zap logger into a Logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return &zapLogger{logger: l.Sugar()}
}

func (z *zapLogger) Log(keyvals ...interface{}) error {
	var (
		msg    string
		isErr  bool
		fields = make([]interface{}, 0, len(keyvals))
	)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		var val interface{} = "(MISSING)"
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		switch key {
		case "msg":
			msg = fmt.Sprint(val)
			continue
		case "err":
			isErr = true
		}
		fields = append(fields, key, val)
	}
	if isErr {
		z.logger.Errorw(msg, fields...)
	} else {
		z.logger.Infow(msg, fields...)
	}
	return nil
}
