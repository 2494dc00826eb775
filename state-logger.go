package zipkintracer

import (
	"fmt"
	"sync"
	"time"
)

var errNoError = fmt.Errorf("not an error")

// StateLogger is the error sink of the remote reporter. It logs an error
// only if logErrorInterval has passed since the last logged error, or if
// the error message differs from the last one. Errors swallowed in between
// are counted and reported with the next line that gets through.
type StateLogger struct {
	logger           Logger
	logErrorInterval time.Duration
	lastError        error
	lastErrorTime    time.Time
	suppressed       int
	mutex            *sync.Mutex
}

// NewStateLogger creates a new stateLogger
func NewStateLogger(logger Logger, logErrorInterval time.Duration) *StateLogger {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &StateLogger{
		logger:           logger,
		logErrorInterval: logErrorInterval,
		lastError:        errNoError,
		mutex:            &sync.Mutex{},
	}
}

// LogError logs err with the extra key/value pairs if it is different from
// the last seen error, or if logErrorInterval has passed since the last
// reported error.
func (se *StateLogger) LogError(err error, keyvals ...interface{}) {
	se.mutex.Lock()
	defer se.mutex.Unlock()
	if se.lastError != nil && err.Error() == se.lastError.Error() &&
		time.Since(se.lastErrorTime) < se.logErrorInterval {
		se.suppressed++
		return
	}
	line := append([]interface{}{"err", err.Error()}, keyvals...)
	if se.suppressed > 0 {
		line = append(line, "suppressed", se.suppressed)
	}
	se.logger.Log(line...)
	se.lastError = err
	se.lastErrorTime = time.Now()
	se.suppressed = 0
}

// Fixed makes the stateLogger understand that the state is fixed, and when
// the next error will occur, it will log it.
func (se *StateLogger) Fixed(keyVal ...interface{}) {
	se.mutex.Lock()
	defer se.mutex.Unlock()
	if se.logErrorInterval == 0 || se.lastError == nil || se.lastError == errNoError {
		return
	}
	se.logger.Log(keyVal...)
	se.lastError = nil
	se.suppressed = 0
}
