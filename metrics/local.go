package metrics

import (
	"sync"

	"go.uber.org/atomic"
)

// LocalFactory keeps counters in memory. It backs tests and the
// in-process stats of the CLI.
type LocalFactory struct {
	mu       sync.Mutex
	counters map[string]*atomic.Int64
}

// NewLocalFactory creates an empty LocalFactory.
func NewLocalFactory() *LocalFactory {
	return &LocalFactory{counters: make(map[string]*atomic.Int64)}
}

// Counter implements Factory. Counters with the same name and tags share
// their value.
func (f *LocalFactory) Counter(name string, tags map[string]string) Counter {
	key := GetKey(name, tags, "|", "=")
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.counters[key]
	if !ok {
		c = atomic.NewInt64(0)
		f.counters[key] = c
	}
	return localCounter{c}
}

// Value returns the current value of the counter with the given key, as
// built by GetKey.
func (f *LocalFactory) Value(key string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.counters[key]; ok {
		return c.Load()
	}
	return 0
}

// Snapshot returns the values of all counters by key.
func (f *LocalFactory) Snapshot() map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64, len(f.counters))
	for k, c := range f.counters {
		out[k] = c.Load()
	}
	return out
}

type localCounter struct {
	value *atomic.Int64
}

func (c localCounter) Inc(delta int64) {
	c.value.Add(delta)
}
