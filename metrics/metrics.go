// Package metrics is the counter abstraction the span reporter writes to.
// Backends plug in through Factory; NullFactory discards everything and
// LocalFactory keeps counts in memory.
package metrics

import (
	"sort"
	"strings"
)

// Counter tracks the number of times an event has occurred.
type Counter interface {
	// Inc adds delta to the counter.
	Inc(delta int64)
}

// Factory creates counters. Tags become labels or are folded into the name,
// depending on the backend.
type Factory interface {
	Counter(name string, tags map[string]string) Counter
}

// NullCounter discards all increments.
var NullCounter Counter = nullCounter{}

// NullFactory creates NullCounters.
var NullFactory Factory = nullFactory{}

type nullCounter struct{}

func (nullCounter) Inc(int64) {}

type nullFactory struct{}

func (nullFactory) Counter(string, map[string]string) Counter { return NullCounter }

// GetKey builds a flat key from a name and its tags: name|k1=v1|k2=v2 with
// the tags sorted by key.
func GetKey(name string, tags map[string]string, tagsSep, tagKVSep string) string {
	if len(tags) == 0 {
		return name
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString(tagsSep)
		b.WriteString(k)
		b.WriteString(tagKVSep)
		b.WriteString(tags[k])
	}
	return b.String()
}
