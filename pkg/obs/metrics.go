package obs

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing, concurrency-safe counter.
type Counter struct{ val atomic.Int64 }

// Inc increments the counter by one.
func (c *Counter) Inc() { c.val.Add(1) }

// Value returns the counter's current value.
func (c *Counter) Value() int64 { return c.val.Load() }

// Registry holds the named counters a pipeline binary exposes over
// /metrics. Every counter in this codebase (DAG runs started, nodes
// completed, nodes failed) is a simple monotonic count, so unlike a
// general-purpose metrics library this registry carries counters only —
// there is no gauge or histogram type because nothing in paperflow samples
// a point-in-time value or a distribution.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	help     map[string]string
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counter), help: make(map[string]string)}
}

// Counter returns (or creates) the named counter.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{}
	r.counters[name] = c
	r.help[name] = help
	r.order = append(r.order, name)
	return c
}

// Render returns the registry's state in Prometheus text exposition format.
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := append([]string(nil), r.order...)
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if h := r.help[name]; h != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", name, h)
		}
		fmt.Fprintf(&b, "# TYPE %s counter\n", name)
		fmt.Fprintf(&b, "%s %d\n", name, r.counters[name].Value())
	}
	return b.String()
}

// Handler returns an http.Handler serving the registry's current state.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}
