package scan

import (
	"sync"
	"time"
)

// debouncer tracks the last accepted scan per (session, sku) so rapid
// double-reads collapse into one physical scan.
type debouncer struct {
	mtx    sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// observe records the scan and reports whether it falls inside the debounce
// window of the previous scan for the same key. The timestamp is only
// advanced for accepted scans so a burst of duplicates cannot extend the
// window indefinitely.
func (d *debouncer) observe(key string, now time.Time) bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return true
	}
	d.seen[key] = now
	return false
}

// prune drops entries older than ttl to keep the table bounded.
func (d *debouncer) prune(now time.Time, ttl time.Duration) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	for key, last := range d.seen {
		if now.Sub(last) > ttl {
			delete(d.seen, key)
		}
	}
}

func (d *debouncer) size() int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return len(d.seen)
}
