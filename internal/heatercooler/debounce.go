package heatercooler

import (
	"sync"
	"time"
)

// debouncer coalesces rapid writes to one attribute. Each Set replaces
// the recorded value and restarts the window; only the value recorded
// when the window finally expires is flushed downstream.
type debouncer struct {
	mu     sync.Mutex
	window time.Duration
	flush  func(value float64)

	timer  *time.Timer
	value  float64
	gen    uint64
	closed bool
}

// newDebouncer builds a debouncer that delivers coalesced values to
// flush. The flush callback runs on the timer's goroutine.
func newDebouncer(window time.Duration, flush func(value float64)) *debouncer {
	return &debouncer{window: window, flush: flush}
}

// Set records value and (re)starts the window.
func (d *debouncer) Set(value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.value = value
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

// fire flushes the recorded value. The generation check drops a timer
// that lost the race against a newer Set: that write's own timer is the
// one that delivers.
func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	value := d.value
	d.timer = nil
	d.mu.Unlock()

	d.flush(value)
}

// Close cancels any pending flush. Further Set calls are dropped.
func (d *debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
