package search

import (
	"sync"
	"time"
)

// Debouncer holds the latest submitted query and runs fn with it once no
// new query has arrived for the configured delay. Runs already started are
// not cancelled.
type Debouncer struct {
	delay time.Duration
	fn    func(query string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	gen     uint64
	stopped bool
}

func NewDebouncer(delay time.Duration, fn func(query string)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

func (d *Debouncer) Submit(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending = query
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a timer that lost the race with Stop or a newer Submit does nothing
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	query := d.pending
	d.timer = nil
	d.mu.Unlock()

	d.fn(query)
}

// Stop drops any pending query.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
