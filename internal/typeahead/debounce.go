package typeahead

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Debouncer delays a call until no newer call was scheduled within the delay.
// Only the most recently scheduled function ever runs.
type Debouncer struct {
	clock Clock

	mu    sync.Mutex
	timer Timer
	gen   uint64
}

// NewDebouncer creates a debouncer on clock (SystemClock if nil).
func NewDebouncer(clock Clock) *Debouncer {
	if clock == nil {
		clock = SystemClock
	}
	return &Debouncer{clock: clock}
}

// Schedule replaces any pending call with fn, to run after delay.
func (d *Debouncer) Schedule(fn func(), delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	// Stop can lose the race with a timer that already fired; the generation
	// check makes that callback a no-op.
	d.timer = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending call, reporting whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

// Pending reports whether a call is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Sequencer stamps outgoing requests so late responses can be recognised.
type Sequencer struct {
	n atomic.Uint64
}

// Next issues a new sequence number, superseding all earlier ones.
func (s *Sequencer) Next() uint64 {
	return s.n.Add(1)
}

// IsCurrent reports whether seq is still the latest issued number.
func (s *Sequencer) IsCurrent(seq uint64) bool {
	return s.n.Load() == seq
}
