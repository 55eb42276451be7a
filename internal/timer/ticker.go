package timer

import (
	"sync"
	"time"
)

// DefaultTickInterval is how often a running ticker reports elapsed time.
const DefaultTickInterval = time.Second

// Ticker advances a displayed elapsed counter while a timer runs. It never
// counts ticks: every callback recomputes elapsed seconds from the anchor,
// so a delayed or throttled callback still reports the true value.
type Ticker struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	anchor   time.Time
	stop     chan struct{}
	done     chan struct{}
}

// TickerOption configures a Ticker.
type TickerOption func(*Ticker)

// WithTickInterval overrides the one-second default.
func WithTickInterval(d time.Duration) TickerOption {
	return func(t *Ticker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTickerClock injects the time source used to recompute elapsed time.
func WithTickerClock(now func() time.Time) TickerOption {
	return func(t *Ticker) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTicker(opts ...TickerOption) *Ticker {
	t := &Ticker{interval: DefaultTickInterval, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins calling onTick with the elapsed seconds since anchor once per
// interval. It returns false without side effects if the ticker is already
// active. onTick runs on the ticker goroutine and must not call Stop.
func (t *Ticker) Start(anchor time.Time, onTick func(elapsed int64)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop != nil {
		return false
	}

	t.anchor = anchor
	stop := make(chan struct{})
	done := make(chan struct{})
	t.stop, t.done = stop, done

	go func() {
		defer close(done)
		tk := time.NewTicker(t.interval)
		defer tk.Stop()

		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				onTick(ElapsedSince(anchor, t.now()))
			}
		}
	}()
	return true
}

// Stop releases the callback goroutine and waits for it to exit. It is safe
// to call on an idle ticker and more than once.
func (t *Ticker) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.anchor = time.Time{}
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Active reports whether a callback goroutine is running.
func (t *Ticker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

// Elapsed recomputes the elapsed seconds from the current anchor, or 0 when
// the ticker is idle.
func (t *Ticker) Elapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return 0
	}
	return ElapsedSince(t.anchor, t.now())
}
