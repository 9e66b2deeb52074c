package services

import (
	"sync"
	"time"
)

// CheckoutTimer bounds how long a checkout session may stay unpaid.
// It counts down in 1-second ticks once started and keeps counting
// across step transitions; expiration is a level-triggered condition
// observable from anywhere, not a one-shot event.
type CheckoutTimer struct {
	mu        sync.Mutex
	duration  int
	remaining int
	expired   bool
	running   bool
	stopCh    chan struct{}
	interval  time.Duration
	onExpire  func()
}

// NewCheckoutTimer creates a timer armed with the configured duration
// in seconds. onExpire is invoked once, outside the timer lock, when
// the countdown reaches zero; it may be nil.
func NewCheckoutTimer(durationSeconds int, onExpire func()) *CheckoutTimer {
	return &CheckoutTimer{
		duration:  durationSeconds,
		remaining: durationSeconds,
		interval:  time.Second,
		onExpire:  onExpire,
	}
}

// Start begins the countdown. Starting an already-running or expired
// timer is a no-op, so remounts cannot accumulate duplicate tickers.
func (t *CheckoutTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.expired {
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	go t.run(t.stopCh)
}

func (t *CheckoutTimer) run(stopCh chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if t.tick() {
				if t.onExpire != nil {
					t.onExpire()
				}
				return
			}
		}
	}
}

// tick decrements the countdown and reports whether it just expired
func (t *CheckoutTimer) tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return false
	}
	t.remaining--
	if t.remaining > 0 {
		return false
	}
	t.remaining = 0
	t.expired = true
	t.running = false
	return true
}

// Remaining returns the seconds left on the countdown
func (t *CheckoutTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Expired reports whether the countdown has reached zero
func (t *CheckoutTimer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Stop freezes the countdown without resetting it. Used when the
// transaction reaches a terminal success state.
func (t *CheckoutTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *CheckoutTimer) stopLocked() {
	if t.running {
		close(t.stopCh)
		t.running = false
	}
}

// Reset re-arms the countdown from its configured duration and clears
// the expired condition. Used only on an explicit retry; expiration
// never auto-resets.
func (t *CheckoutTimer) Reset() {
	t.mu.Lock()
	t.stopLocked()
	t.remaining = t.duration
	t.expired = false
	t.running = true
	t.stopCh = make(chan struct{})
	stopCh := t.stopCh
	t.mu.Unlock()

	go t.run(stopCh)
}

// Expire forces the countdown to zero immediately
func (t *CheckoutTimer) Expire() {
	t.mu.Lock()
	t.stopLocked()
	alreadyExpired := t.expired
	t.remaining = 0
	t.expired = true
	onExpire := t.onExpire
	t.mu.Unlock()

	if !alreadyExpired && onExpire != nil {
		onExpire()
	}
}
