package notify

import (
	"sync"
	"time"
)

// Flag is a boolean that turns itself off after a while, e.g. a "copied"
// marker. Its timer belongs to the owner and must be stopped with it.
type Flag struct {
	mu    sync.Mutex
	on    bool
	gen   uint64
	timer *time.Timer
}

// Set turns the flag on for d. Setting it again restarts the countdown.
// onExpire runs when the flag turns off by itself, never after Stop.
func (f *Flag) Set(d time.Duration, onExpire func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
	}
	f.gen++
	gen := f.gen
	f.on = true
	f.timer = time.AfterFunc(d, func() {
		f.mu.Lock()
		if f.gen != gen {
			// Restarted or stopped since
			f.mu.Unlock()
			return
		}
		f.on = false
		f.timer = nil
		f.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
	})
}

func (f *Flag) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Stop clears the flag and cancels its timer
func (f *Flag) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.on = false
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
