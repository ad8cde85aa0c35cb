package client

import (
	"sync"
	"time"
)

// typingDebouncer turns a stream of keystrokes into at most one
// typing-start, then a typing-stop once the user goes idle. The server
// relays every start signal it receives, so suppressing repeats here is
// what keeps the wire quiet.
type typingDebouncer struct {
	mu     sync.Mutex
	idle   time.Duration
	active bool
	timer  *time.Timer
	start  func()
	stop   func()
}

func newTypingDebouncer(idle time.Duration, start, stop func()) *typingDebouncer {
	return &typingDebouncer{
		idle:  idle,
		start: start,
		stop:  stop,
	}
}

// Touch records a keystroke: fires start on the first one and pushes
// the idle deadline out on every one.
func (d *typingDebouncer) Touch() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		d.active = true
		go d.start()
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.idle, d.expire)
}

// Stop fires an immediate typing-stop if typing was active.
func (d *typingDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return
	}
	d.active = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	go d.stop()
}

func (d *typingDebouncer) expire() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return
	}
	d.active = false
	d.timer = nil
	go d.stop()
}
