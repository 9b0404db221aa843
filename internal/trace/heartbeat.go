package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits periodic liveness events while a long compilation runs.
// Heartbeats without span ends in between point at a stuck statement.
type Heartbeat struct {
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// StartHeartbeat starts the heartbeat goroutine. It returns nil when
// tracing is disabled or interval is not positive.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{quit: make(chan struct{}), stopped: make(chan struct{})}
	go func() {
		defer close(h.stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		started := time.Now()
		for n := 1; ; n++ {
			select {
			case now := <-ticker.C:
				tracer.Emit(&Event{
					Time:    now,
					Seq:     seqs.Add(1),
					Kind:    KindHeartbeat,
					Scope:   ScopeDriver,
					Name:    "heartbeat",
					Detail:  fmt.Sprintf("#%d", n),
					Elapsed: now.Sub(started),
				})
			case <-h.quit:
				return
			}
		}
	}()
	return h
}

// Stop ends the heartbeat and waits for its goroutine. Safe on nil and
// when called more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.quit) })
	<-h.stopped
}
