package trace

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Heartbeat emits a driver-scope event at a fixed interval. Heartbeats that
// keep arriving without span ends point at a body callback that never
// returns.
type Heartbeat struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	beats    atomic.Uint64
}

// StartHeartbeat starts beating on tracer. It returns nil when tracing is
// disabled or interval is not positive; a nil Heartbeat is safe to use.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{}), done: make(chan struct{})}
	go h.run(tracer, interval)
	return h
}

func (h *Heartbeat) run(tracer Tracer, interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	gid := GoroutineID()
	for {
		select {
		case now := <-ticker.C:
			n := h.beats.Add(1)
			tracer.Emit(&Event{
				Time:   now,
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    gid,
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d", n),
			})
		case <-h.stop:
			return
		}
	}
}

// Beats reports how many heartbeats were emitted.
func (h *Heartbeat) Beats() uint64 {
	if h == nil {
		return 0
	}
	return h.beats.Load()
}

// Stop ends the heartbeat and waits for its goroutine. Repeated calls are
// fine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}
