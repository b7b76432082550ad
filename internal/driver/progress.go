package driver

import "time"

// Status captures the state of one module within a build.
type Status string

const (
	// StatusQueued indicates the module is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusBuilding indicates the module body is being run.
	StatusBuilding Status = "building"
	// StatusDone indicates the module finalized.
	StatusDone Status = "done"
	// StatusError indicates the module failed or was cancelled.
	StatusError Status = "error"
)

// Event reports progress for a module (or for the whole build when Module is empty).
type Event struct {
	Module  string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. It is called from worker goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
