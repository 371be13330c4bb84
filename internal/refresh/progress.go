package refresh

import "sync"

// ProgressSink receives free-text status messages. Implementations own any
// marshaling onto their own event loop and must be safe for concurrent use.
type ProgressSink interface {
	Report(message string)
}

// BusyIndicator is toggled around every refresh request.
type BusyIndicator interface {
	ShowBusy()
	HideBusy()
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(message string)

// Report implements ProgressSink.
func (f SinkFunc) Report(message string) {
	if f != nil {
		f(message)
	}
}

// Fanout delivers each message to every subscribed sink. Sinks that also
// implement BusyIndicator receive the busy toggles.
type Fanout struct {
	mu    sync.RWMutex
	sinks map[*entry]struct{}
}

type entry struct {
	sink ProgressSink
}

// NewFanout subscribes the given sinks. Nil sinks are skipped.
func NewFanout(sinks ...ProgressSink) *Fanout {
	f := &Fanout{sinks: map[*entry]struct{}{}}
	for _, sink := range sinks {
		f.Subscribe(sink)
	}
	return f
}

// Subscribe adds a sink and returns the function that removes it again.
func (f *Fanout) Subscribe(sink ProgressSink) (cancel func()) {
	if sink == nil {
		return func() {}
	}
	e := &entry{sink: sink}
	f.mu.Lock()
	f.sinks[e] = struct{}{}
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.sinks, e)
		f.mu.Unlock()
	}
}

// Report implements ProgressSink.
func (f *Fanout) Report(message string) {
	for _, sink := range f.snapshot() {
		sink.Report(message)
	}
}

// ShowBusy implements BusyIndicator.
func (f *Fanout) ShowBusy() {
	for _, sink := range f.snapshot() {
		if busy, ok := sink.(BusyIndicator); ok {
			busy.ShowBusy()
		}
	}
}

// HideBusy implements BusyIndicator.
func (f *Fanout) HideBusy() {
	for _, sink := range f.snapshot() {
		if busy, ok := sink.(BusyIndicator); ok {
			busy.HideBusy()
		}
	}
}

func (f *Fanout) snapshot() []ProgressSink {
	f.mu.RLock()
	defer f.mu.RUnlock()
	items := make([]ProgressSink, 0, len(f.sinks))
	for e := range f.sinks {
		items = append(items, e.sink)
	}
	return items
}
