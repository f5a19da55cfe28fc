// SPDX-License-Identifier: EPL-2.0

package source

import "sync"

// Event is a playback notification shared by every source variant.
type Event int

const (
	EventLoadStart Event = iota
	EventLoad
	EventChange
	EventEnd
	EventDurationChange
	EventPlay
	EventPause
	EventDestruct
)

func (e Event) String() string {
	switch e {
	case EventLoadStart:
		return "loadstart"
	case EventLoad:
		return "load"
	case EventChange:
		return "change"
	case EventEnd:
		return "end"
	case EventDurationChange:
		return "durationchange"
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventDestruct:
		return "destruct"
	default:
		return "unknown"
	}
}

// Listener receives events together with the source that emitted them.
type Listener func(ev Event, src Source)

type subscription struct {
	id int
	fn Listener
}

// emitter delivers events to listeners in subscription order. Listeners are
// always called without the emitter's lock held.
type emitter struct {
	mu        sync.Mutex
	next      int
	listeners []subscription
}

func (e *emitter) subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	e.mu.Lock()
	e.next++
	id := e.next
	e.listeners = append(e.listeners, subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()

			for i, s := range e.listeners {
				if s.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

func (e *emitter) emit(ev Event, src Source) {
	e.mu.Lock()
	subs := make([]subscription, len(e.listeners))
	copy(subs, e.listeners)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(ev, src)
	}
}

func (e *emitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = nil
}
