// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"

	"github.com/ik5/audchain/source"
)

// MockElement is an in-memory media element producing a constant level. It
// starts paused with no locator; SetSrc loads it.
type MockElement struct {
	mu sync.Mutex

	sampleRate int
	channels   int
	frames     int
	value      float32

	src    string
	pos    int
	paused bool
	volume float64

	next      int
	listeners map[int]func(source.Event)
}

func NewMockElement(sampleRate, channels int, seconds float64, value float32) *MockElement {
	return &MockElement{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     int(seconds * float64(sampleRate)),
		value:      value,
		paused:     true,
		volume:     1,
		listeners:  make(map[int]func(source.Event)),
	}
}

func (e *MockElement) SampleRate() int { return e.sampleRate }
func (e *MockElement) Channels() int   { return e.channels }
func (e *MockElement) BufSize() int    { return 1024 }
func (e *MockElement) Close() error    { return nil }

// ReadSamples returns nothing while paused or past the end.
func (e *MockElement) ReadSamples(dst []float32) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return 0, nil
	}

	n := min(len(dst)/e.channels, e.frames-e.pos)
	if n <= 0 {
		return 0, nil
	}

	v := e.value * float32(e.volume)
	for i := range n * e.channels {
		dst[i] = v
	}
	e.pos += n

	return n * e.channels, nil
}

func (e *MockElement) Play() {
	e.mu.Lock()
	was := e.paused
	e.paused = false
	e.mu.Unlock()

	if was {
		e.emit(source.EventPlay)
	}
}

func (e *MockElement) Pause() {
	e.mu.Lock()
	was := e.paused
	e.paused = true
	e.mu.Unlock()

	if !was {
		e.emit(source.EventPause)
	}
}

func (e *MockElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.paused
}

func (e *MockElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return float64(e.pos) / float64(e.sampleRate)
}

func (e *MockElement) SetCurrentTime(t float64) {
	e.mu.Lock()
	e.pos = min(max(0, int(t*float64(e.sampleRate))), e.frames)
	e.mu.Unlock()

	e.emit(source.EventChange)
}

func (e *MockElement) Duration() float64 {
	return float64(e.frames) / float64(e.sampleRate)
}

func (e *MockElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.volume
}

func (e *MockElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = v
}

// Src returns the locator last passed to SetSrc.
func (e *MockElement) Src() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.src
}

func (e *MockElement) SetSrc(src string) error {
	e.mu.Lock()
	e.src = src
	e.pos = 0
	e.mu.Unlock()

	if src == "" {
		return nil
	}

	e.emit(source.EventLoadStart)
	e.emit(source.EventDurationChange)
	e.emit(source.EventLoad)

	return nil
}

// Finish moves to the end, pauses and reports EventEnd.
func (e *MockElement) Finish() {
	e.mu.Lock()
	e.pos = e.frames
	e.paused = true
	e.mu.Unlock()

	e.emit(source.EventEnd)
}

func (e *MockElement) Subscribe(fn func(source.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.next++
	id := e.next
	e.listeners[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		delete(e.listeners, id)
	}
}

// Listeners returns the number of active subscriptions.
func (e *MockElement) Listeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.listeners)
}

func (e *MockElement) emit(ev source.Event) {
	e.mu.Lock()
	fns := make([]func(source.Event), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
