// SPDX-License-Identifier: EPL-2.0

package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/ik5/audchain/audio"
	"github.com/ik5/audchain/graph"
)

// Element is an external media player that decodes and keeps time on its
// own. Its samples are pulled through audio.Source; ReadSamples should return
// (0, nil) while the element is paused.
//
// Listeners passed to Subscribe must not be called from ReadSamples, which
// runs inside graph rendering.
type Element interface {
	audio.Source

	Play()
	Pause()
	Paused() bool

	CurrentTime() float64
	SetCurrentTime(t float64)
	Duration() float64

	Volume() float64
	SetVolume(v float64)

	// SetSrc points the element at a new locator; an empty string unloads it.
	SetSrc(src string) error

	Subscribe(fn func(Event)) (cancel func())
}

// ElementFactory creates an element for a locator.
type ElementFactory func(src string) (Element, error)

// SupportsElement reports whether raw can be loaded by an ElementSource: an
// Element or any locator string.
func SupportsElement(raw any) bool {
	switch raw.(type) {
	case Element, string:
		return true
	default:
		return false
	}
}

// ElementSource plays an Element through a graph.StreamNode. Every playback
// property is the element's own, and element events are passed on as they
// come.
type ElementSource struct {
	mu sync.Mutex

	ctx    *graph.Context
	target graph.Node
	cfg    config
	log    logrus.FieldLogger
	events emitter

	elem  Element
	node  *graph.StreamNode
	unsub func()
}

// NewElementSource returns an empty source that feeds target once an
// element is set.
func NewElementSource(target graph.Node, opts ...Option) (*ElementSource, error) {
	if target == nil {
		return nil, ErrNoTarget
	}

	cfg := newConfig(opts)

	return &ElementSource{
		ctx:    target.Context(),
		target: target,
		cfg:    cfg,
		log:    cfg.log.WithFields(logrus.Fields{"source": xid.New().String(), "variant": "element"}),
	}, nil
}

func (s *ElementSource) element() Element {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.elem
}

// Element returns the element being played, or nil.
func (s *ElementSource) Element() Element { return s.element() }

// Volume returns the element volume, or 1 with no element.
func (s *ElementSource) Volume() float64 {
	if e := s.element(); e != nil {
		return e.Volume()
	}
	return 1
}

// SetVolume sets the element volume.
func (s *ElementSource) SetVolume(v float64) {
	if e := s.element(); e != nil {
		e.SetVolume(v)
	}
}

// Duration returns the element duration in seconds, or 0.
func (s *ElementSource) Duration() float64 {
	if e := s.element(); e != nil {
		return e.Duration()
	}
	return 0
}

// CurrentTime returns the element position in seconds.
func (s *ElementSource) CurrentTime() float64 {
	if e := s.element(); e != nil {
		return e.CurrentTime()
	}
	return 0
}

// SetCurrentTime seeks the element.
func (s *ElementSource) SetCurrentTime(t float64) {
	if e := s.element(); e != nil {
		e.SetCurrentTime(t)
	}
}

// ChannelCount returns the element channels, or the engine's.
func (s *ElementSource) ChannelCount() int {
	if e := s.element(); e != nil {
		return e.Channels()
	}
	return s.ctx.Channels()
}

// Paused reports whether the element is paused. With no element it is.
func (s *ElementSource) Paused() bool {
	if e := s.element(); e != nil {
		return e.Paused()
	}
	return true
}

// Play starts the element.
func (s *ElementSource) Play() {
	if e := s.element(); e != nil {
		e.Play()
	}
}

// Pause pauses the element.
func (s *ElementSource) Pause() {
	if e := s.element(); e != nil {
		e.Pause()
	}
}

// Subscribe registers fn for element events. The returned func removes it.
func (s *ElementSource) Subscribe(fn Listener) func() {
	return s.events.subscribe(fn)
}

// SetSource accepts an Element, which replaces the current one, or a locator.
// Passing the element already attached changes nothing.
// A locator is handed to the current element, or to the element factory when
// there is none yet.
func (s *ElementSource) SetSource(_ context.Context, raw any) error {
	s.mu.Lock()

	if s.destroyed() {
		s.mu.Unlock()
		return ErrDestroyed
	}

	switch v := raw.(type) {
	case Element:
		defer s.mu.Unlock()

		if v == s.elem {
			return nil
		}

		s.clear()
		return s.attach(v)
	case string:
		if e := s.elem; e != nil {
			// the element may notify synchronously
			s.mu.Unlock()

			if err := e.SetSrc(v); err != nil {
				return fmt.Errorf("%w: %w", ErrDecode, err)
			}
			return nil
		}

		defer s.mu.Unlock()

		if s.cfg.elements == nil {
			return ErrNoElementFactory
		}

		e, err := s.cfg.elements(v)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}

		return s.attach(e)
	default:
		s.mu.Unlock()
		return fmt.Errorf("%w: %T", ErrUnsupportedSource, raw)
	}
}

// attach wires e into the graph. Callers hold s.mu.
func (s *ElementSource) attach(e Element) error {
	node := graph.NewStreamNode(s.ctx, e)
	if err := s.ctx.Connect(node, s.target); err != nil {
		return fmt.Errorf("connecting element: %w", err)
	}

	s.elem = e
	s.node = node
	s.unsub = e.Subscribe(func(ev Event) {
		s.events.emit(ev, s)
	})

	s.log.Debug("element attached")

	return nil
}

// clear unloads and detaches the current element. Callers hold s.mu.
func (s *ElementSource) clear() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}

	if s.node != nil {
		if err := s.ctx.DisconnectAll(s.node); err != nil {
			s.log.WithError(err).Debug("disconnecting element")
		}
		s.node = nil
	}

	if s.elem != nil {
		if err := s.elem.SetSrc(""); err != nil {
			s.log.WithError(err).Debug("unloading element")
		}
		s.elem = nil
	}
}

// ChangeTargetNode moves the element output to target.
func (s *ElementSource) ChangeTargetNode(target graph.Node) error {
	if target == nil {
		return ErrNoTarget
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed() {
		return ErrDestroyed
	}

	if target == s.target {
		return nil
	}

	if s.node != nil {
		if err := s.ctx.Disconnect(s.node, s.target); err != nil {
			return fmt.Errorf("disconnecting old target: %w", err)
		}
		if err := s.ctx.Connect(s.node, target); err != nil {
			if rerr := s.ctx.Connect(s.node, s.target); rerr != nil {
				s.log.WithError(rerr).Error("reconnecting old target")
			}
			return fmt.Errorf("connecting new target: %w", err)
		}
	}

	s.target = target

	return nil
}

// Destroy pauses and unloads the element and detaches it. Later calls do
// nothing.
func (s *ElementSource) Destroy() {
	s.mu.Lock()

	if s.destroyed() {
		s.mu.Unlock()
		return
	}

	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	if s.elem != nil {
		s.elem.Pause()
	}
	s.clear()
	s.target = nil
	s.mu.Unlock()

	s.events.emit(EventDestruct, s)
	s.events.reset()
}

// Destroyed reports whether Destroy was called.
func (s *ElementSource) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.destroyed()
}

func (s *ElementSource) destroyed() bool { return s.target == nil }
