// SPDX-License-Identifier: EPL-2.0

package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ik5/audchain/graph"
)

// Variant names a source implementation the router can create.
type Variant string

const (
	VariantBuffer  Variant = "buffer"
	VariantElement Variant = "element"
)

type variant struct {
	name     Variant
	supports func(raw any) bool
	create   func(target graph.Node, opts ...Option) (Source, error)
}

// variants in priority order. Strings match both; only data: URIs fall
// through to elements.
var variants = []variant{
	{
		name:     VariantBuffer,
		supports: SupportsBuffer,
		create: func(t graph.Node, opts ...Option) (Source, error) {
			return NewBufferSource(t, opts...)
		},
	},
	{
		name:     VariantElement,
		supports: SupportsElement,
		create: func(t graph.Node, opts ...Option) (Source, error) {
			return NewElementSource(t, opts...)
		},
	},
}

// Router keeps at most one active source and picks its variant from the
// shape of each new input. Events of the active source are re-emitted with
// the router as their source.
type Router struct {
	mu sync.Mutex

	target graph.Node
	opts   []Option
	log    logrus.FieldLogger
	events emitter

	seq    uint64
	active Source
	kind   Variant
	unsub  func()
}

// NewRouter returns a router with no active source. Sources it creates get
// opts and feed target.
func NewRouter(target graph.Node, opts ...Option) (*Router, error) {
	if target == nil {
		return nil, ErrNoTarget
	}

	cfg := newConfig(opts)

	return &Router{
		target: target,
		opts:   opts,
		log:    cfg.log.WithField("component", "router"),
	}, nil
}

// Active returns the current source and its variant, or nil.
func (r *Router) Active() (Source, Variant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active, r.kind
}

func (r *Router) current() Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active
}

// Volume returns the active source volume, or 0.
func (r *Router) Volume() float64 {
	if s := r.current(); s != nil {
		return s.Volume()
	}
	return 0
}

// SetVolume sets the active source volume.
func (r *Router) SetVolume(v float64) {
	if s := r.current(); s != nil {
		s.SetVolume(v)
	}
}

// Duration returns the active source duration, or 0.
func (r *Router) Duration() float64 {
	if s := r.current(); s != nil {
		return s.Duration()
	}
	return 0
}

// CurrentTime returns the active source position, or 0.
func (r *Router) CurrentTime() float64 {
	if s := r.current(); s != nil {
		return s.CurrentTime()
	}
	return 0
}

// SetCurrentTime seeks the active source.
func (r *Router) SetCurrentTime(t float64) {
	if s := r.current(); s != nil {
		s.SetCurrentTime(t)
	}
}

// ChannelCount returns the active source channels, or the engine's.
func (r *Router) ChannelCount() int {
	if s := r.current(); s != nil {
		return s.ChannelCount()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target == nil {
		return 0
	}
	return r.target.Context().Channels()
}

// Paused reports whether the active source is paused. With none it is.
func (r *Router) Paused() bool {
	if s := r.current(); s != nil {
		return s.Paused()
	}
	return true
}

// Play starts the active source.
func (r *Router) Play() {
	if s := r.current(); s != nil {
		s.Play()
	}
}

// Pause pauses the active source.
func (r *Router) Pause() {
	if s := r.current(); s != nil {
		s.Pause()
	}
}

// Subscribe registers fn for events of the router and of its active source.
func (r *Router) Subscribe(fn Listener) func() {
	return r.events.subscribe(fn)
}

// SetSource hands raw to the active source when it is of the matching
// variant. Otherwise the active source is destroyed and a new one of the
// matching variant is created and loaded; it becomes active only if loading
// succeeds, and it starts playing if the old one was playing.
func (r *Router) SetSource(ctx context.Context, raw any) error {
	v, ok := match(raw)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedSource, raw)
	}

	r.mu.Lock()

	if r.target == nil {
		r.mu.Unlock()
		return ErrDestroyed
	}

	r.seq++
	seq := r.seq

	if r.active != nil && r.kind == v.name {
		src := r.active
		r.mu.Unlock()

		r.log.WithField("variant", v.name).Debug("reusing active source")

		return src.SetSource(ctx, raw)
	}

	playing := r.active != nil && !r.active.Paused()
	r.detach()

	src, err := v.create(r.target, r.opts...)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	unsub := src.Subscribe(r.relay)
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"variant": v.name, "playing": playing}).Info("switching source variant")

	if playing {
		src.Play()
	}

	err = src.SetSource(ctx, raw)

	r.mu.Lock()

	if err != nil || r.seq != seq || r.target == nil {
		// failed, or a newer input or teardown won
		r.mu.Unlock()
		unsub()
		src.Destroy()
		return err
	}

	r.active = src
	r.kind = v.name
	r.unsub = unsub
	r.mu.Unlock()

	// element sources can only start once something is loaded
	if playing && src.Paused() {
		src.Play()
	}

	return nil
}

func match(raw any) (variant, bool) {
	for _, v := range variants {
		if v.supports(raw) {
			return v, true
		}
	}
	return variant{}, false
}

func (r *Router) relay(ev Event, _ Source) {
	if ev == EventDestruct {
		// the router reports its own teardown only
		return
	}
	r.events.emit(ev, r)
}

// detach unsubscribes from and destroys the active source. Callers hold r.mu.
func (r *Router) detach() {
	if r.active == nil {
		return
	}

	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}

	r.active.Destroy()
	r.active = nil
	r.kind = ""
}

// ChangeTargetNode moves the active source and every later one to target.
func (r *Router) ChangeTargetNode(target graph.Node) error {
	if target == nil {
		return ErrNoTarget
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target == nil {
		return ErrDestroyed
	}

	if r.active != nil {
		if err := r.active.ChangeTargetNode(target); err != nil {
			return err
		}
	}

	r.target = target

	return nil
}

// Destroy tears down the active source and releases the target.
func (r *Router) Destroy() {
	r.mu.Lock()

	if r.target == nil {
		r.mu.Unlock()
		return
	}

	r.seq++
	r.detach()
	r.target = nil
	r.mu.Unlock()

	r.events.emit(EventDestruct, r)
	r.events.reset()
}

// Destroyed reports whether Destroy was called.
func (r *Router) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.target == nil
}
