// SPDX-License-Identifier: EPL-2.0

package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/ik5/audchain/audio"
	"github.com/ik5/audchain/formats"
	"github.com/ik5/audchain/graph"
)

// SupportsBuffer reports whether raw can be loaded by a BufferSource: a byte
// slice, a Stream, an io.Reader or a locator string other than a data: URI.
func SupportsBuffer(raw any) bool {
	switch v := raw.(type) {
	case []byte, Stream, io.Reader:
		return true
	case string:
		return !strings.HasPrefix(v, "data:")
	default:
		return false
	}
}

// BufferSource decodes its input into memory and plays it with a fresh
// graph.BufferPlayer on every play or seek. Fixed buffers are decoded twice,
// a leading prefix first so playback can start early. Streams are decoded
// again after every chunk.
//
// Each SetSource takes a new load ID; a decode that finishes after a newer
// load has started is thrown away, and a superseded stream is cancelled.
type BufferSource struct {
	mu sync.Mutex

	ctx     *graph.Context
	target  graph.Node
	gain    *graph.Gain
	decoder Decoder
	cfg     config
	log     logrus.FieldLogger
	events  emitter

	loadID      uint64
	paused      bool
	startOffset float64
	startTime   float64
	buf         *audio.Buffer
	player      *graph.BufferPlayer
}

// NewBufferSource creates a paused source whose output feeds target.
func NewBufferSource(target graph.Node, opts ...Option) (*BufferSource, error) {
	if target == nil {
		return nil, ErrNoTarget
	}

	cfg := newConfig(opts)
	ctx := target.Context()

	s := &BufferSource{
		ctx:     ctx,
		target:  target,
		gain:    graph.NewGain(ctx, 1),
		decoder: cfg.decoder,
		cfg:     cfg,
		paused:  true,
	}

	if s.decoder == nil {
		s.decoder = formats.NewBufferDecoder(ctx.SampleRate(), ctx.Channels())
	}

	s.log = cfg.log.WithFields(logrus.Fields{"source": xid.New().String(), "variant": "buffer"})

	if err := ctx.Connect(s.gain, target); err != nil {
		return nil, fmt.Errorf("connecting source output: %w", err)
	}

	return s, nil
}

// Output returns the node the source feeds its target through.
func (s *BufferSource) Output() graph.Node { return s.gain }

// Volume returns the gain of the source output.
func (s *BufferSource) Volume() float64 { return s.gain.Gain() }

// SetVolume sets the gain of the source output.
func (s *BufferSource) SetVolume(v float64) { s.gain.SetGain(v) }

// Duration returns the length of the installed buffer in seconds, or 0.
func (s *BufferSource) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.duration()
}

func (s *BufferSource) duration() float64 {
	if s.buf == nil {
		return 0
	}
	return s.buf.Duration()
}

// CurrentTime returns the playback position, wrapped into the duration.
func (s *BufferSource) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.startOffset
	if !s.paused && s.player != nil {
		t += s.ctx.CurrentTime() - s.startTime
	}

	return wrapTime(t, s.duration())
}

// SetCurrentTime seeks. A playing source restarts at the new position.
func (s *BufferSource) SetCurrentTime(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed() {
		return
	}

	s.startOffset = t
	if !s.paused {
		s.start(graph.StopSeek)
	}
}

// ChannelCount returns the channels of the installed buffer, or the engine's.
func (s *BufferSource) ChannelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf != nil {
		return s.buf.Channels()
	}
	return s.ctx.Channels()
}

// Paused reports whether playback is stopped.
func (s *BufferSource) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.paused
}

// Play starts playback from the current position. Before anything is
// decoded it only records that playback should begin with the first buffer.
func (s *BufferSource) Play() {
	s.mu.Lock()

	if s.destroyed() || !s.paused {
		s.mu.Unlock()
		return
	}

	s.start(graph.StopReplaced)
	s.mu.Unlock()

	s.events.emit(EventPlay, s)
}

// Pause stops playback and keeps the position.
func (s *BufferSource) Pause() {
	s.mu.Lock()

	if s.destroyed() || s.paused {
		s.mu.Unlock()
		return
	}

	s.pause(graph.StopPaused)
	s.mu.Unlock()

	s.events.emit(EventPause, s)
}

// Subscribe registers fn for this source's events.
func (s *BufferSource) Subscribe(fn Listener) func() {
	return s.events.subscribe(fn)
}

// SetSource loads a []byte, a Stream, an io.Reader or a locator string.
// Playback state and position are kept: a playing source keeps playing the
// previous audio until the first part of the new one is decoded, then carries
// on from the same position, wrapped to the new duration.
func (s *BufferSource) SetSource(ctx context.Context, raw any) error {
	s.mu.Lock()

	if s.destroyed() {
		s.mu.Unlock()
		return ErrDestroyed
	}

	s.loadID++
	id := s.loadID
	s.mu.Unlock()

	s.log.WithField("load_id", id).Debug("load start")
	s.events.emit(EventLoadStart, s)

	switch v := raw.(type) {
	case []byte:
		return s.loadBuffer(ctx, v, id)
	case Stream:
		return s.loadStream(ctx, v, id)
	case io.Reader:
		return s.loadStream(ctx, NewReaderStream(v, s.cfg.chunkSize), id)
	case string:
		if strings.HasPrefix(v, "data:") {
			return ErrUnsupportedSource
		}

		st, err := s.cfg.resolver.Resolve(ctx, v)
		if err != nil {
			return err
		}

		return s.loadStream(ctx, st, id)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedSource, raw)
	}
}

func (s *BufferSource) loadBuffer(ctx context.Context, data []byte, id uint64) error {
	prefix := data[:min(s.cfg.prefixSize, len(data))]
	whole := len(prefix) == len(data)

	buf, err := s.decoder.Decode(ctx, prefix)
	switch {
	case !s.current(id):
		return nil
	case err != nil && whole:
		return fmt.Errorf("%w: %w", ErrDecode, err)
	case err != nil:
		s.log.WithError(err).WithField("bytes", len(prefix)).Warn("prefix decode failed")
	default:
		if !s.accept(buf, id) {
			return nil
		}
	}

	if !whole {
		buf, err = s.decoder.Decode(ctx, data)
		if !s.current(id) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if !s.accept(buf, id) {
			return nil
		}
	}

	s.loaded(id)

	return nil
}

func (s *BufferSource) loadStream(ctx context.Context, st Stream, id uint64) error {
	var (
		acc      []byte
		accepted bool
		lastErr  error
	)

	for {
		chunk, done, err := st.Read(ctx)
		if err != nil {
			st.Cancel()
			if !s.current(id) {
				return nil
			}
			return err
		}

		if len(chunk) > 0 {
			acc = append(acc, chunk...)

			buf, derr := s.decoder.Decode(ctx, acc)
			if !s.current(id) {
				s.cancel(st, id)
				return nil
			}

			if derr != nil {
				lastErr = derr
				s.log.WithError(derr).WithFields(logrus.Fields{"load_id": id, "bytes": len(acc)}).Warn("partial decode failed")
			} else {
				lastErr = nil
				if !s.accept(buf, id) {
					s.cancel(st, id)
					return nil
				}
				accepted = true
			}
		}

		if done {
			break
		}

		if err := sleep(ctx, s.cfg.chunkDelay); err != nil {
			st.Cancel()
			return err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrDecode, lastErr)
	}
	if !accepted {
		return fmt.Errorf("%w: %w", ErrDecode, audio.ErrEmptyBuffer)
	}

	s.loaded(id)

	return nil
}

func (s *BufferSource) cancel(st Stream, id uint64) {
	if err := st.Cancel(); err != nil {
		s.log.WithError(err).WithField("load_id", id).Debug("stream cancel failed")
	}
	s.log.WithField("load_id", id).Debug("stale stream cancelled")
}

func (s *BufferSource) loaded(id uint64) {
	if !s.current(id) {
		return
	}

	s.log.WithField("load_id", id).Debug("load done")
	s.events.emit(EventLoad, s)
}

func (s *BufferSource) current(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadID == id && !s.destroyed()
}

// accept installs buf if load id is still the newest. The running position
// carries over to the new buffer.
func (s *BufferSource) accept(buf *audio.Buffer, id uint64) bool {
	s.mu.Lock()

	if s.loadID != id || s.destroyed() {
		s.mu.Unlock()
		s.log.WithField("load_id", id).Debug("stale decode dropped")
		return false
	}

	playing := !s.paused
	if playing {
		s.pause(graph.StopReplaced)
	}

	s.buf = buf

	if playing {
		s.start(graph.StopReplaced)
	}

	s.log.WithFields(logrus.Fields{
		"load_id":  id,
		"duration": buf.Duration(),
		"position": s.startOffset,
	}).Debug("buffer installed")

	s.mu.Unlock()

	s.events.emit(EventDurationChange, s)
	s.events.emit(EventChange, s)

	return true
}

// start replaces any running player with a new one at startOffset. Callers
// hold s.mu.
func (s *BufferSource) start(reason graph.StopReason) {
	s.release(reason)

	s.startTime = s.ctx.CurrentTime()
	s.paused = false

	if s.buf == nil {
		return
	}

	p, err := graph.NewBufferPlayer(s.ctx, s.buf)
	if err != nil {
		s.log.WithError(err).Error("creating player")
		return
	}

	p.OnEnded(s.ended(p))

	if err := s.ctx.Connect(p, s.gain); err != nil {
		s.log.WithError(err).Error("connecting player")
		return
	}

	offset := wrapTime(s.startOffset, s.buf.Duration())
	if err := p.Start(offset); err != nil {
		s.log.WithError(err).Error("starting player")
		s.ctx.DisconnectAll(p)
		return
	}

	s.player = p
}

// pause folds the elapsed time into startOffset. Callers hold s.mu.
func (s *BufferSource) pause(reason graph.StopReason) {
	if s.player != nil {
		s.startOffset += s.ctx.CurrentTime() - s.startTime
	}

	s.release(reason)
	s.paused = true
}

// release stops and disconnects the player. Callers hold s.mu.
func (s *BufferSource) release(reason graph.StopReason) {
	if s.player == nil {
		return
	}

	p := s.player
	s.player = nil

	p.Stop(reason)
	if err := s.ctx.DisconnectAll(p); err != nil {
		s.log.WithError(err).Debug("disconnecting player")
	}
}

// ended handles a player's stop. Only a natural end of the current player
// counts; stops caused by pause, seek, reload or teardown are ignored, which
// also means the handler never runs while s.mu is held by the caller of
// BufferPlayer.Stop.
func (s *BufferSource) ended(p *graph.BufferPlayer) func(graph.StopReason) {
	return func(reason graph.StopReason) {
		if reason != graph.StopEnded {
			return
		}

		s.mu.Lock()
		if s.player != p {
			s.mu.Unlock()
			return
		}

		s.release(graph.StopEnded)
		s.paused = true
		s.startOffset = 0
		s.mu.Unlock()

		s.log.Debug("ended")
		s.events.emit(EventEnd, s)
	}
}

// ChangeTargetNode moves the source's output from the current target to
// target. Both must belong to the same graph context.
func (s *BufferSource) ChangeTargetNode(target graph.Node) error {
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

	if err := s.ctx.Disconnect(s.gain, s.target); err != nil {
		return fmt.Errorf("disconnecting old target: %w", err)
	}

	if err := s.ctx.Connect(s.gain, target); err != nil {
		if rerr := s.ctx.Connect(s.gain, s.target); rerr != nil {
			s.log.WithError(rerr).Error("reconnecting old target")
		}
		return fmt.Errorf("connecting new target: %w", err)
	}

	s.target = target

	return nil
}

// Destroy stops playback, drops the buffer and detaches from the target.
// Pending loads finish as stale.
func (s *BufferSource) Destroy() {
	s.mu.Lock()

	if s.destroyed() {
		s.mu.Unlock()
		return
	}

	s.loadID++
	s.release(graph.StopDestroyed)
	s.paused = true
	s.buf = nil

	if err := s.ctx.DisconnectAll(s.gain); err != nil {
		s.log.WithError(err).Debug("disconnecting output")
	}

	s.target = nil
	s.mu.Unlock()

	s.log.Debug("destroyed")
	s.events.emit(EventDestruct, s)
	s.events.reset()
}

// Destroyed reports whether Destroy was called.
func (s *BufferSource) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.destroyed()
}

func (s *BufferSource) destroyed() bool { return s.target == nil }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
