// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"math"

	"github.com/ik5/audchain/audio"
)

// StopReason tells an ended callback why playback stopped. Only StopEnded
// means the media actually ran out.
type StopReason int

const (
	StopEnded StopReason = iota
	StopPaused
	StopSeek
	StopReplaced
	StopDestroyed
)

func (r StopReason) String() string {
	switch r {
	case StopEnded:
		return "ended"
	case StopPaused:
		return "paused"
	case StopSeek:
		return "seek"
	case StopReplaced:
		return "replaced"
	case StopDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// BufferPlayer plays a decoded buffer once, starting at an offset. It cannot
// be repositioned while running; seeking means stopping it and starting a
// new player.
type BufferPlayer struct {
	base
	buf *audio.Buffer

	started    bool
	playing    bool
	startFrame int64
	offset     int64

	onEnded func(StopReason)
}

// NewBufferPlayer binds buf to a new player. The buffer must already be at
// the context's sample rate.
func NewBufferPlayer(c *Context, buf *audio.Buffer) (*BufferPlayer, error) {
	if buf.SampleRate() != c.sampleRate {
		return nil, ErrFormatMismatch
	}

	return &BufferPlayer{base: newBase(c, "player"), buf: buf}, nil
}

func (p *BufferPlayer) Buffer() *audio.Buffer { return p.buf }

// OnEnded sets the callback fired once when playback stops, whatever the
// reason. Natural ends are reported from Render after the context lock is
// released; Stop reports from the calling goroutine.
func (p *BufferPlayer) OnEnded(fn func(StopReason)) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	p.onEnded = fn
}

// Start begins playback at offset seconds into the buffer.
func (p *BufferPlayer) Start(offset float64) error {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	if p.ctx.closed {
		return ErrClosed
	}
	if p.started {
		return ErrAlreadyStarted
	}

	if offset < 0 || math.IsNaN(offset) {
		offset = 0
	}

	p.started = true
	p.playing = true
	p.startFrame = p.ctx.frames
	p.offset = int64(math.Round(offset * float64(p.ctx.sampleRate)))
	p.ctx.players[p] = struct{}{}

	return nil
}

// Stop halts a running player and reports reason to the ended callback.
// Stopping a player that is not running does nothing.
func (p *BufferPlayer) Stop(reason StopReason) {
	p.ctx.mu.Lock()

	if !p.playing {
		p.ctx.mu.Unlock()
		return
	}

	p.playing = false
	delete(p.ctx.players, p)
	p.ctx.mu.Unlock()

	p.fire(reason)
}

func (p *BufferPlayer) Playing() bool {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	return p.playing
}

// Position returns the playhead in seconds within the buffer.
func (p *BufferPlayer) Position() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()

	if !p.started {
		return 0
	}

	pos := min(p.position(p.ctx.frames), int64(p.buf.Frames()))

	return float64(pos) / float64(p.ctx.sampleRate)
}

func (p *BufferPlayer) position(now int64) int64 {
	return p.offset + now - p.startFrame
}

func (p *BufferPlayer) fire(reason StopReason) {
	p.ctx.mu.Lock()
	fn := p.onEnded
	p.ctx.mu.Unlock()

	if fn != nil {
		fn(reason)
	}
}

func (p *BufferPlayer) render(pass *pass, _, out []float32) {
	if !p.playing {
		return
	}

	ch := p.ctx.channels
	pos := p.position(p.ctx.frames)
	total := int64(p.buf.Frames())

	for k := range pass.frames {
		idx := pos + int64(k)
		if idx >= total {
			break
		}
		p.buf.Frame(int(idx), out[k*ch:(k+1)*ch])
	}
}
