// SPDX-License-Identifier: EPL-2.0

package source

import (
	"context"
	"math"

	"github.com/ik5/audchain/audio"
	"github.com/ik5/audchain/graph"
)

// Source is the playback capability every variant implements. Positions and
// durations are in seconds.
type Source interface {
	Volume() float64
	SetVolume(v float64)

	Duration() float64
	CurrentTime() float64
	SetCurrentTime(t float64)

	ChannelCount() int
	Paused() bool

	Play()
	Pause()

	// SetSource loads raw and returns once loading has finished or failed.
	// A load superseded by a later call returns nil without touching the
	// source.
	SetSource(ctx context.Context, raw any) error

	// ChangeTargetNode moves the source's output to target.
	ChangeTargetNode(target graph.Node) error

	Subscribe(fn Listener) (cancel func())

	// Destroy releases nodes and buffers. Calling it again is a no-op.
	Destroy()
	Destroyed() bool
}

// Decoder turns a complete or truncated payload into a buffer at the engine's
// format. *formats.BufferDecoder implements it.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*audio.Buffer, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, data []byte) (*audio.Buffer, error)

func (f DecoderFunc) Decode(ctx context.Context, data []byte) (*audio.Buffer, error) {
	return f(ctx, data)
}

// wrapTime folds t into [0, d). A zero duration leaves t as is.
func wrapTime(t, d float64) float64 {
	if d <= 0 || math.IsNaN(t) {
		return t
	}

	t = math.Mod(t, d)
	if t < 0 {
		t += d
	}

	return t
}

var (
	_ Source = (*BufferSource)(nil)
	_ Source = (*ElementSource)(nil)
	_ Source = (*Router)(nil)
)
