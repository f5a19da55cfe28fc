// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"github.com/ik5/audchain/audio"
)

// StreamNode pulls samples from an audio.Source on every quantum. Sources at
// a different rate are resampled. Once the source is exhausted, or fails,
// the node outputs silence.
type StreamNode struct {
	base
	src      audio.Source
	channels int
	tmp      []float32
	done     bool
}

// NewStreamNode returns a node that plays src as it is pulled.
func NewStreamNode(c *Context, src audio.Source) *StreamNode {
	if src.SampleRate() != c.sampleRate {
		src = audio.NewResampler(src, c.sampleRate)
	}

	return &StreamNode{
		base:     newBase(c, "stream"),
		src:      src,
		channels: src.Channels(),
	}
}

// Done reports whether the source has been exhausted.
func (s *StreamNode) Done() bool {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()

	return s.done
}

func (s *StreamNode) render(p *pass, _, out []float32) {
	if s.done || s.channels <= 0 {
		return
	}

	need := p.frames * s.channels
	if cap(s.tmp) < need {
		s.tmp = make([]float32, need)
	}
	s.tmp = s.tmp[:need]
	clear(s.tmp)

	got := 0
	for got < need {
		n, err := s.src.ReadSamples(s.tmp[got:])
		got += n
		if err != nil {
			s.done = true
			break
		}
		if n == 0 {
			// no data this quantum, the rest stays silent
			break
		}
	}

	ch := s.ctx.channels
	for k := range got / s.channels {
		frame := s.tmp[k*s.channels : (k+1)*s.channels]
		for c := range ch {
			out[k*ch+c] = frame[c%s.channels]
		}
	}
}
