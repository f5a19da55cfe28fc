// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ik5/audchain/audio"
)

// BufferDecoder decodes byte payloads into in-memory buffers matching an
// engine's sample rate. Multi-channel input is downmixed only when the
// engine itself is mono; otherwise the buffer keeps its own channel count.
type BufferDecoder struct {
	registry   *audio.Registry
	sampleRate int
	channels   int
}

// NewBufferDecoder returns a decoder using NewRegistry.
func NewBufferDecoder(sampleRate, channels int) *BufferDecoder {
	return NewBufferDecoderWithRegistry(NewRegistry(), sampleRate, channels)
}

// NewBufferDecoderWithRegistry is NewBufferDecoder with decoders from reg.
func NewBufferDecoderWithRegistry(reg *audio.Registry, sampleRate, channels int) *BufferDecoder {
	return &BufferDecoder{
		registry:   reg,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Decode detects the payload format and decodes all of it. A payload cut
// short inside the sample data decodes to whatever complete frames precede
// the cut.
func (d *BufferDecoder) Decode(ctx context.Context, data []byte) (*audio.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format := Detect(data)
	if format == "" {
		return nil, ErrUnknownFormat
	}

	dec, ok := d.registry.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDecoder, format)
	}

	src, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", format, err)
	}

	if d.channels == 1 && src.Channels() > 1 {
		src = audio.NewMonoMixer(src)
	}

	if d.sampleRate > 0 && src.SampleRate() != d.sampleRate {
		src = audio.NewResampler(src, d.sampleRate)
	}

	buf, err := audio.ReadBuffer(&ctxSource{Source: src, ctx: ctx})
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", format, err)
	}

	return buf, nil
}

// ctxSource stops a long decode once its context is done.
type ctxSource struct {
	audio.Source
	ctx context.Context
}

func (s *ctxSource) ReadSamples(dst []float32) (int, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, err
	}

	return s.Source.ReadSamples(dst)
}
