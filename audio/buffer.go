// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// Buffer holds fully decoded audio in memory as interleaved float32 samples.
// A Buffer is never modified after construction, so it can be shared between
// playback nodes.
type Buffer struct {
	sampleRate int
	channels   int
	data       []float32
}

// NewBuffer wraps interleaved samples. Trailing samples that do not form a
// complete frame are dropped.
func NewBuffer(sampleRate, channels int, data []float32) (*Buffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, ErrInvalidFormat
	}

	frames := len(data) / channels

	return &Buffer{
		sampleRate: sampleRate,
		channels:   channels,
		data:       data[:frames*channels],
	}, nil
}

func (b *Buffer) SampleRate() int { return b.sampleRate }
func (b *Buffer) Channels() int   { return b.channels }

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int { return len(b.data) / b.channels }

// Duration returns the playback length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.Frames()) / float64(b.sampleRate)
}

// Data returns the interleaved samples. Callers must not modify it.
func (b *Buffer) Data() []float32 { return b.data }

// Frame copies frame i into dst, one value per channel. Channels missing in
// the buffer are filled by repeating the buffer's channels, extra buffer
// channels are ignored.
func (b *Buffer) Frame(i int, dst []float32) {
	base := i * b.channels
	for c := range dst {
		dst[c] = b.data[base+c%b.channels]
	}
}

// Stream returns a Source reading the buffer from the start.
func (b *Buffer) Stream() Source {
	return &bufferStream{buf: b}
}

type bufferStream struct {
	buf *Buffer
	pos int
}

func (s *bufferStream) SampleRate() int { return s.buf.sampleRate }
func (s *bufferStream) Channels() int   { return s.buf.channels }
func (s *bufferStream) BufSize() int    { return 4096 }
func (s *bufferStream) Close() error    { return nil }

func (s *bufferStream) ReadSamples(dst []float32) (int, error) {
	if s.pos >= len(s.buf.data) {
		return 0, io.EOF
	}

	n := copy(dst, s.buf.data[s.pos:])
	s.pos += n

	return n, nil
}

// ReadBuffer drains src into a Buffer and closes it.
//
// A stream that ends with io.ErrUnexpectedEOF after producing samples is
// treated as complete: decoding a truncated prefix of a file is expected to
// stop mid-frame.
func ReadBuffer(src Source) (*Buffer, error) {
	defer src.Close()

	channels := src.Channels()
	if channels <= 0 || src.SampleRate() <= 0 {
		return nil, ErrInvalidFormat
	}

	size := src.BufSize()
	if size <= 0 {
		size = 4096
	}
	// keep reads frame aligned
	size -= size % channels
	if size == 0 {
		size = channels
	}

	var data []float32
	buf := make([]float32, size)

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}

		if err == nil {
			if n == 0 {
				// a source that makes no progress is treated as finished
				break
			}
			continue
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if errors.Is(err, io.ErrUnexpectedEOF) && len(data) > 0 {
			break
		}

		return nil, fmt.Errorf("reading samples: %w", err)
	}

	if len(data) < channels {
		return nil, ErrEmptyBuffer
	}

	return NewBuffer(src.SampleRate(), channels, data)
}
