// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides generated audio, fixtures and fakes for tests.
package audiotest

import (
	"io"
	"math"
)

// MockSource generates frames from a waveform function. It satisfies
// audio.Source.
type MockSource struct {
	sampleRate int
	channels   int
	frames     int
	generated  int
	waveform   func(frame, channel int) float32
}

// NewMockSource returns a source of frames frames computed by waveform.
func NewMockSource(sampleRate, channels, frames int, waveform func(frame, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		waveform:   waveform,
	}
}

func NewSineSource(sampleRate, channels, frames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		return Sine(frame, sampleRate, frequency)
	})
}

func NewConstantSource(sampleRate, channels, frames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(int, int) float32 {
		return value
	})
}

// Sine is the value of a unit sine of frequency Hz at frame.
func Sine(frame, sampleRate int, frequency float64) float32 {
	t := float64(frame) / float64(sampleRate)
	return float32(math.Sin(2 * math.Pi * frequency * t))
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Close() error    { return nil }

// Reset rewinds to the first frame.
func (m *MockSource) Reset() { m.generated = 0 }

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.generated >= m.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/m.channels, m.frames-m.generated)

	for f := range n {
		for ch := range m.channels {
			dst[f*m.channels+ch] = m.waveform(m.generated+f, ch)
		}
	}

	m.generated += n

	if m.generated >= m.frames {
		return n * m.channels, io.EOF
	}

	return n * m.channels, nil
}
