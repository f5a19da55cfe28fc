// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOgg serves interleaved values, at most one page of frames per read.
type fakeOgg struct {
	rate, channels int
	data           []float32
	page           int
	err            error
}

func (f *fakeOgg) SampleRate() int { return f.rate }
func (f *fakeOgg) Channels() int   { return f.channels }

func (f *fakeOgg) Read(dst []float32) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}

	n := min(len(dst), len(f.data), f.page*f.channels)
	n -= n % f.channels
	copy(dst, f.data[:n])
	f.data = f.data[n:]

	return n, nil
}

func TestDecoder_RejectsNonVorbis(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("OggS but not really a vorbis stream")} {
		_, err := Decoder{}.Decode(bytes.NewReader(data))
		require.ErrorIs(t, err, ErrNotVorbis)
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	values := []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3, 0.4, -0.4, 0.5, -0.5}
	s := &source{
		dec:        &fakeOgg{rate: 48000, channels: 2, data: values, page: 2, err: io.EOF},
		sampleRate: 48000,
		channels:   2,
	}

	var got []float32
	// odd length: only whole frames are requested
	dst := make([]float32, 7)

	for {
		n, err := s.ReadSamples(dst)
		assert.Zero(t, n%2)
		got = append(got, dst[:n]...)

		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, values, got)
}

func TestSource_ShortDst(t *testing.T) {
	t.Parallel()

	s := &source{dec: &fakeOgg{rate: 8000, channels: 2, data: []float32{1, 1}, page: 1}, channels: 2}

	n, err := s.ReadSamples(make([]float32, 1))
	assert.Zero(t, n)
	require.NoError(t, err)
}

func TestSource_PropagatesErrors(t *testing.T) {
	t.Parallel()

	broken := errors.New("corrupt packet")
	s := &source{dec: &fakeOgg{rate: 8000, channels: 1, err: broken}, channels: 1}

	_, err := s.ReadSamples(make([]float32, 16))
	require.ErrorIs(t, err, broken)
}
