// SPDX-License-Identifier: EPL-2.0

package formats_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audchain/audio"
	"github.com/ik5/audchain/formats"
	"github.com/ik5/audchain/internal/audiotest"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header []byte
		want   string
	}{
		{"wav", audiotest.WAV(8000, 1, 10), formats.WAV},
		{"aiff", []byte("FORM\x00\x00\x00\x10AIFF"), formats.AIFF},
		{"aifc", []byte("FORM\x00\x00\x00\x10AIFC"), formats.AIFF},
		{"ogg", []byte("OggS\x00\x02"), formats.Ogg},
		{"mp3 with id3", []byte("ID3\x04\x00"), formats.MP3},
		{"mp3 frame sync", []byte{0xFF, 0xFB, 0x90, 0x64}, formats.MP3},
		{"riff but not wave", []byte("RIFF\x00\x00\x00\x00AVI "), ""},
		{"short", []byte("RI"), ""},
		{"empty", nil, ""},
		{"text", []byte("hello world!"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formats.Detect(tt.header))
		})
	}
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{formats.AIFF, formats.MP3, formats.Ogg, formats.WAV}, formats.NewRegistry().Formats())
}

func TestBufferDecoder_SameFormat(t *testing.T) {
	t.Parallel()

	dec := formats.NewBufferDecoder(8000, 2)

	buf, err := dec.Decode(context.Background(), audiotest.WAV(8000, 2, 4000))
	require.NoError(t, err)

	assert.Equal(t, 8000, buf.SampleRate())
	assert.Equal(t, 2, buf.Channels())
	assert.Equal(t, 4000, buf.Frames())
	assert.InDelta(t, 0.5, buf.Duration(), 1e-9)
}

func TestBufferDecoder_Prefix(t *testing.T) {
	t.Parallel()

	data := audiotest.WAV(8000, 1, 80000)
	dec := formats.NewBufferDecoder(8000, 1)

	buf, err := dec.Decode(context.Background(), data[:100000])
	require.NoError(t, err)
	assert.Equal(t, audiotest.Frames(1, 100000), buf.Frames())

	full, err := dec.Decode(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 80000, full.Frames())
}

func TestBufferDecoder_DownmixesForMonoEngine(t *testing.T) {
	t.Parallel()

	data := audiotest.WAVFunc(8000, 2, 100, func(_, ch int) float32 {
		if ch == 0 {
			return 0.5
		}
		return -0.25
	})

	buf, err := formats.NewBufferDecoder(8000, 1).Decode(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, buf.Channels())
	for _, v := range buf.Data() {
		assert.InDelta(t, 0.125, v, 1e-3)
	}

	// stereo engines keep the file's channels
	buf, err = formats.NewBufferDecoder(8000, 2).Decode(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Channels())
}

func TestBufferDecoder_Resamples(t *testing.T) {
	t.Parallel()

	buf, err := formats.NewBufferDecoder(16000, 1).Decode(context.Background(), audiotest.WAV(8000, 1, 8000))
	require.NoError(t, err)

	assert.Equal(t, 16000, buf.SampleRate())
	assert.InDelta(t, 1.0, buf.Duration(), 0.01)
}

func TestBufferDecoder_Errors(t *testing.T) {
	t.Parallel()

	dec := formats.NewBufferDecoder(8000, 1)

	_, err := dec.Decode(context.Background(), []byte("definitely not audio"))
	require.ErrorIs(t, err, formats.ErrUnknownFormat)

	_, err = formats.NewBufferDecoderWithRegistry(audio.NewRegistry(), 8000, 1).
		Decode(context.Background(), audiotest.WAV(8000, 1, 10))
	require.ErrorIs(t, err, formats.ErrNoDecoder)

	_, err = dec.Decode(context.Background(), audiotest.WAV(8000, 1, 0))
	require.ErrorIs(t, err, audio.ErrEmptyBuffer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = dec.Decode(ctx, audiotest.WAV(8000, 1, 10))
	require.ErrorIs(t, err, context.Canceled)
}

func ExampleBufferDecoder() {
	dec := formats.NewBufferDecoder(8000, 1)
	data := audiotest.WAV(16000, 2, 32000)

	fmt.Println(formats.Detect(data))

	// the first 100000 bytes are enough to start playing
	prefix, err := dec.Decode(context.Background(), data[:100000])
	if err != nil {
		fmt.Println(err)
		return
	}

	full, err := dec.Decode(context.Background(), data)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("prefix %.2fs, full %.2fs, %d channel\n", prefix.Duration(), full.Duration(), full.Channels())

	// Output:
	// wav
	// prefix 1.56s, full 2.00s, 1 channel
}
