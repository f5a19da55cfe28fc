// SPDX-License-Identifier: EPL-2.0

package source_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audchain/graph"
	"github.com/ik5/audchain/internal/audiotest"
	"github.com/ik5/audchain/source"
)

func newBufferSource(t *testing.T, ctx *graph.Context, opts ...source.Option) *source.BufferSource {
	t.Helper()

	opts = append([]source.Option{source.WithChunkDelay(0)}, opts...)
	src, err := source.NewBufferSource(ctx.Destination(), opts...)
	require.NoError(t, err)
	t.Cleanup(src.Destroy)

	return src
}

func TestSupportsBuffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
		want bool
	}{
		{"bytes", []byte{1, 2}, true},
		{"stream", audiotest.NewChunkStream(), true},
		{"reader", bytes.NewReader(nil), true},
		{"url", "https://example.com/a.mp3", true},
		{"path", "/tmp/a.wav", true},
		{"data uri", "data:audio/wav;base64,AAAA", false},
		{"element", audiotest.NewMockElement(rate, 1, 1, 0), false},
		{"number", 42, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, source.SupportsBuffer(tt.raw))
		})
	}
}

func TestBufferSource_PrefixThenFullDecode(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	dec := audiotest.NewBlockingDecoder(decoder())
	src := newBufferSource(t, ctx, source.WithDecoder(dec), source.WithPrefixSize(100000))

	data := audiotest.WAVSize(rate, 1, 250000)
	require.Len(t, data, 250000)

	rec := &recorder{}
	src.Subscribe(rec.listen)
	src.Play()

	errc := make(chan error, 1)
	go func() { errc <- src.SetSource(context.Background(), data) }()

	assert.Equal(t, 100000, <-dec.Started)
	dec.Release(0)

	// the full decode only begins once the prefix is installed
	assert.Equal(t, 250000, <-dec.Started)

	prefix := float64(audiotest.Frames(1, 100000)) / rate
	assert.InDelta(t, prefix, src.Duration(), 1e-9)
	assert.False(t, src.Paused())
	assert.Zero(t, src.CurrentTime())

	render(ctx, 0.5)
	assert.InDelta(t, 0.5, src.CurrentTime(), 1e-9)

	dec.Release(1)
	require.NoError(t, <-errc)

	full := float64(audiotest.Frames(1, 250000)) / rate
	assert.InDelta(t, full, src.Duration(), 1e-9)
	assert.InDelta(t, 0.5, src.CurrentTime(), 1e-9)
	assert.False(t, src.Paused())

	render(ctx, 0.25)
	assert.InDelta(t, 0.75, src.CurrentTime(), 1e-9)

	assert.Equal(t, 2, rec.count(source.EventDurationChange))
	assert.Equal(t, 2, rec.count(source.EventChange))
	assert.Equal(t, 1, rec.count(source.EventLoad))
}

func TestBufferSource_SmallBufferDecodesOnce(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	dec := audiotest.NewBlockingDecoder(decoder())
	src := newBufferSource(t, ctx, source.WithDecoder(dec))

	data := audiotest.WAV(rate, 1, rate)

	errc := make(chan error, 1)
	go func() { errc <- src.SetSource(context.Background(), data) }()

	assert.Equal(t, len(data), <-dec.Started)
	dec.Release(0)
	require.NoError(t, <-errc)

	assert.Empty(t, dec.Started)
	assert.InDelta(t, 1.0, src.Duration(), 1e-9)
}

func TestBufferSource_LatestLoadWins(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	dec := audiotest.NewBlockingDecoder(decoder())
	src := newBufferSource(t, ctx, source.WithDecoder(dec))

	rec := &recorder{}
	src.Subscribe(rec.listen)

	first := audiotest.WAV(rate, 1, rate)
	second := audiotest.WAV(rate, 1, 2*rate)

	errFirst := make(chan error, 1)
	go func() { errFirst <- src.SetSource(context.Background(), first) }()
	assert.Equal(t, len(first), <-dec.Started)

	errSecond := make(chan error, 1)
	go func() { errSecond <- src.SetSource(context.Background(), second) }()
	assert.Equal(t, len(second), <-dec.Started)

	dec.Release(1)
	require.NoError(t, <-errSecond)
	assert.InDelta(t, 2.0, src.Duration(), 1e-9)

	// the older decode resolves last and must change nothing
	dec.Release(0)
	require.NoError(t, <-errFirst)
	assert.InDelta(t, 2.0, src.Duration(), 1e-9)

	assert.Equal(t, 2, rec.count(source.EventLoadStart))
	assert.Equal(t, 1, rec.count(source.EventChange))
	assert.Equal(t, 1, rec.count(source.EventLoad))
}

func TestBufferSource_PausePlayKeepsPosition(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src := newBufferSource(t, ctx)
	require.NoError(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, 2*rate)))

	rec := &recorder{}
	src.Subscribe(rec.listen)

	src.Play()
	render(ctx, 0.25)
	assert.InDelta(t, 0.25, src.CurrentTime(), 1e-9)

	src.Pause()
	src.Play()
	assert.InDelta(t, 0.25, src.CurrentTime(), 1e-9)

	src.Pause()
	src.Pause()
	render(ctx, 0.5)
	assert.InDelta(t, 0.25, src.CurrentTime(), 1e-9)

	src.Play()
	src.Play()
	render(ctx, 0.1)
	assert.InDelta(t, 0.35, src.CurrentTime(), 1e-9)

	assert.Equal(t, []source.Event{
		source.EventPlay, source.EventPause, source.EventPlay, source.EventPause, source.EventPlay,
	}, rec.all())
}

func TestBufferSource_SeekWhilePaused(t *testing.T) {
	t.Parallel()

	data := audiotest.WAV(rate, 1, 2*rate)
	want := decode(t, data).Data()

	tests := []struct {
		name  string
		seek  float64
		frame int
	}{
		{"inside", 0.75, 6000},
		{"past the end wraps", 2.25, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newContext()
			src := newBufferSource(t, ctx)
			require.NoError(t, src.SetSource(context.Background(), data))

			src.SetCurrentTime(tt.seek)
			assert.True(t, src.Paused())

			src.Play()
			assert.InDelta(t, float64(tt.frame)/rate, src.CurrentTime(), 1e-9)

			out := render(ctx, 0.01)
			assert.InDeltaSlice(t, want[tt.frame:tt.frame+len(out)], out, 1e-6)
		})
	}
}

func TestBufferSource_SeekWhilePlaying(t *testing.T) {
	t.Parallel()

	data := audiotest.WAV(rate, 1, 2*rate)
	want := decode(t, data).Data()

	ctx := newContext()
	src := newBufferSource(t, ctx)
	require.NoError(t, src.SetSource(context.Background(), data))

	rec := &recorder{}
	src.Subscribe(rec.listen)

	src.Play()
	render(ctx, 0.2)
	src.SetCurrentTime(1.5)
	assert.False(t, src.Paused())

	out := render(ctx, 0.01)
	assert.InDeltaSlice(t, want[12000:12000+len(out)], out, 1e-6)
	assert.InDelta(t, 1.51, src.CurrentTime(), 1e-9)
	assert.Zero(t, rec.count(source.EventEnd))
}

func TestBufferSource_NaturalEnd(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src := newBufferSource(t, ctx)
	require.NoError(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, rate/10)))

	rec := &recorder{}
	src.Subscribe(rec.listen)

	src.Play()
	render(ctx, 0.05)
	assert.False(t, src.Paused())

	render(ctx, 0.1)
	assert.True(t, src.Paused())
	assert.Zero(t, src.CurrentTime())
	assert.Equal(t, 1, rec.count(source.EventEnd))

	// playing again starts over
	src.Play()
	render(ctx, 0.02)
	assert.InDelta(t, 0.02, src.CurrentTime(), 1e-9)
}

func TestBufferSource_PlayBeforeLoad(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src := newBufferSource(t, ctx)

	src.Play()
	assert.False(t, src.Paused())
	assert.Zero(t, src.Duration())
	assert.Zero(t, src.CurrentTime())

	require.NoError(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, rate)))
	assert.False(t, src.Paused())

	render(ctx, 0.1)
	assert.InDelta(t, 0.1, src.CurrentTime(), 1e-9)
}

func TestBufferSource_NewLoadKeepsPosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		frames   int
		position float64
	}{
		{"longer", 2 * rate, 0.4},
		{"wraps into shorter", rate / 4, 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := newContext()
			src := newBufferSource(t, ctx)
			require.NoError(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, rate)))

			src.Play()
			render(ctx, 0.4)

			require.NoError(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, tt.frames)))
			assert.False(t, src.Paused())
			assert.InDelta(t, float64(tt.frames)/rate, src.Duration(), 1e-9)
			assert.InDelta(t, tt.position, src.CurrentTime(), 1e-9)

			render(ctx, 0.05)
			assert.InDelta(t, tt.position+0.05, src.CurrentTime(), 1e-9)
		})
	}
}

func TestBufferSource_NewLoadWhilePausedKeepsPosition(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src := newBufferSource(t, ctx)
	require.NoError(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, rate)))

	src.Play()
	render(ctx, 0.3)
	src.Pause()

	require.NoError(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, 2*rate)))
	assert.True(t, src.Paused())
	assert.InDelta(t, 0.3, src.CurrentTime(), 1e-9)
}

func TestBufferSource_DecodeFailureKeepsState(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src := newBufferSource(t, ctx)
	require.NoError(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, rate)))

	src.Play()
	render(ctx, 0.3)

	err := src.SetSource(context.Background(), []byte("definitely not audio"))
	require.ErrorIs(t, err, source.ErrDecode)

	assert.False(t, src.Paused())
	assert.InDelta(t, 1.0, src.Duration(), 1e-9)
	assert.InDelta(t, 0.3, src.CurrentTime(), 1e-9)
}

func TestBufferSource_UnsupportedInput(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src := newBufferSource(t, ctx)

	assert.ErrorIs(t, src.SetSource(context.Background(), 42), source.ErrUnsupportedSource)
	assert.ErrorIs(t, src.SetSource(context.Background(), "data:audio/wav;base64,"), source.ErrUnsupportedSource)
	assert.ErrorIs(t, src.SetSource(context.Background(), "gopher://host/a.wav"), source.ErrUnsupportedLocator)
}

func TestBufferSource_Stream(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src := newBufferSource(t, ctx)

	rec := &recorder{}
	src.Subscribe(rec.listen)

	data := audiotest.WAV(rate, 1, rate)
	// the first chunk is too short to decode and is skipped
	stream := audiotest.NewChunkStream(data[:20], data[20:8000], data[8000:12000], data[12000:])

	require.NoError(t, src.SetSource(context.Background(), stream))

	assert.InDelta(t, 1.0, src.Duration(), 1e-9)
	assert.Equal(t, 3, rec.count(source.EventDurationChange))
	assert.Equal(t, 1, rec.count(source.EventLoad))
	assert.False(t, stream.Cancelled())
}

func TestBufferSource_StreamUpgradeKeepsPosition(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	dec := audiotest.NewBlockingDecoder(decoder())
	src := newBufferSource(t, ctx, source.WithDecoder(dec))

	data := audiotest.WAV(rate, 1, rate)
	stream := audiotest.NewChunkStream(data[:8044], data[8044:])

	src.Play()

	errc := make(chan error, 1)
	go func() { errc <- src.SetSource(context.Background(), stream) }()

	<-dec.Started
	dec.Release(0)
	<-dec.Started

	assert.InDelta(t, 0.5, src.Duration(), 1e-9)
	render(ctx, 0.3)

	dec.Release(1)
	require.NoError(t, <-errc)

	assert.InDelta(t, 1.0, src.Duration(), 1e-9)
	assert.InDelta(t, 0.3, src.CurrentTime(), 1e-9)
	assert.False(t, src.Paused())
}

func TestBufferSource_StaleStreamIsCancelled(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	dec := audiotest.NewBlockingDecoder(decoder())
	src := newBufferSource(t, ctx, source.WithDecoder(dec))

	data := audiotest.WAV(rate, 1, rate)
	stream := audiotest.NewChunkStream(audiotest.Split(data, 4000)...)

	errStream := make(chan error, 1)
	go func() { errStream <- src.SetSource(context.Background(), stream) }()
	<-dec.Started

	errBytes := make(chan error, 1)
	go func() { errBytes <- src.SetSource(context.Background(), audiotest.WAV(rate, 1, 3*rate)) }()
	<-dec.Started

	dec.Release(1)
	require.NoError(t, <-errBytes)

	dec.Release(0)
	require.NoError(t, <-errStream)

	assert.True(t, stream.Cancelled())
	assert.InDelta(t, 3.0, src.Duration(), 1e-9)
}

func TestBufferSource_StreamDecodeFailure(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src := newBufferSource(t, ctx)

	stream := audiotest.NewChunkStream([]byte("not"), []byte(" audio"))
	assert.ErrorIs(t, src.SetSource(context.Background(), stream), source.ErrDecode)
	assert.Zero(t, src.Duration())
}

func TestBufferSource_Reader(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src := newBufferSource(t, ctx, source.WithChunkSize(3000))

	require.NoError(t, src.SetSource(context.Background(), bytes.NewReader(audiotest.WAV(rate, 1, rate))))
	assert.InDelta(t, 1.0, src.Duration(), 1e-9)
}

func TestBufferSource_Locators(t *testing.T) {
	t.Parallel()

	data := audiotest.WAV(rate, 1, rate/2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tone.wav" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	ctx := newContext()
	src := newBufferSource(t, ctx, source.WithResolver(&source.DefaultResolver{Client: srv.Client()}))

	require.NoError(t, src.SetSource(context.Background(), srv.URL+"/tone.wav"))
	assert.InDelta(t, 0.5, src.Duration(), 1e-9)

	require.NoError(t, src.SetSource(context.Background(), path))
	assert.InDelta(t, 0.5, src.Duration(), 1e-9)

	require.NoError(t, src.SetSource(context.Background(), "file://"+path))
	assert.InDelta(t, 0.5, src.Duration(), 1e-9)

	assert.Error(t, src.SetSource(context.Background(), srv.URL+"/missing.wav"))
}

func TestBufferSource_Volume(t *testing.T) {
	t.Parallel()

	data := audiotest.WAV(rate, 1, rate)
	want := decode(t, data).Data()

	ctx := newContext()
	src := newBufferSource(t, ctx)
	require.NoError(t, src.SetSource(context.Background(), data))

	src.SetVolume(0.5)
	assert.InDelta(t, 0.5, src.Volume(), 1e-9)

	src.Play()
	out := render(ctx, 0.01)
	for i, v := range out {
		assert.InDelta(t, want[i]*0.5, v, 1e-6, "sample %d", i)
	}
}

func TestBufferSource_ChangeTargetNode(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	first := graph.NewGain(ctx, 1)
	second := graph.NewGain(ctx, 1)

	src, err := source.NewBufferSource(first)
	require.NoError(t, err)
	defer src.Destroy()

	require.True(t, ctx.Connected(src.Output(), first))

	require.NoError(t, src.ChangeTargetNode(second))
	assert.False(t, ctx.Connected(src.Output(), first))
	assert.True(t, ctx.Connected(src.Output(), second))

	foreign := graph.NewGain(newContext(), 1)
	assert.ErrorIs(t, src.ChangeTargetNode(foreign), graph.ErrForeignNode)
	assert.True(t, ctx.Connected(src.Output(), second))
}

func TestBufferSource_Destroy(t *testing.T) {
	t.Parallel()

	ctx := newContext()
	src, err := source.NewBufferSource(ctx.Destination())
	require.NoError(t, err)
	require.NoError(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, rate)))

	rec := &recorder{}
	src.Subscribe(rec.listen)
	src.Play()

	src.Destroy()
	src.Destroy()

	assert.True(t, src.Destroyed())
	assert.True(t, src.Paused())
	assert.Zero(t, src.Duration())
	assert.Empty(t, ctx.Edges())
	assert.Equal(t, 1, rec.count(source.EventDestruct))

	assert.ErrorIs(t, src.SetSource(context.Background(), audiotest.WAV(rate, 1, rate)), source.ErrDestroyed)
	assert.ErrorIs(t, src.ChangeTargetNode(ctx.Destination()), source.ErrDestroyed)

	src.Play()
	assert.True(t, src.Paused())
}

func TestBufferSource_NoTarget(t *testing.T) {
	t.Parallel()

	_, err := source.NewBufferSource(nil)
	assert.ErrorIs(t, err, source.ErrNoTarget)
}
