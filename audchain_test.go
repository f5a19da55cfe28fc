// SPDX-License-Identifier: EPL-2.0

package audchain_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ik5/audchain"
	"github.com/ik5/audchain/graph"
	"github.com/ik5/audchain/internal/audiotest"
	"github.com/ik5/audchain/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const rate = 8000

func newPlayer(t *testing.T) *audchain.Player {
	t.Helper()

	p, err := audchain.New(
		audchain.WithGraph(graph.WithSampleRate(rate), graph.WithChannels(1), graph.WithQuantum(80)),
		audchain.WithSource(source.WithChunkDelay(0)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, p.Close()) })

	return p
}

// constant is a one second WAV holding a single level.
func constant(level float32) []byte {
	return audiotest.WAVFunc(rate, 1, rate, func(int, int) float32 { return level })
}

func TestPlayer_SignalPath(t *testing.T) {
	t.Parallel()

	p := newPlayer(t)
	ctx := p.Context()

	assert.True(t, ctx.Connected(p.Input(), ctx.Destination()))
	assert.Zero(t, p.Chain().Len())
	assert.True(t, p.Paused())

	require.NoError(t, p.Load(context.Background(), constant(0.5)))
	p.Play()

	out := make([]float32, 80)
	p.Render(out)
	assert.InDelta(t, 0.5, out[0], 1e-3)
}

func TestPlayer_ChainEditsWhilePlaying(t *testing.T) {
	t.Parallel()

	p := newPlayer(t)
	ctx := p.Context()

	require.NoError(t, p.Load(context.Background(), constant(0.25)))
	p.Play()

	double := graph.NewGain(ctx, 2)
	half := graph.NewGain(ctx, 0.5)
	triple := graph.NewGain(ctx, 3)

	_, err := p.Chain().Push(double)
	require.NoError(t, err)
	_, err = p.Chain().Insert(triple, 0)
	require.NoError(t, err)

	out := make([]float32, 80)
	p.Render(out)
	assert.InDelta(t, 1.5, out[0], 1e-3)

	_, err = p.Chain().Insert(half, 1)
	require.NoError(t, err)
	p.Render(out)
	assert.InDelta(t, 0.75, out[0], 1e-3)

	_, err = p.Chain().Remove(0)
	require.NoError(t, err)
	p.Render(out)
	assert.InDelta(t, 0.25, out[0], 1e-3)

	assert.Equal(t, []graph.Node{half, double}, p.Chain().Nodes())
	assert.False(t, p.Paused())
}

func TestPlayer_InputVolume(t *testing.T) {
	t.Parallel()

	p := newPlayer(t)
	require.NoError(t, p.Load(context.Background(), constant(0.5)))
	p.Play()

	p.SetInputVolume(0.2)
	assert.InDelta(t, 0.2, p.InputVolume(), 1e-9)

	out := make([]float32, 80)
	p.Render(out)
	assert.InDelta(t, 0.1, out[0], 1e-3)
}

func TestPlayer_EventsAndPause(t *testing.T) {
	t.Parallel()

	p := newPlayer(t)

	var events []source.Event
	p.Subscribe(func(ev source.Event, _ source.Source) { events = append(events, ev) })

	require.NoError(t, p.Load(context.Background(), constant(0.5)))
	p.Play()
	p.Render(make([]float32, 800))
	p.Pause()

	out := make([]float32, 80)
	p.Render(out)
	assert.Zero(t, out[0])
	assert.InDelta(t, 0.1, p.Source().CurrentTime(), 1e-9)

	assert.Equal(t, []source.Event{
		source.EventLoadStart, source.EventDurationChange, source.EventChange,
		source.EventLoad, source.EventPlay, source.EventPause,
	}, events)
}

func TestPlayer_RenderPCM16(t *testing.T) {
	t.Parallel()

	p := newPlayer(t)
	require.NoError(t, p.Load(context.Background(), constant(0.5)))
	p.Play()

	pcm := p.RenderPCM16(1000, 300)
	require.Len(t, pcm, 1000)
	assert.InDelta(t, 16383, float64(pcm[0]), 20)
	assert.InDelta(t, 0.125, p.Context().CurrentTime(), 1e-9)
}

func TestPlayer_Close(t *testing.T) {
	t.Parallel()

	p, err := audchain.New()
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background(), audiotest.WAV(44100, 2, 4410)))

	require.NoError(t, p.Close())
	assert.True(t, p.Source().Destroyed())
	assert.Zero(t, p.Render(make([]float32, 64)))
	assert.Empty(t, p.RenderPCM16(100, 0))
}

func Example() {
	p, err := audchain.New(audchain.WithGraph(graph.WithSampleRate(8000), graph.WithChannels(1)))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Close()

	if err := p.Load(context.Background(), audiotest.WAV(8000, 1, 8000)); err != nil {
		fmt.Println(err)
		return
	}

	if _, err := p.Chain().Push(graph.NewGain(p.Context(), 0.5)); err != nil {
		fmt.Println(err)
		return
	}

	p.Play()
	p.Render(make([]float32, 4000))

	fmt.Printf("duration %.1fs, position %.1fs, chain length %d\n",
		p.Source().Duration(), p.Source().CurrentTime(), p.Chain().Len())

	// Output:
	// duration 1.0s, position 0.5s, chain length 1
}
