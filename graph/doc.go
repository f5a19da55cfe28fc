// SPDX-License-Identifier: EPL-2.0

// Package graph is a small pull-based audio engine.
//
// A Context owns a set of nodes and the directed connections between them.
// Render pulls one quantum at a time from the Destination: every node's
// inputs are summed, the node processes that mix, and each node is processed
// at most once per quantum no matter how many outputs it feeds.
//
// The engine clock, Context.CurrentTime, is the number of rendered frames
// divided by the sample rate. Playback nodes derive their position from it,
// so a BufferPlayer keeps advancing (and eventually ends) even while nothing
// downstream pulls it.
//
//	ctx := graph.NewContext(graph.WithSampleRate(48000))
//	gain := graph.NewGain(ctx, 0.5)
//	_ = ctx.Connect(gain, ctx.Destination())
//
//	out := make([]float32, 1024*ctx.Channels())
//	ctx.Render(out)
package graph
