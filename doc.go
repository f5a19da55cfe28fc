// SPDX-License-Identifier: EPL-2.0

// Package audchain plays interchangeable audio sources through an editable
// chain of processing nodes.
//
// A Player owns one graph context. Its signal path is fixed at both ends:
//
//	source → input gain → [chain nodes…] → destination
//
// Nodes are added to and removed from the chain at any position while audio
// is playing; only the edges next to the change are rewired. The source end
// is a source.Router, which picks a BufferSource for bytes, streams, readers
// and URLs, and an ElementSource for media elements.
//
// # Quick Start
//
//	p, _ := audchain.New(audchain.WithGraph(graph.WithSampleRate(48000)))
//	defer p.Close()
//
//	_ = p.Load(ctx, "https://example.com/track.mp3")
//	_, _ = p.Chain().Push(graph.NewGain(p.Context(), 0.5))
//	p.Play()
//
//	buf := make([]float32, 4096)
//	p.Render(buf) // interleaved, p.Context().Channels() per frame
//
// # Formats
//
// Bytes are decoded by the formats package:
//   - WAV (8/16/24/32-bit PCM) via formats/wav and go-audio/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF via formats/aiff
//
// Set AUDCHAIN_DEBUG=1 to get debug logs from every component.
package audchain
