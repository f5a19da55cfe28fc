// SPDX-License-Identifier: EPL-2.0

// Package formats ties the per-format decoders together.
//
// Detect sniffs the container from the first bytes of a payload, NewRegistry
// returns an audio.Registry with every decoder in this module, and
// BufferDecoder turns a complete or partial byte payload into an
// *audio.Buffer at the engine's sample rate:
//
//	dec := formats.NewBufferDecoder(48000, 2)
//	buf, err := dec.Decode(ctx, payload)
//
// BufferDecoder is what source.BufferSource calls for every progressive
// decode attempt.
package formats
