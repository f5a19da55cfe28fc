// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV decoding and 16-bit PCM WAV writing.
//
// Canonical files (44-byte header, 16-bit PCM) are streamed directly from the
// reader, so a truncated prefix of such a file still decodes up to the point
// where it was cut. This is what progressive playback relies on. Other RIFF
// layouts and 8/24/32-bit integer PCM go through github.com/go-audio/wav.
//
//	src, err := wav.Decoder{}.Decode(file)
//	if errors.Is(err, wav.ErrNotWavFile) {
//	    // not RIFF/WAVE
//	}
//
// WritePCM16 emits the canonical layout:
//
//	err := wav.WritePCM16(out, 44100, 2, interleaved)
package wav
