// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"

	"github.com/ik5/audchain/formats/wav"
	"github.com/ik5/audchain/utils"
)

// HeaderSize is the size of the canonical WAV header written by WAV.
const HeaderSize = 44

// WAV returns a 16-bit PCM file holding frames frames of a 440 Hz tone at
// half scale, identical on every channel.
func WAV(sampleRate, channels, frames int) []byte {
	return WAVFunc(sampleRate, channels, frames, func(f, _ int) float32 {
		return Sine(f, sampleRate, 440) / 2
	})
}

// WAVFunc returns a 16-bit PCM file whose samples come from waveform,
// clamped to [-1, 1].
func WAVFunc(sampleRate, channels, frames int, waveform func(frame, channel int) float32) []byte {
	samples := make([]int16, frames*channels)
	for f := range frames {
		for ch := range channels {
			samples[f*channels+ch] = utils.Float32ToInt16(min(max(waveform(f, ch), -1), 1))
		}
	}

	var buf bytes.Buffer
	if err := wav.WritePCM16(&buf, sampleRate, channels, samples); err != nil {
		// bytes.Buffer does not fail
		panic(err)
	}

	return buf.Bytes()
}

// WAVSize returns a WAV file as close to size bytes as whole frames allow.
func WAVSize(sampleRate, channels, size int) []byte {
	return WAV(sampleRate, channels, Frames(channels, size))
}

// Frames returns how many complete 16-bit frames fit in the first n bytes of
// a file written by WAV.
func Frames(channels, n int) int {
	if n <= HeaderSize {
		return 0
	}
	return (n - HeaderSize) / (2 * channels)
}
