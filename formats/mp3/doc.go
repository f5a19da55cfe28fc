// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1 Layer III audio using github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces interleaved 16-bit stereo, so the returned
// audio.Source reports two channels regardless of the file's channel mode.
//
//	src, err := mp3.Decoder{}.Decode(bytes.NewReader(data))
package mp3
