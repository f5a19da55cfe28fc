// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"bytes"

	"github.com/ik5/audchain/audio"
	"github.com/ik5/audchain/formats/aiff"
	"github.com/ik5/audchain/formats/mp3"
	"github.com/ik5/audchain/formats/vorbis"
	"github.com/ik5/audchain/formats/wav"
)

// Format keys used by Detect and NewRegistry.
const (
	WAV  = "wav"
	AIFF = "aiff"
	Ogg  = "ogg"
	MP3  = "mp3"
)

// Detect returns the format key for a payload by looking at its magic bytes,
// or "" when nothing matches.
func Detect(header []byte) string {
	switch {
	case len(header) >= 12 && bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return WAV
	case len(header) >= 12 && bytes.Equal(header[:4], []byte("FORM")) &&
		(bytes.Equal(header[8:12], []byte("AIFF")) || bytes.Equal(header[8:12], []byte("AIFC"))):
		return AIFF
	case len(header) >= 4 && bytes.Equal(header[:4], []byte("OggS")):
		return Ogg
	case len(header) >= 3 && bytes.Equal(header[:3], []byte("ID3")):
		return MP3
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return MP3
	}

	return ""
}

// NewRegistry returns a registry holding every decoder of this module.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register(WAV, wav.Decoder{})
	reg.Register(AIFF, aiff.Decoder{})
	reg.Register(Ogg, vorbis.Decoder{})
	reg.Register(MP3, mp3.Decoder{})

	return reg
}
