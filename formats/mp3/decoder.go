// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/audchain/audio"
	"github.com/ik5/audchain/utils"
)

const (
	channels   = 2
	frameBytes = 2 * channels
)

// ErrNotMP3 wraps failures to find a decodable MPEG audio header.
var ErrNotMP3 = errors.New("not an MP3 stream")

// pcmReader is the part of gomp3.Decoder the source reads from.
type pcmReader interface {
	Read([]byte) (int, error)
}

type source struct {
	dec        pcmReader
	sampleRate int

	// buf[:pending] holds bytes of an incomplete frame from the last read
	buf     []byte
	pending int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }

// ReadSamples returns whole stereo frames only. A stream cut inside a frame
// ends with io.ErrUnexpectedEOF after the last complete one.
func (s *source) ReadSamples(dst []float32) (int, error) {
	size := (len(dst) / channels) * frameBytes
	if size == 0 {
		return 0, nil
	}

	if cap(s.buf) < size {
		buf := make([]byte, size)
		copy(buf, s.buf[:s.pending])
		s.buf = buf
	}
	s.buf = s.buf[:size]

	var err error
	n := s.pending

	for n < frameBytes && err == nil {
		var m int
		m, err = s.dec.Read(s.buf[n:])
		if m == 0 && err == nil {
			break
		}
		n += m
	}

	whole := n - n%frameBytes
	for i := range whole / 2 {
		dst[i] = utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(s.buf[2*i:])))
	}

	s.pending = copy(s.buf, s.buf[whole:n])

	if errors.Is(err, io.EOF) && s.pending > 0 {
		err = io.ErrUnexpectedEOF
	}

	return whole / 2, err
}

type Decoder struct{}

// Decode reads the first frame header. go-mp3 always produces 16-bit stereo.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMP3, err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
