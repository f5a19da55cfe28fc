// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/audchain/audio"
	"github.com/ik5/audchain/utils"
)

const headerSize = 44

// wavSource streams a canonical 16-bit PCM data chunk straight from the reader.
type wavSource struct {
	r          io.Reader
	sampleRate int
	channels   int
	buf        []byte
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Close() error    { return nil }
func (s *wavSource) BufSize() int    { return cap(s.buf) / 2 }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if cap(s.buf) < len(dst)*2 {
		s.buf = make([]byte, len(dst)*2)
	}
	s.buf = s.buf[:len(dst)*2]

	n, err := io.ReadFull(s.r, s.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("%w", err)
	}

	samples := n / 2
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(s.buf[2*i : 2*i+2]))
		dst[i] = utils.Int16ToFloat32(v)
	}

	if samples == 0 && err != nil {
		return 0, io.EOF
	}

	return samples, nil
}

// pcmSource wraps go-audio/wav for layouts the canonical path does not
// handle: extra chunks before "data" and 8/24/32-bit integer PCM.
type pcmSource struct {
	dec        *gowav.Decoder
	sampleRate int
	channels   int
	scale      float32
	offset     int
	intBuf     *goaudio.IntBuffer
}

func (s *pcmSource) SampleRate() int { return s.sampleRate }
func (s *pcmSource) Channels() int   { return s.channels }
func (s *pcmSource) Close() error    { return nil }

func (s *pcmSource) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}
	return 4096
}

func (s *pcmSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w", err)
		}
		return 0, io.EOF
	}

	for i := range n {
		dst[i] = float32(s.intBuf.Data[i]-s.offset) / s.scale
	}

	return n, nil
}

type Decoder struct{}

// Decode parses the RIFF header. Canonical 44-byte 16-bit PCM files are
// streamed directly; anything else that is still RIFF/WAVE integer PCM is
// handed to go-audio/wav, which needs the whole payload in memory.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	header := make([]byte, headerSize)

	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	if !bytes.HasPrefix(header[:4], []byte("RIFF")) || !bytes.HasPrefix(header[8:12], []byte("WAVE")) {
		return nil, ErrNotWavFile
	}

	if isCanonicalPCM16(header) {
		channels := int(binary.LittleEndian.Uint16(header[22:24]))
		sampleRate := int(binary.LittleEndian.Uint32(header[24:28]))

		return &wavSource{
			r:          r,
			sampleRate: sampleRate,
			channels:   channels,
			buf:        make([]byte, 8192),
		}, nil
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading wav data: %w", err)
	}

	return decodeRIFF(append(header, rest...))
}

func isCanonicalPCM16(header []byte) bool {
	return bytes.Equal(header[12:16], []byte("fmt ")) &&
		binary.LittleEndian.Uint16(header[20:22]) == 1 &&
		binary.LittleEndian.Uint16(header[34:36]) == 16 &&
		bytes.Equal(header[36:40], []byte("data"))
}

func decodeRIFF(data []byte) (audio.Source, error) {
	dec := gowav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrUnsupportedWavLayout
	}

	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavChunks, err)
	}

	// 1 = integer PCM, 0xFFFE = WAVE_FORMAT_EXTENSIBLE
	if dec.WavAudioFormat != 1 && dec.WavAudioFormat != 0xFFFE {
		return nil, ErrOnlyPCMSupported
	}

	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, ErrUnsupportedWavLayout
	}

	s := &pcmSource{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
	}

	switch dec.BitDepth {
	case 8:
		// 8-bit PCM is unsigned
		s.scale, s.offset = 128.0, 128
	case 16:
		s.scale = 32768.0
	case 24:
		s.scale = 8388608.0
	case 32:
		s.scale = 2147483648.0
	default:
		return nil, ErrOnlyPCMSupported
	}

	return s, nil
}
