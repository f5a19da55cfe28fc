// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"

	"github.com/ik5/audchain/utils"
)

// Resampler converts a Source to another sample rate with Catmull-Rom
// interpolation over a four frame window. The channel count is kept. When
// downsampling, a one-pole low-pass runs over the input first.
//
// formats.BufferDecoder uses it to bring decoded files to the engine rate.
type Resampler struct {
	src  Source
	rate int
	ch   int
	step float64 // source frames per output frame

	// win[1] is the frame at the integer part of the read position; win[0]
	// precedes it, win[2] and win[3] follow. ahead counts how many of
	// win[2..3] are real frames rather than edge copies.
	win    [4][]float32
	ahead  int
	pos    float64
	primed bool

	in     []float32
	off, n int
	srcErr error
	err    error

	lp *onePole
}

// NewResampler converts src to dstRate.
func NewResampler(src Source, dstRate int) *Resampler {
	ch := src.Channels()

	size := max(src.BufSize(), ch)
	size -= size % ch

	r := &Resampler{
		src:  src,
		rate: dstRate,
		ch:   ch,
		step: float64(src.SampleRate()) / float64(dstRate),
		in:   make([]float32, size),
	}

	for i := range r.win {
		r.win[i] = make([]float32, ch)
	}

	if r.step > 1 {
		r.lp = &onePole{alpha: 0.5, state: make([]float32, ch)}
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.rate }
func (r *Resampler) Channels() int   { return r.ch }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }
func (r *Resampler) Close() error    { return r.src.Close() }

// ReadSamples fills dst with frames at the target rate. len(dst) must be a
// multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.ch != 0 {
		return 0, ErrInvalidDstSize
	}

	if r.err != nil {
		return 0, r.err
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			r.err = err
			return 0, err
		}
	}

	frames := len(dst) / r.ch
	written := 0

	for written < frames {
		for r.pos >= 1 {
			if err := r.advance(); err != nil {
				r.err = err
				return written * r.ch, err
			}
			r.pos--
		}

		if r.ahead == 0 && r.pos > 0 {
			// past the last frame
			r.err = io.EOF
			return written * r.ch, io.EOF
		}

		x := float32(r.pos)
		out := dst[written*r.ch : (written+1)*r.ch]
		for c := range out {
			out[c] = utils.CubicInterpolate(r.win[0][c], r.win[1][c], r.win[2][c], r.win[3][c], x)
		}

		written++
		r.pos += r.step
	}

	return written * r.ch, nil
}

func (r *Resampler) prime() error {
	r.primed = true

	if err := r.next(r.win[1]); err != nil {
		return err
	}
	copy(r.win[0], r.win[1])

	for i := 2; i < 4; i++ {
		err := r.next(r.win[i])
		if err == nil {
			r.ahead++
			continue
		}
		if !errors.Is(err, io.EOF) {
			return err
		}
		copy(r.win[i], r.win[i-1])
	}

	return nil
}

// advance moves the window one source frame forward.
func (r *Resampler) advance() error {
	if r.ahead == 0 {
		return io.EOF
	}

	first := r.win[0]
	r.win[0], r.win[1], r.win[2] = r.win[1], r.win[2], r.win[3]
	r.win[3] = first
	r.ahead--

	err := r.next(r.win[3])
	switch {
	case err == nil:
		r.ahead++
	case errors.Is(err, io.EOF):
		copy(r.win[3], r.win[2])
	default:
		return err
	}

	return nil
}

// next copies one source frame into dst. A truncated source ends like a
// complete one.
func (r *Resampler) next(dst []float32) error {
	for r.off >= r.n {
		if r.srcErr != nil {
			return r.srcErr
		}

		n, err := r.src.ReadSamples(r.in)
		r.n = n - n%r.ch
		r.off = 0

		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			r.srcErr = io.EOF
		case err != nil:
			r.srcErr = err
		case n == 0:
			r.srcErr = io.EOF
		}
	}

	copy(dst, r.in[r.off:r.off+r.ch])
	r.off += r.ch

	if r.lp != nil {
		r.lp.apply(dst)
	}

	return nil
}

// onePole is y[n] = a*x[n] + (1-a)*y[n-1], seeded with the first frame.
type onePole struct {
	alpha  float32
	state  []float32
	seeded bool
}

func (f *onePole) apply(frame []float32) {
	if !f.seeded {
		copy(f.state, frame)
		f.seeded = true
		return
	}

	for c, x := range frame {
		f.state[c] = f.alpha*x + (1-f.alpha)*f.state[c]
		frame[c] = f.state[c]
	}
}
