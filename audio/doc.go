// SPDX-License-Identifier: EPL-2.0

// Package audio holds the sample-level building blocks shared by decoders
// and the graph: the pull-based Source, the immutable in-memory Buffer, and
// the converters that bring a decoded stream to the engine format.
//
// Samples are interleaved float32 values in [-1, 1]. A Source reports
// io.EOF once it has nothing more to give:
//
//	for {
//	    n, err := src.ReadSamples(buf)
//	    consume(buf[:n])
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
//
// ReadBuffer runs that loop for you and returns a Buffer. Chain the
// converters in front of it to decode straight into engine format:
//
//	src = audio.NewMonoMixer(src)
//	src = audio.NewResampler(src, 48000)
//	buf, err := audio.ReadBuffer(src)
//
// A Registry maps format keys such as "wav" to decoders; package formats
// fills one with everything this module can decode.
package audio
