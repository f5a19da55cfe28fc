// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis audio using github.com/jfreymuth/oggvorbis.
//
// Samples are produced as float32 in [-1,1] with the channel count and rate
// of the stream.
package vorbis
