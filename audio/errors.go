// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrEmptyBuffer is returned when a source produced no samples at all.
	ErrEmptyBuffer = errors.New("source produced no samples")

	// ErrInvalidFormat is returned for a non-positive sample rate or channel count.
	ErrInvalidFormat = errors.New("invalid sample rate or channel count")
)
