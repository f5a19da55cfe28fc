// SPDX-License-Identifier: EPL-2.0

package formats

import "errors"

var (
	// ErrUnknownFormat is returned when Detect cannot recognise the payload.
	ErrUnknownFormat = errors.New("unknown audio format")

	// ErrNoDecoder is returned when no decoder is registered for a detected format.
	ErrNoDecoder = errors.New("no decoder registered for format")
)
