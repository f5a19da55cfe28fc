// SPDX-License-Identifier: EPL-2.0

package source

import "errors"

var (
	// ErrUnsupportedSource is returned when no variant accepts the raw input.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrDecode wraps every failure to turn bytes into audio.
	ErrDecode             = errors.New("decoding source")
	ErrDestroyed          = errors.New("source is destroyed")
	ErrNoTarget           = errors.New("source needs a target node")
	ErrNoElementFactory   = errors.New("no element factory configured")
	ErrUnsupportedLocator = errors.New("unsupported locator")
)
