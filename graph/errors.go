// SPDX-License-Identifier: EPL-2.0

package graph

import "errors"

var (
	ErrForeignNode      = errors.New("node belongs to another context")
	ErrNotConnected     = errors.New("nodes are not connected")
	ErrAlreadyConnected = errors.New("nodes are already connected")
	ErrCycle            = errors.New("connection would create a cycle")
	ErrClosed           = errors.New("context is closed")
	ErrFormatMismatch   = errors.New("buffer sample rate differs from context")
	ErrNotSink          = errors.New("destination has no outputs")
)

// ErrAlreadyStarted is returned when a BufferPlayer is started twice; players
// are one-shot, like the nodes they model.
var ErrAlreadyStarted = errors.New("player already started")
