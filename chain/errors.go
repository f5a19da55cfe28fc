// SPDX-License-Identifier: EPL-2.0

package chain

import "errors"

var (
	ErrOutOfRange    = errors.New("position out of range")
	ErrUnknownHandle = errors.New("handle does not refer to a chain entry")
	ErrDuplicateNode = errors.New("node is already part of the chain")
	ErrClosed        = errors.New("chain is closed")
)
