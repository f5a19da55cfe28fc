// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile           = errors.New("not a WAV file")
	ErrUnsupportedWavLayout = errors.New("unsupported WAV layout")
	ErrOnlyPCMSupported     = errors.New("only 8/16/24/32-bit integer PCM supported")
	ErrUnsupportedWavChunks = errors.New("unsupported WAV chunks")
)
