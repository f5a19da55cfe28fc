// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

func writeWAV(path string, rate, channels int, pcm []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(v)
	}

	enc := gowav.NewEncoder(f, rate, 16, channels, 1)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", path, err)
	}

	return f.Close()
}
