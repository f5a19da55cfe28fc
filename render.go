// SPDX-License-Identifier: EPL-2.0

package audchain

import "github.com/ik5/audchain/utils"

// RenderPCM16 renders frames frames and converts them to 16-bit PCM,
// interleaved with the context's channel count. bufferFrames sets how many
// frames are rendered per step; values below 1 mean one quantum.
func (p *Player) RenderPCM16(frames, bufferFrames int) []int16 {
	ch := p.ctx.Channels()
	if bufferFrames < 1 {
		bufferFrames = p.ctx.Quantum()
	}

	pcm16 := make([]int16, 0, frames*ch)
	buf := make([]float32, bufferFrames*ch)

	for done := 0; done < frames; {
		n := min(bufferFrames, frames-done)
		chunk := buf[:n*ch]

		if p.Render(chunk) == 0 {
			// closed context
			break
		}

		for _, x := range chunk {
			pcm16 = append(pcm16, utils.Float32ToInt16(x))
		}

		done += n
	}

	return pcm16
}
