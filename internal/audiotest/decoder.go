// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"context"
	"sync"

	"github.com/ik5/audchain/audio"
	"github.com/ik5/audchain/source"
)

// BlockingDecoder holds every Decode call until the test releases it. The
// size of each payload is sent on Started when its call begins, so calls are
// numbered in the order they are received from Started.
type BlockingDecoder struct {
	Decoder source.Decoder
	Started chan int

	mu    sync.Mutex
	gates []chan struct{}
}

func NewBlockingDecoder(inner source.Decoder) *BlockingDecoder {
	return &BlockingDecoder{Decoder: inner, Started: make(chan int, 16)}
}

func (d *BlockingDecoder) Decode(ctx context.Context, data []byte) (*audio.Buffer, error) {
	gate := make(chan struct{})

	d.mu.Lock()
	d.gates = append(d.gates, gate)
	d.mu.Unlock()

	d.Started <- len(data)

	select {
	case <-gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return d.Decoder.Decode(ctx, data)
}

// Release lets call i (0-based) proceed.
func (d *BlockingDecoder) Release(i int) {
	d.mu.Lock()
	gate := d.gates[i]
	d.mu.Unlock()

	close(gate)
}

// ChunkStream serves fixed chunks, one per Read, and reports done with the
// last one.
type ChunkStream struct {
	mu        sync.Mutex
	chunks    [][]byte
	next      int
	cancelled bool
}

func NewChunkStream(chunks ...[]byte) *ChunkStream {
	return &ChunkStream{chunks: chunks}
}

// Split cuts data into chunks of size bytes.
func Split(data []byte, size int) [][]byte {
	var chunks [][]byte
	for len(data) > size {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	return append(chunks, data)
}

func (s *ChunkStream) Read(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.chunks) {
		return nil, true, nil
	}

	c := s.chunks[s.next]
	s.next++

	return c, s.next == len(s.chunks), nil
}

func (s *ChunkStream) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelled = true
	return nil
}

func (s *ChunkStream) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancelled
}
