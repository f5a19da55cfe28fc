// SPDX-License-Identifier: EPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Stream produces the bytes of a payload in chunks. Read returns done once
// the payload is complete; the final call may carry a last chunk. A chunk is
// only valid until the next Read.
type Stream interface {
	Read(ctx context.Context) (chunk []byte, done bool, err error)
	// Cancel asks the producer to stop. Reads after Cancel may still return
	// data; the consumer ignores it.
	Cancel() error
}

// ReaderStream reads an io.Reader in fixed-size chunks.
type ReaderStream struct {
	r      io.Reader
	buf    []byte
	closed bool
}

// NewReaderStream wraps r. Readers that are also io.Closers are closed once
// they are exhausted or on Cancel.
func NewReaderStream(r io.Reader, chunkSize int) *ReaderStream {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &ReaderStream{r: r, buf: make([]byte, chunkSize)}
}

func (s *ReaderStream) Read(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	n, err := io.ReadFull(s.r, s.buf)
	switch {
	case err == nil:
		return s.buf[:n], false, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if cerr := s.Cancel(); cerr != nil {
			return nil, false, fmt.Errorf("closing stream: %w", cerr)
		}
		return s.buf[:n], true, nil
	default:
		return nil, false, fmt.Errorf("reading stream: %w", err)
	}
}

func (s *ReaderStream) Cancel() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Resolver turns a locator string into a stream of its bytes.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (Stream, error)
}

// DefaultResolver fetches http and https URLs with Client and opens file
// URLs and plain paths from the local filesystem.
type DefaultResolver struct {
	Client    *http.Client
	ChunkSize int
}

func (r *DefaultResolver) Resolve(ctx context.Context, locator string) (Stream, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, including windows drive letters
		return r.open(locator)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return r.fetch(ctx, locator)
	case "file":
		return r.open(u.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, u.Scheme)
	}
}

func (r *DefaultResolver) open(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return NewReaderStream(f, r.ChunkSize), nil
}

func (r *DefaultResolver) fetch(ctx context.Context, locator string) (Stream, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", locator, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %s", locator, resp.Status)
	}

	return NewReaderStream(resp.Body, r.ChunkSize), nil
}
