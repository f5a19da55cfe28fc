// SPDX-License-Identifier: EPL-2.0

package source

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ik5/audchain/internal/log"
)

const (
	// DefaultPrefixSize is how many leading bytes of a fixed buffer are
	// decoded before the whole buffer.
	DefaultPrefixSize = 100000
	// DefaultChunkSize is the read size used for plain io.Readers.
	DefaultChunkSize = 32 * 1024
	// DefaultChunkDelay is the pause between two stream chunks.
	DefaultChunkDelay = 100 * time.Millisecond
)

type config struct {
	decoder    Decoder
	prefixSize int
	chunkSize  int
	chunkDelay time.Duration
	resolver   Resolver
	elements   ElementFactory
	log        logrus.FieldLogger
}

func newConfig(opts []Option) config {
	cfg := config{
		prefixSize: DefaultPrefixSize,
		chunkSize:  DefaultChunkSize,
		chunkDelay: DefaultChunkDelay,
		log:        log.Default(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.resolver == nil {
		cfg.resolver = &DefaultResolver{ChunkSize: cfg.chunkSize}
	}

	return cfg
}

// Option configures sources and routers. A router hands its options to every
// source it creates.
type Option func(c *config)

// WithDecoder replaces the default decoder, which is a formats.BufferDecoder
// for the target's context.
func WithDecoder(d Decoder) Option {
	return func(c *config) {
		c.decoder = d
	}
}

// WithPrefixSize sets how many bytes of a fixed buffer are decoded first.
func WithPrefixSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.prefixSize = n
		}
	}
}

// WithChunkSize sets the read size of streams built from an io.Reader.
func WithChunkSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithChunkDelay sets the pause between stream chunks. Zero disables it.
func WithChunkDelay(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.chunkDelay = d
		}
	}
}

// WithResolver sets how locator strings are opened.
func WithResolver(r Resolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// WithElementFactory sets how element sources turn a locator into an Element.
func WithElementFactory(f ElementFactory) Option {
	return func(c *config) {
		c.elements = f
	}
}

// WithLogger sets the logger of created sources.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}
