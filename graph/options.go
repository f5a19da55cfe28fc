// SPDX-License-Identifier: EPL-2.0

package graph

import "github.com/sirupsen/logrus"

// Option configures a Context.
type Option func(c *Context)

// WithSampleRate sets the engine rate in Hz.
func WithSampleRate(rate int) Option {
	return func(c *Context) {
		if rate > 0 {
			c.sampleRate = rate
		}
	}
}

// WithChannels sets the channel count of every node output.
func WithChannels(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.channels = n
		}
	}
}

// WithQuantum sets how many frames are processed per render step.
func WithQuantum(frames int) Option {
	return func(c *Context) {
		if frames > 0 {
			c.quantum = frames
		}
	}
}

// WithLogger sets the context logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}
