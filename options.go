// SPDX-License-Identifier: EPL-2.0

package audchain

import (
	"github.com/sirupsen/logrus"

	"github.com/ik5/audchain/graph"
	"github.com/ik5/audchain/internal/log"
	"github.com/ik5/audchain/source"
)

type options struct {
	graph  []graph.Option
	source []source.Option
	log    logrus.FieldLogger
}

// Option configures a Player.
type Option func(o *options)

// WithGraph passes options to the player's graph context.
func WithGraph(opts ...graph.Option) Option {
	return func(o *options) {
		o.graph = append(o.graph, opts...)
	}
}

// WithSource passes options to the router and every source it creates.
func WithSource(opts ...source.Option) Option {
	return func(o *options) {
		o.source = append(o.source, opts...)
	}
}

// WithLogger sets the logger of the player and of everything it creates.
// Explicit logger options given to WithGraph or WithSource still win.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{log: log.Default()}

	for _, opt := range opts {
		opt(&o)
	}

	o.graph = append([]graph.Option{graph.WithLogger(o.log)}, o.graph...)
	o.source = append([]source.Option{source.WithLogger(o.log)}, o.source...)

	return o
}
