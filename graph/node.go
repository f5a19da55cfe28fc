// SPDX-License-Identifier: EPL-2.0

package graph

import "github.com/rs/xid"

// Node is an opaque unit of the signal path. Nodes are created by the
// constructors of this package and bound to one Context for life.
type Node interface {
	ID() string
	Context() *Context
}

// Endpoints is implemented by nodes that wrap a sub-graph with distinct input
// and output nodes. Connect and Disconnect route through them.
type Endpoints interface {
	Node
	Input() Node
	Output() Node
}

// renderer is implemented by every node that takes part in rendering. in is
// the sum of all inputs; out is zeroed and has the same length.
type renderer interface {
	Node
	render(p *pass, in, out []float32)
}

type base struct {
	id   string
	kind string
	ctx  *Context
}

func newBase(c *Context, kind string) base {
	return base{id: xid.New().String(), kind: kind, ctx: c}
}

func (b *base) ID() string        { return b.id }
func (b *base) Context() *Context { return b.ctx }
func (b *base) String() string    { return b.kind + ":" + b.id }

func nodeName(n Node) string {
	if s, ok := n.(interface{ String() string }); ok {
		return s.String()
	}
	return n.ID()
}

func outputOf(n Node) Node {
	for {
		e, ok := n.(Endpoints)
		if !ok {
			return n
		}
		n = e.Output()
	}
}

func inputOf(n Node) Node {
	for {
		e, ok := n.(Endpoints)
		if !ok {
			return n
		}
		n = e.Input()
	}
}

// Destination is the context's final sink.
type Destination struct {
	base
}

func (d *Destination) render(_ *pass, in, out []float32) {
	copy(out, in)
}

// Gain scales its input.
type Gain struct {
	base
	gain float64
}

// NewGain returns a node that scales its input by gain.
func NewGain(c *Context, gain float64) *Gain {
	return &Gain{base: newBase(c, "gain"), gain: gain}
}

func (g *Gain) Gain() float64 {
	g.ctx.mu.Lock()
	defer g.ctx.mu.Unlock()

	return g.gain
}

func (g *Gain) SetGain(v float64) {
	g.ctx.mu.Lock()
	defer g.ctx.mu.Unlock()

	g.gain = v
}

func (g *Gain) render(_ *pass, in, out []float32) {
	k := float32(g.gain)
	for i, v := range in {
		out[i] = v * k
	}
}

// ProcessFunc transforms one quantum of interleaved samples. in and out have
// the same length, a multiple of channels. It runs with the context locked and
// must not call back into the graph.
type ProcessFunc func(in, out []float32, channels int)

// Processor runs a ProcessFunc over its summed input.
type Processor struct {
	base
	fn ProcessFunc
}

// NewProcessor returns a node that runs fn over each rendered block.
func NewProcessor(c *Context, fn ProcessFunc) *Processor {
	return &Processor{base: newBase(c, "processor"), fn: fn}
}

func (p *Processor) render(_ *pass, in, out []float32) {
	if p.fn == nil {
		copy(out, in)
		return
	}
	p.fn(in, out, p.ctx.channels)
}

// Composite presents a sub-graph as a single node: edges into it land on in,
// edges out of it leave from out. The caller wires in → … → out.
type Composite struct {
	base
	in  Node
	out Node
}

// NewComposite wraps a subgraph entered at in and leaving at out.
func NewComposite(c *Context, in, out Node) *Composite {
	return &Composite{base: newBase(c, "composite"), in: in, out: out}
}

func (n *Composite) Input() Node  { return n.in }
func (n *Composite) Output() Node { return n.out }
