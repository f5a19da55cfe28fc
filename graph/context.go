// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"slices"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ik5/audchain/internal/log"
)

const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
	DefaultQuantum    = 128
)

// Context owns nodes, their connections and the engine clock. All node state
// is guarded by the context's mutex, so nodes of one context may be used from
// several goroutines.
type Context struct {
	mu sync.Mutex

	sampleRate int
	channels   int
	quantum    int
	frames     int64
	closed     bool

	dest    *Destination
	inputs  map[Node][]Node
	outputs map[Node][]Node
	players map[*BufferPlayer]struct{}

	log logrus.FieldLogger
}

// Edge is a single directed connection.
type Edge struct {
	From Node
	To   Node
}

// NewContext creates a context with a Destination node.
func NewContext(opts ...Option) *Context {
	c := &Context{
		sampleRate: DefaultSampleRate,
		channels:   DefaultChannels,
		quantum:    DefaultQuantum,
		inputs:     make(map[Node][]Node),
		outputs:    make(map[Node][]Node),
		players:    make(map[*BufferPlayer]struct{}),
		log:        log.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.dest = &Destination{base: newBase(c, "destination")}

	return c
}

func (c *Context) SampleRate() int { return c.sampleRate }
func (c *Context) Channels() int   { return c.channels }
func (c *Context) Quantum() int    { return c.quantum }

// Destination is the final sink; Render returns its input.
func (c *Context) Destination() *Destination { return c.dest }

// Logger returns the logger the context was configured with.
func (c *Context) Logger() logrus.FieldLogger { return c.log }

// CurrentTime returns the engine clock in seconds.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now()
}

func (c *Context) now() float64 {
	return float64(c.frames) / float64(c.sampleRate)
}

// Connect adds the edge from → to. Composite nodes are connected through
// their output and input endpoints respectively.
func (c *Context) Connect(from, to Node) error {
	from, to = outputOf(from), inputOf(to)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validate(from, to); err != nil {
		return err
	}

	if from == Node(c.dest) {
		return ErrNotSink
	}

	if slices.Contains(c.outputs[from], to) {
		return ErrAlreadyConnected
	}

	if from == to || c.reaches(to, from) {
		return ErrCycle
	}

	c.outputs[from] = append(c.outputs[from], to)
	c.inputs[to] = append(c.inputs[to], from)

	c.log.WithFields(logrus.Fields{"from": nodeName(from), "to": nodeName(to)}).Debug("connect")

	return nil
}

// Disconnect removes the edge from → to.
func (c *Context) Disconnect(from, to Node) error {
	from, to = outputOf(from), inputOf(to)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validate(from, to); err != nil {
		return err
	}

	if !slices.Contains(c.outputs[from], to) {
		return ErrNotConnected
	}

	c.unlink(from, to)

	c.log.WithFields(logrus.Fields{"from": nodeName(from), "to": nodeName(to)}).Debug("disconnect")

	return nil
}

// DisconnectAll removes every outgoing edge of n.
func (c *Context) DisconnectAll(n Node) error {
	n = outputOf(n)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validate(n, n); err != nil {
		return err
	}

	for _, to := range slices.Clone(c.outputs[n]) {
		c.unlink(n, to)
	}

	return nil
}

// Connected reports whether the edge from → to exists.
func (c *Context) Connected(from, to Node) bool {
	from, to = outputOf(from), inputOf(to)

	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Contains(c.outputs[from], to)
}

// Outputs returns the nodes n feeds, in connection order.
func (c *Context) Outputs(n Node) []Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.outputs[outputOf(n)])
}

// Inputs returns the nodes feeding n, in connection order.
func (c *Context) Inputs(n Node) []Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.inputs[inputOf(n)])
}

// Edges returns every connection ordered by source then target ID.
func (c *Context) Edges() []Edge {
	c.mu.Lock()
	defer c.mu.Unlock()

	var edges []Edge
	for from, tos := range c.outputs {
		for _, to := range tos {
			edges = append(edges, Edge{From: from, To: to})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From.ID() != edges[j].From.ID() {
			return edges[i].From.ID() < edges[j].From.ID()
		}
		return edges[i].To.ID() < edges[j].To.ID()
	})

	return edges
}

// Close drops every connection. Further graph operations return ErrClosed
// and Render produces nothing.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	clear(c.inputs)
	clear(c.outputs)
	clear(c.players)

	return nil
}

// Render fills dst with interleaved output of the destination and advances
// the clock by len(dst)/Channels() frames. Ended callbacks of players that ran
// out of media during this call are invoked after the context lock is
// released, so they may safely call back into the graph.
func (c *Context) Render(dst []float32) int {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return 0
	}

	ch := c.channels
	frames := len(dst) / ch

	var ended []*BufferPlayer

	for done := 0; done < frames; {
		n := min(c.quantum, frames-done)
		p := &pass{ctx: c, frames: n, outputs: make(map[Node][]float32)}

		copy(dst[done*ch:(done+n)*ch], p.pull(c.dest))

		done += n
		c.frames += int64(n)
		ended = append(ended, c.collectEnded()...)
	}

	clear(dst[frames*ch:])

	c.mu.Unlock()

	for _, pl := range ended {
		pl.fire(StopEnded)
	}

	return frames
}

func (c *Context) validate(nodes ...Node) error {
	if c.closed {
		return ErrClosed
	}

	for _, n := range nodes {
		if n == nil || n.Context() != c {
			return ErrForeignNode
		}
		if _, ok := n.(renderer); !ok {
			return ErrForeignNode
		}
	}

	return nil
}

func (c *Context) unlink(from, to Node) {
	c.outputs[from] = slices.DeleteFunc(c.outputs[from], func(n Node) bool { return n == to })
	c.inputs[to] = slices.DeleteFunc(c.inputs[to], func(n Node) bool { return n == from })

	if len(c.outputs[from]) == 0 {
		delete(c.outputs, from)
	}
	if len(c.inputs[to]) == 0 {
		delete(c.inputs, to)
	}
}

// reaches reports whether target is downstream of start.
func (c *Context) reaches(start, target Node) bool {
	seen := map[Node]bool{}
	stack := []Node{start}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n == target {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, c.outputs[n]...)
	}

	return false
}

func (c *Context) collectEnded() []*BufferPlayer {
	var ended []*BufferPlayer

	for pl := range c.players {
		if pl.position(c.frames) >= int64(pl.buf.Frames()) {
			pl.playing = false
			delete(c.players, pl)
			ended = append(ended, pl)
		}
	}

	return ended
}

// pass memoises node outputs for one quantum.
type pass struct {
	ctx     *Context
	frames  int
	outputs map[Node][]float32
}

func (p *pass) pull(n Node) []float32 {
	if out, ok := p.outputs[n]; ok {
		return out
	}

	size := p.frames * p.ctx.channels
	in := make([]float32, size)

	for _, src := range p.ctx.inputs[n] {
		s := p.pull(src)
		for i := range in {
			in[i] += s[i]
		}
	}

	out := make([]float32, size)
	n.(renderer).render(p, in, out)
	p.outputs[n] = out

	return out
}
