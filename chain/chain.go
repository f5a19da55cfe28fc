// SPDX-License-Identifier: EPL-2.0

// Package chain keeps a linear run of processing nodes wired between a fixed
// head and a fixed tail.
//
// After every operation the connections form exactly one path
// head → n1 → … → nk → tail. Insert and Remove touch only the edges around the
// affected position:
//
//	insert n between p and q:  p→q  becomes  p→n→q
//	remove n from p→n→q:       p→n→q becomes p→q
//
// where p is the head when n is first and q is the tail when n is last. If the
// wiring fails halfway, the edges already changed are restored and the chain
// is left as it was.
package chain

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ik5/audchain/graph"
	"github.com/ik5/audchain/internal/log"
)

// Wiring connects and disconnects two nodes. *graph.Context implements it.
type Wiring interface {
	Connect(from, to graph.Node) error
	Disconnect(from, to graph.Node) error
}

// Option configures a Chain.
type Option func(c *Chain)

// WithLogger sets the chain logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Chain) {
		if l != nil {
			c.log = l
		}
	}
}

// Chain is an ordered sequence of nodes between head and tail.
type Chain struct {
	mu     sync.Mutex
	w      Wiring
	head   graph.Node
	tail   graph.Node
	list   list
	closed bool
	log    logrus.FieldLogger
}

// New connects head → tail and returns an empty chain over them.
func New(w Wiring, head, tail graph.Node, opts ...Option) (*Chain, error) {
	c := &Chain{
		w:    w,
		head: head,
		tail: tail,
		list: newList(),
		log:  log.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := w.Connect(head, tail); err != nil {
		return nil, fmt.Errorf("chain: connecting head to tail: %w", err)
	}

	return c, nil
}

func (c *Chain) Head() graph.Node { return c.head }
func (c *Chain) Tail() graph.Node { return c.tail }

// Len returns the number of inserted nodes.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.list.len()
}

// Nodes returns the inserted nodes from head to tail.
func (c *Chain) Nodes() []graph.Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.list.nodes()
}

// At returns the node at pos.
func (c *Chain) At(pos int) (graph.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.list.at(pos)
	if idx == none {
		return nil, c.rangeErr(pos)
	}

	return c.list.node(idx), nil
}

// Handle returns the handle of the entry at pos.
func (c *Chain) Handle(pos int) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.list.at(pos)
	if idx == none {
		return Handle{}, c.rangeErr(pos)
	}

	return c.list.handle(idx), nil
}

// Push appends node right before the tail.
func (c *Chain) Push(node graph.Node) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.insert(none, node)
}

// Insert places node at pos, 0 ≤ pos ≤ Len(). Nodes at pos and after shift
// one position towards the tail.
func (c *Chain) Insert(node graph.Node, pos int) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos < 0 || pos > c.list.len() {
		return Handle{}, c.rangeErr(pos)
	}

	return c.insert(c.list.at(pos), node)
}

// InsertBefore places node directly in front of the entry h.
func (c *Chain) InsertBefore(h Handle, node graph.Node) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.list.lookup(h)
	if idx == none {
		return Handle{}, ErrUnknownHandle
	}

	return c.insert(idx, node)
}

// InsertAfter places node directly behind the entry h.
func (c *Chain) InsertAfter(h Handle, node graph.Node) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.list.lookup(h)
	if idx == none {
		return Handle{}, ErrUnknownHandle
	}

	return c.insert(c.list.entries[idx].next, node)
}

// Remove takes the node at pos out of the chain and returns it.
func (c *Chain) Remove(pos int) (graph.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.list.at(pos)
	if idx == none {
		return nil, c.rangeErr(pos)
	}

	return c.remove(idx)
}

// RemoveHandle takes the entry h out of the chain.
func (c *Chain) RemoveHandle(h Handle) (graph.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.list.lookup(h)
	if idx == none {
		return nil, ErrUnknownHandle
	}

	return c.remove(idx)
}

// Move relocates the node at from so that it ends up at position to.
func (c *Chain) Move(from, to int) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.list.len()
	if from < 0 || from >= n {
		return Handle{}, c.rangeErr(from)
	}
	if to < 0 || to >= n {
		return Handle{}, c.rangeErr(to)
	}

	idx := c.list.at(from)
	if from == to {
		return c.list.handle(idx), nil
	}

	node, err := c.remove(idx)
	if err != nil {
		return Handle{}, err
	}

	h, err := c.insert(c.list.at(to), node)
	if err != nil {
		// put it back where it was
		if _, rerr := c.insert(c.list.at(from), node); rerr != nil {
			return Handle{}, fmt.Errorf("chain: move failed (%w) and restore failed: %w", err, rerr)
		}
		return Handle{}, err
	}

	return h, nil
}

// Close removes every node, leaving head → tail connected. Later
// modifications fail with ErrClosed; closing twice is a no-op.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	for c.list.len() > 0 {
		if _, err := c.remove(c.list.last); err != nil {
			return err
		}
	}

	c.closed = true

	return nil
}

func (c *Chain) rangeErr(pos int) error {
	return fmt.Errorf("%w: %d for chain of length %d", ErrOutOfRange, pos, c.list.len())
}

// endpoints maps absent neighbours onto head and tail.
func (c *Chain) endpoints(prev, next int) (graph.Node, graph.Node) {
	p, n := c.head, c.tail
	if prev != none {
		p = c.list.node(prev)
	}
	if next != none {
		n = c.list.node(next)
	}
	return p, n
}

func (c *Chain) insert(before int, node graph.Node) (Handle, error) {
	if c.closed {
		return Handle{}, ErrClosed
	}

	if node == nil || node == c.head || node == c.tail || c.list.contains(node) {
		return Handle{}, ErrDuplicateNode
	}

	idx, prevIdx, nextIdx := c.list.insertBefore(before, node)
	prev, next := c.endpoints(prevIdx, nextIdx)

	if err := c.wireInsert(prev, node, next); err != nil {
		c.list.remove(idx)
		return Handle{}, err
	}

	c.log.WithFields(logrus.Fields{"node": node.ID(), "prev": prev.ID(), "next": next.ID()}).Debug("chain insert")

	return c.list.handle(idx), nil
}

func (c *Chain) remove(idx int) (graph.Node, error) {
	if c.closed {
		return nil, ErrClosed
	}

	node := c.list.node(idx)
	prev, next := c.endpoints(c.list.entries[idx].prev, c.list.entries[idx].next)

	if err := c.wireRemove(prev, node, next); err != nil {
		return nil, err
	}

	c.list.remove(idx)

	c.log.WithFields(logrus.Fields{"node": node.ID(), "prev": prev.ID(), "next": next.ID()}).Debug("chain remove")

	return node, nil
}

// wireInsert turns prev→next into prev→node→next.
func (c *Chain) wireInsert(prev, node, next graph.Node) error {
	if err := c.w.Disconnect(prev, next); err != nil {
		return fmt.Errorf("chain: disconnect %s→%s: %w", prev.ID(), next.ID(), err)
	}

	if err := c.w.Connect(prev, node); err != nil {
		return c.restore(fmt.Errorf("chain: connect %s→%s: %w", prev.ID(), node.ID(), err),
			step{connect: true, from: prev, to: next})
	}

	if err := c.w.Connect(node, next); err != nil {
		return c.restore(fmt.Errorf("chain: connect %s→%s: %w", node.ID(), next.ID(), err),
			step{connect: false, from: prev, to: node},
			step{connect: true, from: prev, to: next})
	}

	return nil
}

// wireRemove turns prev→node→next into prev→next.
func (c *Chain) wireRemove(prev, node, next graph.Node) error {
	if err := c.w.Disconnect(prev, node); err != nil {
		return fmt.Errorf("chain: disconnect %s→%s: %w", prev.ID(), node.ID(), err)
	}

	if err := c.w.Disconnect(node, next); err != nil {
		return c.restore(fmt.Errorf("chain: disconnect %s→%s: %w", node.ID(), next.ID(), err),
			step{connect: true, from: prev, to: node})
	}

	if err := c.w.Connect(prev, next); err != nil {
		return c.restore(fmt.Errorf("chain: connect %s→%s: %w", prev.ID(), next.ID(), err),
			step{connect: true, from: node, to: next},
			step{connect: true, from: prev, to: node})
	}

	return nil
}

type step struct {
	connect  bool
	from, to graph.Node
}

// restore undoes already applied edge changes after a failed rewiring.
func (c *Chain) restore(cause error, steps ...step) error {
	for _, s := range steps {
		var err error
		if s.connect {
			err = c.w.Connect(s.from, s.to)
		} else {
			err = c.w.Disconnect(s.from, s.to)
		}

		if err != nil {
			c.log.WithError(err).WithField("cause", cause.Error()).Error("chain rewiring could not be undone")
			return fmt.Errorf("%w (undo failed: %w)", cause, err)
		}
	}

	return cause
}
