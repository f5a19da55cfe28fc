// SPDX-License-Identifier: EPL-2.0

package chain

import "github.com/ik5/audchain/graph"

const none = -1

// Handle addresses an entry of a Chain. It stays valid until that entry is
// removed; a handle to a removed entry is rejected even if its slot is reused.
type Handle struct {
	index int
	gen   uint32
}

// Valid reports whether h was ever issued; it says nothing about whether the
// entry still exists.
func (h Handle) Valid() bool { return h.gen != 0 }

type entry struct {
	node       graph.Node
	prev, next int
	gen        uint32
	used       bool
}

// list is an arena-backed doubly linked list. Insert and remove hand back the
// neighbour slots so the caller can rewire exactly the affected edges.
type list struct {
	entries     []entry
	free        []int
	first, last int
	n           int
}

func newList() list {
	return list{first: none, last: none}
}

func (l *list) len() int { return l.n }

// at returns the slot at position pos, or none.
func (l *list) at(pos int) int {
	if pos < 0 || pos >= l.n {
		return none
	}

	idx := l.first
	for range pos {
		idx = l.entries[idx].next
	}

	return idx
}

func (l *list) lookup(h Handle) int {
	if h.index < 0 || h.index >= len(l.entries) {
		return none
	}

	e := &l.entries[h.index]
	if !e.used || e.gen != h.gen {
		return none
	}

	return h.index
}

func (l *list) handle(idx int) Handle {
	return Handle{index: idx, gen: l.entries[idx].gen}
}

func (l *list) node(idx int) graph.Node {
	if idx == none {
		return nil
	}
	return l.entries[idx].node
}

func (l *list) alloc(node graph.Node) int {
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]

		e := &l.entries[idx]
		e.node, e.used = node, true
		e.gen++

		return idx
	}

	l.entries = append(l.entries, entry{node: node, gen: 1, used: true})

	return len(l.entries) - 1
}

// insertBefore links node in front of slot before; before == none appends.
func (l *list) insertBefore(before int, node graph.Node) (idx, prev, next int) {
	idx = l.alloc(node)

	next = before
	if before == none {
		prev = l.last
	} else {
		prev = l.entries[before].prev
	}

	e := &l.entries[idx]
	e.prev, e.next = prev, next

	if prev == none {
		l.first = idx
	} else {
		l.entries[prev].next = idx
	}

	if next == none {
		l.last = idx
	} else {
		l.entries[next].prev = idx
	}

	l.n++

	return idx, prev, next
}

// remove unlinks slot idx and returns its former neighbours.
func (l *list) remove(idx int) (prev, next int) {
	e := &l.entries[idx]
	prev, next = e.prev, e.next

	if prev == none {
		l.first = next
	} else {
		l.entries[prev].next = next
	}

	if next == none {
		l.last = prev
	} else {
		l.entries[next].prev = prev
	}

	e.node = nil
	e.used = false
	e.prev, e.next = none, none
	l.free = append(l.free, idx)
	l.n--

	return prev, next
}

func (l *list) nodes() []graph.Node {
	out := make([]graph.Node, 0, l.n)
	for idx := l.first; idx != none; idx = l.entries[idx].next {
		out = append(out, l.entries[idx].node)
	}
	return out
}

func (l *list) contains(node graph.Node) bool {
	for idx := l.first; idx != none; idx = l.entries[idx].next {
		if l.entries[idx].node == node {
			return true
		}
	}
	return false
}
