package statechart

// Structural queries and the document order used as tie-breaker by the
// selector and the executor. Document order is a pre-order walk of the tree
// driven only by child indices, so it is reproducible from construction
// order alone.

func (c *Chart) parentOf(id StateID) StateID {
	if r := c.node(id); r != nil {
		return r.parent
	}
	return NoState
}

func (c *Chart) kindOf(id StateID) StateKind {
	if r := c.node(id); r != nil {
		return r.kind
	}
	return Compound
}

// isAtomic reports whether a state has no children (finals always qualify)
func (c *Chart) isAtomic(id StateID) bool {
	r := c.node(id)
	if r == nil {
		return false
	}
	switch r.kind {
	case Final:
		return true
	case Compound:
		return len(r.children) == 0
	default:
		return false
	}
}

func (c *Chart) isFinal(id StateID) bool {
	return c.kindOf(id) == Final && c.node(id) != nil
}

func (c *Chart) isHistory(id StateID) bool {
	r := c.node(id)
	return r != nil && r.kind == History
}

// isCompound reports whether a state is an exclusive state with children
func (c *Chart) isCompound(id StateID) bool {
	r := c.node(id)
	return r != nil && r.kind == Compound && r.mode == ExclusiveStates && len(r.children) > 0
}

func (c *Chart) isSubMachine(id StateID) bool {
	r := c.node(id)
	return r != nil && r.subMachine && id != c.root
}

func (c *Chart) isParallel(id StateID) bool {
	r := c.node(id)
	return r != nil && r.kind == Compound && r.mode == ParallelStates && len(r.children) > 0
}

// isDescendant reports whether s is a proper descendant of anc
func (c *Chart) isDescendant(s, anc StateID) bool {
	for p := c.parentOf(s); p != NoState; p = c.parentOf(p) {
		if p == anc {
			return true
		}
	}
	return false
}

// properAncestors lists the ancestors of s from the nearest upwards,
// stopping before upperBound. With upperBound NoState the root is included.
func (c *Chart) properAncestors(s, upperBound StateID) []StateID {
	var result []StateID
	for p := c.parentOf(s); p != NoState && p != upperBound; p = c.parentOf(p) {
		result = append(result, p)
	}
	return result
}

// findLCA returns the nearest state that is a proper ancestor of every
// state in the list, or NoState when the states live in different trees.
func (c *Chart) findLCA(states []StateID, onlyCompound bool) StateID {
	if len(states) == 0 {
		return NoState
	}
	for _, anc := range c.properAncestors(states[0], NoState) {
		if onlyCompound && anc != c.root && (!c.isCompound(anc) || c.isSubMachine(anc)) {
			continue
		}
		ok := true
		for _, s := range states[1:] {
			if !c.isDescendant(s, anc) {
				ok = false
				break
			}
		}
		if ok {
			return anc
		}
	}
	return NoState
}

// findLCCA is the least common compound ancestor. The root always counts,
// nested machine boundaries never do.
func (c *Chart) findLCCA(states []StateID) StateID {
	return c.findLCA(states, true)
}

// indexOfDescendant returns the index, among the children of anc, of the
// child whose subtree contains s
func (c *Chart) indexOfDescendant(anc, s StateID) int {
	r := c.node(anc)
	if r == nil {
		return -1
	}
	for i, child := range r.children {
		if child == s || c.isDescendant(s, child) {
			return i
		}
	}
	return -1
}

func (c *Chart) descendantDepth(s, anc StateID) int {
	depth := 0
	for p := s; p != NoState && p != anc; p = c.parentOf(p) {
		depth++
	}
	return depth
}

func (c *Chart) childIndex(s StateID) int {
	p := c.node(c.parentOf(s))
	if p == nil {
		return -1
	}
	for i, child := range p.children {
		if child == s {
			return i
		}
	}
	return -1
}

// entryLess orders states for entry: ancestors before descendants, earlier
// siblings before later ones
func (c *Chart) entryLess(a, b StateID) bool {
	if a == b {
		return false
	}
	if c.parentOf(a) == c.parentOf(b) {
		return c.childIndex(a) < c.childIndex(b)
	}
	if c.isDescendant(a, b) {
		return false
	}
	if c.isDescendant(b, a) {
		return true
	}
	lca := c.findLCA([]StateID{a, b}, false)
	if lca == NoState {
		return a < b
	}
	return c.indexOfDescendant(lca, a) < c.indexOfDescendant(lca, b)
}

// exitLess is the reverse of entryLess: descendants before ancestors, later
// siblings before earlier ones
func (c *Chart) exitLess(a, b StateID) bool {
	return c.entryLess(b, a)
}

// transitionLess orders enabled transitions before conflict resolution.
// Transitions of one source keep their declaration order; otherwise the more
// deeply nested source goes first.
func (c *Chart) transitionLess(t1, t2 *transitionRecord) bool {
	s1, s2 := t1.source, t2.source
	if s1 == s2 {
		return c.declarationIndex(t1) < c.declarationIndex(t2)
	}
	if c.isDescendant(s1, s2) {
		return true
	}
	if c.isDescendant(s2, s1) {
		return false
	}
	lca := c.findLCA([]StateID{s1, s2}, false)
	if lca == NoState {
		return s1 < s2
	}
	d1, d2 := c.descendantDepth(s1, lca), c.descendantDepth(s2, lca)
	if d1 == d2 {
		return c.indexOfDescendant(lca, s1) < c.indexOfDescendant(lca, s2)
	}
	return d1 > d2
}

func (c *Chart) declarationIndex(t *transitionRecord) int {
	src := c.node(t.source)
	if src == nil {
		return -1
	}
	for i, id := range src.transitions {
		if id == t.id {
			return i
		}
	}
	return -1
}
