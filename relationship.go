package zoml

import (
	"iter"

	"github.com/phanxgames/zoml/ecs"
)

// RelationshipMap is the in-memory index over the scene tree. It is
// authoritative within a tick: every change is applied to the map at once and
// mirrored into Relationship components through a command buffer, so later
// reads in the same tick never see stale links.
type RelationshipMap struct {
	rels map[ecs.Entity]RelationshipData
}

// NewRelationshipMap returns an empty index.
func NewRelationshipMap() *RelationshipMap {
	return &RelationshipMap{rels: make(map[ecs.Entity]RelationshipData)}
}

// Get returns the links of e.
func (m *RelationshipMap) Get(e ecs.Entity) (RelationshipData, bool) {
	rel, ok := m.rels[e]
	return rel, ok
}

// Contains reports whether e is indexed.
func (m *RelationshipMap) Contains(e ecs.Entity) bool {
	_, ok := m.rels[e]
	return ok
}

// Len returns the number of indexed entities.
func (m *RelationshipMap) Len() int { return len(m.rels) }

// Set stores rel for e without writing any component. It loads links that
// were written to components directly.
func (m *RelationshipMap) Set(e ecs.Entity, rel RelationshipData) {
	m.rels[e] = rel
}

// Forget drops e from the index without patching its neighbours.
func (m *RelationshipMap) Forget(e ecs.Entity) {
	delete(m.rels, e)
}

// --- Tree manipulation ---

// AddRoot indexes e as a parentless tree root.
func (m *RelationshipMap) AddRoot(buf *ecs.CommandBuffer, e ecs.Entity) {
	m.rels[e] = RelationshipData{}
	m.write(buf, e)
}

// Insert splices child in as the new last child of parent. A child that
// already has a parent is detached from it first.
// Panics if parent is not indexed or child is an ancestor of parent (cycle).
func (m *RelationshipMap) Insert(buf *ecs.CommandBuffer, parent, child ecs.Entity) {
	p, ok := m.rels[parent]
	if !ok {
		panic("zoml: insert under an unindexed parent")
	}
	if m.isAncestor(child, parent) {
		panic("zoml: inserting child would create a cycle")
	}
	if _, ok := m.rels[child]; ok {
		m.Remove(buf, child)
		p = m.rels[parent]
	}

	rel := RelationshipData{Parent: parent, PrevSibling: p.LastChild}
	if p.LastChild != ecs.Null {
		last := m.rels[p.LastChild]
		last.NextSibling = child
		m.rels[p.LastChild] = last
		m.write(buf, p.LastChild)
	} else {
		p.FirstChild = child
	}
	p.LastChild = child
	m.rels[parent] = p
	m.rels[child] = rel
	m.write(buf, parent)
	m.write(buf, child)
}

// Remove unlinks e from its parent and siblings and drops it from the index.
// Only links that still point at e are patched. The children of e keep their
// links to it.
func (m *RelationshipMap) Remove(buf *ecs.CommandBuffer, e ecs.Entity) {
	rel, ok := m.rels[e]
	if !ok {
		return
	}
	if prev, ok := m.rels[rel.PrevSibling]; ok && prev.NextSibling == e {
		prev.NextSibling = rel.NextSibling
		m.rels[rel.PrevSibling] = prev
		m.write(buf, rel.PrevSibling)
	}
	if next, ok := m.rels[rel.NextSibling]; ok && next.PrevSibling == e {
		next.PrevSibling = rel.PrevSibling
		m.rels[rel.NextSibling] = next
		m.write(buf, rel.NextSibling)
	}
	if p, ok := m.rels[rel.Parent]; ok {
		changed := false
		if p.FirstChild == e {
			p.FirstChild = rel.NextSibling
			changed = true
		}
		if p.LastChild == e {
			p.LastChild = rel.PrevSibling
			changed = true
		}
		if changed {
			m.rels[rel.Parent] = p
			m.write(buf, rel.Parent)
		}
	}
	delete(m.rels, e)
}

// ClearChildren empties the child chain of e. The former children stay
// indexed until they are removed.
func (m *RelationshipMap) ClearChildren(buf *ecs.CommandBuffer, e ecs.Entity) {
	rel, ok := m.rels[e]
	if !ok {
		return
	}
	rel.FirstChild, rel.LastChild = ecs.Null, ecs.Null
	m.rels[e] = rel
	m.write(buf, e)
}

// --- Traversal ---

// Children yields the children of parent in sibling order.
func (m *RelationshipMap) Children(parent ecs.Entity) iter.Seq[ecs.Entity] {
	return func(yield func(ecs.Entity) bool) {
		p, ok := m.rels[parent]
		if !ok {
			return
		}
		for c := p.FirstChild; c != ecs.Null; {
			if !yield(c) {
				return
			}
			if c == p.LastChild {
				return
			}
			rel, ok := m.rels[c]
			if !ok {
				return
			}
			c = rel.NextSibling
		}
	}
}

// Descendants yields every entity below e in depth-first pre-order.
func (m *RelationshipMap) Descendants(e ecs.Entity) iter.Seq[ecs.Entity] {
	return func(yield func(ecs.Entity) bool) {
		var walk func(ecs.Entity) bool
		walk = func(parent ecs.Entity) bool {
			for c := range m.Children(parent) {
				if !yield(c) || !walk(c) {
					return false
				}
			}
			return true
		}
		walk(e)
	}
}

// Ancestor returns the nearest ancestor of e (e included) for which match
// returns true.
func (m *RelationshipMap) Ancestor(e ecs.Entity, match func(ecs.Entity) bool) (ecs.Entity, bool) {
	for cur := e; cur != ecs.Null; {
		if match(cur) {
			return cur, true
		}
		rel, ok := m.rels[cur]
		if !ok {
			break
		}
		cur = rel.Parent
	}
	return ecs.Null, false
}

// RootOf returns the topmost indexed ancestor of e.
func (m *RelationshipMap) RootOf(e ecs.Entity) ecs.Entity {
	cur := e
	for {
		rel, ok := m.rels[cur]
		if !ok || rel.Parent == ecs.Null {
			return cur
		}
		cur = rel.Parent
	}
}

// Depth returns the number of ancestors of e.
func (m *RelationshipMap) Depth(e ecs.Entity) int {
	depth := 0
	for rel, ok := m.rels[e]; ok && rel.Parent != ecs.Null; rel, ok = m.rels[rel.Parent] {
		depth++
	}
	return depth
}

// --- Helpers ---

// isAncestor reports whether candidate is node or one of its ancestors.
func (m *RelationshipMap) isAncestor(candidate, node ecs.Entity) bool {
	for cur := node; cur != ecs.Null; {
		if cur == candidate {
			return true
		}
		rel, ok := m.rels[cur]
		if !ok {
			return false
		}
		cur = rel.Parent
	}
	return false
}

func (m *RelationshipMap) write(buf *ecs.CommandBuffer, e ecs.Entity) {
	if buf == nil {
		return
	}
	ecs.Insert(buf, e, Relationship, m.rels[e])
}
