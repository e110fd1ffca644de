package zoml

import (
	"iter"

	"github.com/phanxgames/zoml/ecs"
)

// Axis selects the dimension a measurement or subdivision works on.
type Axis uint8

const (
	AxisWidth Axis = iota
	AxisHeight
)

// --- Measurement ---

// Measure computes the intrinsic minimum of every entity under e along ax
// and returns the minimum of e. A fixed size wins over the sum of the
// children; children are still measured so nested stacks get their own
// minimums. A minimum of 0 removes the component.
func Measure(buf *ecs.CommandBuffer, rels *RelationshipMap, maps *Maps, e ecs.Entity, ax Axis) uint16 {
	sum := measureChildren(buf, rels, maps, e, ax)
	minimum := sum
	if fixed, ok := axisSizes(maps, ax)[e]; ok {
		minimum = fixed
	}
	setMinimum(buf, maps, e, ax, minimum)
	return minimum
}

// MeasureRoot measures the tree under a root. The size of a root is the
// window it is laid out in, so its minimum is always the sum of its children.
func MeasureRoot(buf *ecs.CommandBuffer, rels *RelationshipMap, maps *Maps, root ecs.Entity, ax Axis) uint16 {
	minimum := measureChildren(buf, rels, maps, root, ax)
	setMinimum(buf, maps, root, ax, minimum)
	return minimum
}

func measureChildren(buf *ecs.CommandBuffer, rels *RelationshipMap, maps *Maps, e ecs.Entity, ax Axis) uint16 {
	var sum uint16
	for c := range rels.Children(e) {
		sum = addSat(sum, Measure(buf, rels, maps, c, ax))
	}
	return sum
}

func axisSizes(maps *Maps, ax Axis) map[ecs.Entity]uint16 {
	if ax == AxisHeight {
		return maps.Height
	}
	return maps.Width
}

func setMinimum(buf *ecs.CommandBuffer, maps *Maps, e ecs.Entity, ax Axis, minimum uint16) {
	mins, comp := maps.MinimumWidth, MinimumWidth
	if ax == AxisHeight {
		mins, comp = maps.MinimumHeight, MinimumHeight
	}
	if minimum > 0 {
		mins[e] = minimum
		ecs.Insert(buf, e, comp, minimum)
		return
	}
	delete(mins, e)
	buf.Remove(e, comp)
}

// --- Subdivision ---

// Span is one slice of a subdivided range.
type Span struct {
	Offset, Size uint16
}

type subdivision struct {
	entity  ecs.Entity
	minimum uint16
}

// Subdivider partitions a range among children. Children with a minimum get
// exactly their minimum; the others share what is left equally, and the last
// flexible child absorbs the remainder of the integer division.
type Subdivider struct {
	start, total uint16
	items        []subdivision
}

// NewSubdivider creates a subdivider over [start, start+total).
func NewSubdivider(start, total uint16) *Subdivider {
	return &Subdivider{start: start, total: total}
}

// Add appends a child with the given minimum (0 means flexible).
func (s *Subdivider) Add(e ecs.Entity, minimum uint16) {
	s.items = append(s.items, subdivision{entity: e, minimum: minimum})
}

// Spans yields each child with its slice, in the order they were added.
func (s *Subdivider) Spans() iter.Seq2[ecs.Entity, Span] {
	return func(yield func(ecs.Entity, Span) bool) {
		var fixed uint16
		flexible := 0
		for _, it := range s.items {
			if it.minimum > 0 {
				fixed = addSat(fixed, it.minimum)
			} else {
				flexible++
			}
		}
		var share, remainder uint16
		if flexible > 0 {
			free := subSat(s.total, fixed)
			share = free / uint16(flexible)
			remainder = free % uint16(flexible)
		}

		offset := s.start
		seen := 0
		for _, it := range s.items {
			size := it.minimum
			if size == 0 {
				size = share
				seen++
				if seen == flexible {
					size += remainder
				}
			}
			if !yield(it.entity, Span{Offset: offset, Size: size}) {
				return
			}
			offset = addSat(offset, size)
		}
	}
}

// --- Layout ---

// Layout positions the scene tree. It writes CurrentLayoutConstraints on
// every participant and LayoutChange on every renderable, and remembers the
// resulting bounds for hit testing.
type Layout struct {
	rels   *RelationshipMap
	maps   *Maps
	bounds map[ecs.Entity]Rect
	roots  []ecs.Entity
}

// NewLayout creates a layout pass over the given indexes.
func NewLayout(rels *RelationshipMap, maps *Maps) *Layout {
	return &Layout{rels: rels, maps: maps, bounds: make(map[ecs.Entity]Rect)}
}

// Bounds returns the last laid out rect of a renderable.
func (l *Layout) Bounds(e ecs.Entity) (Rect, bool) {
	r, ok := l.bounds[e]
	return r, ok
}

// Forget drops e from the bounds.
func (l *Layout) Forget(e ecs.Entity) { delete(l.bounds, e) }

// TakeLaidOut returns the roots laid out since the last call.
func (l *Layout) TakeLaidOut() []ecs.Entity {
	out := l.roots
	l.roots = nil
	return out
}

// Resize gives e the size of cx, marks it Resized, consumes its
// LayoutRequest and lays out its subtree.
func (l *Layout) Resize(buf *ecs.CommandBuffer, e ecs.Entity, cx Rect) {
	ecs.Insert(buf, e, Width, cx.Width)
	ecs.Insert(buf, e, Height, cx.Height)
	l.maps.Width[e], l.maps.Height[e] = cx.Width, cx.Height
	buf.Tag(e, Resized)
	buf.Remove(e, LayoutRequest)
	l.Run(buf, e, cx)
	l.roots = append(l.roots, e)
}

// Run lays out e inside cx.
func (l *Layout) Run(buf *ecs.CommandBuffer, e ecs.Entity, cx Rect) {
	ecs.Insert(buf, e, CurrentLayoutConstraints, cx)

	if kind, ok := l.maps.LayoutType[e]; ok {
		inner := l.contentBox(e, cx)
		switch kind {
		case LayoutCanvas:
			inner = inner.Offset(l.maps.Left[e], l.maps.Top[e])
			for c := range l.rels.Children(e) {
				if l.maps.Participates(c) {
					l.Run(buf, c, inner)
				}
			}
		case LayoutHorizontal:
			s := NewSubdivider(inner.Left, inner.Width)
			for c := range l.rels.Children(e) {
				if l.maps.Participates(c) {
					s.Add(c, l.maps.MinimumWidth[c])
				}
			}
			for c, sp := range s.Spans() {
				l.Run(buf, c, Rect{Left: sp.Offset, Top: inner.Top, Width: sp.Size, Height: inner.Height})
			}
		case LayoutVertical:
			s := NewSubdivider(inner.Top, inner.Height)
			for c := range l.rels.Children(e) {
				if l.maps.Participates(c) {
					s.Add(c, l.maps.MinimumHeight[c])
				}
			}
			for c, sp := range s.Spans() {
				l.Run(buf, c, Rect{Left: inner.Left, Top: sp.Offset, Width: inner.Width, Height: sp.Size})
			}
		}
		return
	}

	if _, ok := l.maps.Renderables[e]; ok {
		r := cx.Offset(l.maps.Left[e], l.maps.Top[e])
		if w, ok := l.maps.Width[e]; ok {
			r.Width = w
		}
		if h, ok := l.maps.Height[e]; ok {
			r.Height = h
		}
		ecs.Insert(buf, e, LayoutChange, r)
		l.bounds[e] = r
	}
}

// contentBox narrows cx to a container's own width and height when set.
func (l *Layout) contentBox(e ecs.Entity, cx Rect) Rect {
	if w, ok := l.maps.Width[e]; ok {
		cx.Width = w
	}
	if h, ok := l.maps.Height[e]; ok {
		cx.Height = h
	}
	return cx
}
