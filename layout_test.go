package zoml

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phanxgames/zoml/ecs"
)

// --- Subdivision ---

func spans(s *Subdivider) []Span {
	var out []Span
	for _, sp := range s.Spans() {
		out = append(out, sp)
	}
	return out
}

func TestSubdividerMixed(t *testing.T) {
	s := NewSubdivider(0, 100)
	s.Add(1, 25)
	s.Add(2, 0)
	s.Add(3, 35)
	want := []Span{{0, 25}, {25, 40}, {65, 35}}
	if diff := cmp.Diff(want, spans(s)); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
}

func TestSubdividerRemainderGoesToLastFlexible(t *testing.T) {
	s := NewSubdivider(10, 101)
	s.Add(1, 0)
	s.Add(2, 0)
	s.Add(3, 0)
	s.Add(4, 1)
	want := []Span{{10, 33}, {43, 33}, {76, 34}, {110, 1}}
	if diff := cmp.Diff(want, spans(s)); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
}

func TestSubdividerOverflow(t *testing.T) {
	s := NewSubdivider(0, 50)
	s.Add(1, 40)
	s.Add(2, 0)
	s.Add(3, 40)
	want := []Span{{0, 40}, {40, 0}, {40, 40}}
	if diff := cmp.Diff(want, spans(s)); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
}

func TestSubdividerEarlyStop(t *testing.T) {
	s := NewSubdivider(0, 10)
	s.Add(1, 0)
	s.Add(2, 0)
	n := 0
	for range s.Spans() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("visited %d spans, want 1", n)
	}
}

// --- Measurement and layout over a hand-built tree ---

type layoutFixture struct {
	w    *ecs.World
	buf  *ecs.CommandBuffer
	rels *RelationshipMap
	maps *Maps
	root ecs.Entity
}

func newLayoutFixture(t *testing.T) *layoutFixture {
	t.Helper()
	w := ecs.NewWorld(nil)
	f := &layoutFixture{w: w, buf: ecs.NewCommandBuffer(w, "test"), rels: NewRelationshipMap(), maps: NewMaps()}
	f.root = w.Spawn()
	f.rels.AddRoot(f.buf, f.root)
	f.maps.LayoutType[f.root] = LayoutCanvas
	return f
}

func (f *layoutFixture) container(parent ecs.Entity, kind LayoutKind) ecs.Entity {
	e := f.w.Spawn()
	f.rels.Insert(f.buf, parent, e)
	f.maps.LayoutType[e] = kind
	return e
}

func (f *layoutFixture) rect(parent ecs.Entity) ecs.Entity {
	e := f.w.Spawn()
	f.rels.Insert(f.buf, parent, e)
	f.maps.Renderables[e] = RenderRectangle
	return e
}

func (f *layoutFixture) change(t *testing.T, e ecs.Entity) Rect {
	t.Helper()
	f.buf.Flush()
	r, ok := ecs.Get(f.w, e, LayoutChange)
	if !ok {
		t.Fatalf("%v has no LayoutChange", e)
	}
	return r
}

func TestMeasureSumsFixedSizes(t *testing.T) {
	f := newLayoutFixture(t)
	stack := f.container(f.root, LayoutHorizontal)
	a, b, c := f.rect(stack), f.rect(stack), f.rect(stack)
	f.maps.Width[a], f.maps.Width[c] = 10, 15
	inner := f.container(stack, LayoutVertical)
	d := f.rect(inner)
	f.maps.Width[d] = 7
	_ = b

	if got := MeasureRoot(f.buf, f.rels, f.maps, f.root, AxisWidth); got != 32 {
		t.Errorf("root minimum = %d, want 32", got)
	}
	if got := f.maps.MinimumWidth[inner]; got != 7 {
		t.Errorf("nested minimum = %d, want 7", got)
	}
	if _, ok := f.maps.MinimumWidth[b]; ok {
		t.Error("flexible child got a minimum")
	}
	f.buf.Flush()
	if got, _ := ecs.Get(f.w, stack, MinimumWidth); got != 32 {
		t.Errorf("MinimumWidth component = %d, want 32", got)
	}
}

func TestMeasureFixedParentWins(t *testing.T) {
	f := newLayoutFixture(t)
	stack := f.container(f.root, LayoutHorizontal)
	f.maps.Width[stack] = 50
	child := f.rect(stack)
	f.maps.Width[child] = 80

	if got := Measure(f.buf, f.rels, f.maps, stack, AxisWidth); got != 50 {
		t.Errorf("minimum = %d, want 50", got)
	}
	if got := f.maps.MinimumWidth[child]; got != 80 {
		t.Errorf("child minimum = %d, want 80", got)
	}
}

func TestMeasureRootIgnoresWindowSize(t *testing.T) {
	f := newLayoutFixture(t)
	f.maps.Width[f.root] = 100
	child := f.rect(f.root)
	f.maps.Width[child] = 30
	if got := MeasureRoot(f.buf, f.rels, f.maps, f.root, AxisWidth); got != 30 {
		t.Errorf("root minimum = %d, want 30", got)
	}
}

func TestMeasureZeroRemovesMinimum(t *testing.T) {
	f := newLayoutFixture(t)
	r := f.rect(f.root)
	f.maps.MinimumHeight[r] = 9
	ecs.Set(f.w, r, MinimumHeight, 9)

	Measure(f.buf, f.rels, f.maps, r, AxisHeight)
	f.buf.Flush()
	if _, ok := f.maps.MinimumHeight[r]; ok {
		t.Error("stale minimum kept in maps")
	}
	if f.w.Has(r, MinimumHeight) {
		t.Error("stale MinimumHeight component kept")
	}
}

func TestLayoutHorizontalChildrenFitParent(t *testing.T) {
	f := newLayoutFixture(t)
	stack := f.container(f.root, LayoutHorizontal)
	a, b, c := f.rect(stack), f.rect(stack), f.rect(stack)
	f.maps.MinimumWidth[a], f.maps.MinimumWidth[c] = 25, 35

	l := NewLayout(f.rels, f.maps)
	l.Resize(f.buf, f.root, Rect{Width: 100, Height: 80})

	want := []Rect{{0, 0, 25, 80}, {25, 0, 40, 80}, {65, 0, 35, 80}}
	for i, e := range []ecs.Entity{a, b, c} {
		if got := f.change(t, e); got != want[i] {
			t.Errorf("child %d = %v, want %v", i, got, want[i])
		}
	}
	if diff := cmp.Diff([]ecs.Entity{f.root}, l.TakeLaidOut()); diff != "" {
		t.Errorf("laid out mismatch (-want +got):\n%s", diff)
	}
	if !f.w.Has(f.root, Resized) {
		t.Error("root not marked Resized")
	}
	if w, _ := ecs.Get(f.w, f.root, Width); w != 100 {
		t.Errorf("root width = %d, want 100", w)
	}
}

func TestLayoutCanvasOffset(t *testing.T) {
	f := newLayoutFixture(t)
	canvas := f.container(f.root, LayoutCanvas)
	f.maps.Left[canvas], f.maps.Top[canvas] = 10, 11
	r := f.rect(canvas)
	f.maps.Left[r], f.maps.Top[r] = 10, 11

	NewLayout(f.rels, f.maps).Resize(f.buf, f.root, Rect{Width: 100, Height: 110})
	if got, want := f.change(t, r), (Rect{20, 22, 100, 110}); got != want {
		t.Errorf("LayoutChange = %v, want %v", got, want)
	}
	if got, _ := ecs.Get(f.w, canvas, CurrentLayoutConstraints); got != (Rect{0, 0, 100, 110}) {
		t.Errorf("canvas constraints = %v", got)
	}
}

func TestLayoutContainerSizeNarrowsChildren(t *testing.T) {
	f := newLayoutFixture(t)
	stack := f.container(f.root, LayoutVertical)
	f.maps.Width[stack], f.maps.Height[stack] = 40, 20
	a, b := f.rect(stack), f.rect(stack)

	NewLayout(f.rels, f.maps).Resize(f.buf, f.root, Rect{Width: 100, Height: 100})
	if got, want := f.change(t, a), (Rect{0, 0, 40, 10}); got != want {
		t.Errorf("first = %v, want %v", got, want)
	}
	if got, want := f.change(t, b), (Rect{0, 10, 40, 10}); got != want {
		t.Errorf("second = %v, want %v", got, want)
	}
}

func TestLayoutSkipsNonParticipants(t *testing.T) {
	f := newLayoutFixture(t)
	stack := f.container(f.root, LayoutHorizontal)
	imp := f.w.Spawn()
	f.rels.Insert(f.buf, stack, imp)
	r := f.rect(stack)

	l := NewLayout(f.rels, f.maps)
	l.Resize(f.buf, f.root, Rect{Width: 60, Height: 10})
	if got, want := f.change(t, r), (Rect{0, 0, 60, 10}); got != want {
		t.Errorf("rect = %v, want %v", got, want)
	}
	if f.w.Has(imp, CurrentLayoutConstraints) {
		t.Error("non-participant was laid out")
	}
	if b, ok := l.Bounds(r); !ok || b != (Rect{0, 0, 60, 10}) {
		t.Errorf("Bounds = %v, %v", b, ok)
	}
	l.Forget(r)
	if _, ok := l.Bounds(r); ok {
		t.Error("forgotten bounds kept")
	}
}
